package cachepolicy

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"archery-scoring-service/internal/logging"
	"archery-scoring-service/internal/metrics"
)

// maxCacheBody bounds how much of a response we will cache.
const maxCacheBody = 4 << 20

// DefaultOfflineDocument is the built-in page served for document
// requests when the network is down and nothing was ever cached.
// Deployments can replace it via Config.OfflineDocument.
var DefaultOfflineDocument = []byte(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Offline</title></head>
<body>
<h1>Offline</h1>
<p>Scoring continues locally. The leaderboard will refresh when the connection returns.</p>
</body>
</html>
`)

// Config wires a Transport.
type Config struct {
	// Version is the deployment version; bumping it invalidates every
	// previously cached entry on Activate.
	Version string
	// Origin and APIPrefix drive classification.
	Origin    string
	APIPrefix string
	// OfflineDocument is served when a document can be neither
	// fetched nor found in cache.
	OfflineDocument []byte
}

// Transport is an http.RoundTripper applying per-class cache policy.
// It sits beneath the API client, so mutating calls from the sync
// queue pass straight through while reads degrade gracefully offline.
type Transport struct {
	next       http.RoundTripper
	cache      *Cache
	classifier Classifier
	offline    []byte
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

// New builds the transport and activates the cache version, dropping
// entries from older deployments.
func New(cfg Config, cache *Cache, next http.RoundTripper, logger *slog.Logger, recorder *metrics.Recorder) (*Transport, error) {
	if next == nil {
		next = http.DefaultTransport
	}
	if err := cache.Activate(); err != nil {
		return nil, err
	}
	return &Transport{
		next:       next,
		cache:      cache,
		classifier: Classifier{Origin: cfg.Origin, APIPrefix: cfg.APIPrefix},
		offline:    cfg.OfflineDocument,
		logger:     logger,
		metrics:    recorder,
	}, nil
}

// RoundTrip applies the class policy for one request.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	class := t.classifier.Classify(req)
	switch class {
	case ClassMutatingAPI:
		// Pass failures straight through: the sync queue owns retry.
		return t.next.RoundTrip(req)
	case ClassReadAPI:
		return t.networkFirst(req, class, nil)
	case ClassDocument:
		return t.networkFirst(req, class, t.offlineFallback(req))
	case ClassStaticAsset:
		return t.cacheFirst(req, class, "image/gif")
	default:
		return t.cacheFirst(req, class, "")
	}
}

// networkFirst tries the network, caching good responses; on failure it
// serves the last-known-good copy tagged stale, then the fallback, and
// only then propagates the failure.
func (t *Transport) networkFirst(req *http.Request, class Class, fallback *http.Response) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err == nil && resp.StatusCode < 500 {
		t.store(req, resp, class)
		return resp, nil
	}

	if entry, ok, cacheErr := t.cache.Get(req.URL.String()); cacheErr == nil && ok {
		if resp != nil {
			resp.Body.Close()
		}
		t.metrics.RecordCacheLookup(class.String(), true)
		logging.Warn(t.logger, "network failed, serving stale cache",
			slog.String(logging.FieldPath, req.URL.Path),
			slog.String(logging.FieldClass, class.String()),
		)
		return entry.respond(req, statusStale), nil
	}
	t.metrics.RecordCacheLookup(class.String(), false)

	if fallback != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fallback, nil
	}
	// No cached copy and no fallback: propagate the failure as-is.
	return resp, err
}

// cacheFirst serves from cache when possible, fetching and populating
// on a miss, and degrades to an empty placeholder on total failure.
func (t *Transport) cacheFirst(req *http.Request, class Class, placeholderType string) (*http.Response, error) {
	if entry, ok, err := t.cache.Get(req.URL.String()); err == nil && ok {
		t.metrics.RecordCacheLookup(class.String(), true)
		return entry.respond(req, statusHit), nil
	}
	t.metrics.RecordCacheLookup(class.String(), false)

	resp, err := t.next.RoundTrip(req)
	if err == nil && resp.StatusCode < 400 {
		t.store(req, resp, class)
		return resp, nil
	}
	if resp != nil {
		resp.Body.Close()
	}
	logging.Warn(t.logger, "asset fetch failed, degrading to placeholder",
		slog.String(logging.FieldPath, req.URL.Path),
		slog.String(logging.FieldClass, class.String()),
	)
	return emptyResponse(req, placeholderType), nil
}

// store caches a cacheable response, replacing its body with a reader
// over the bytes just consumed. Only GETs with 2xx responses no larger
// than maxCacheBody qualify; an oversized body is passed through to the
// caller untouched and skips the cache.
func (t *Transport) store(req *http.Request, resp *http.Response, class Class) {
	if req.Method != http.MethodGet || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCacheBody+1))
	if err != nil {
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return
	}
	if len(body) > maxCacheBody {
		// Stitch the consumed prefix back in front of the unread rest.
		rest := resp.Body
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), rest), rest}
		return
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err := t.cache.Put(req.URL.String(), resp.StatusCode, resp.Header, body); err != nil {
		logging.Error(t.logger, "cache write failed", err,
			slog.String(logging.FieldPath, req.URL.Path),
			slog.String(logging.FieldClass, class.String()),
		)
	}
}

func (t *Transport) offlineFallback(req *http.Request) *http.Response {
	if len(t.offline) == 0 {
		return nil
	}
	header := make(http.Header, 2)
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set(StatusHeader, statusFallback)
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        http.StatusText(http.StatusOK),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(t.offline)),
		ContentLength: int64(len(t.offline)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
