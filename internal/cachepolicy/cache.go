package cachepolicy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"archery-scoring-service/internal/store"
)

const cachePrefix = "cache/"

// StatusHeader reports how the policy layer sourced a response.
const StatusHeader = "X-Cache-Status"

const (
	statusHit      = "hit"
	statusStale    = "stale"
	statusFallback = "offline-fallback"
	statusEmpty    = "placeholder"
)

// Cache stores successful GET responses under a deployment version so
// a new version invalidates every earlier entry at once.
type Cache struct {
	kv      store.KV
	version string
}

// NewCache wraps the KV store for the given deployment version.
func NewCache(kv store.KV, version string) *Cache {
	if version == "" {
		version = "v1"
	}
	return &Cache{kv: kv, version: version}
}

// Activate deletes every cached entry written by other versions. It
// mirrors a service worker's activation step.
func (c *Cache) Activate() error {
	keys, err := c.kv.Keys(cachePrefix)
	if err != nil {
		return fmt.Errorf("cachepolicy: list generations: %w", err)
	}
	current := c.keyPrefix()
	for _, k := range keys {
		if strings.HasPrefix(k, current) {
			continue
		}
		if err := c.kv.Delete(k); err != nil {
			return fmt.Errorf("cachepolicy: drop stale entry %q: %w", k, err)
		}
	}
	return nil
}

func (c *Cache) keyPrefix() string {
	return cachePrefix + c.version + "/"
}

func (c *Cache) key(u string) string {
	return c.keyPrefix() + u
}

type cachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body,omitempty"`
	StoredAt time.Time   `json:"storedAt"`
}

// Put caches one response body that has already been read.
func (c *Cache) Put(u string, status int, header http.Header, body []byte) error {
	entry := cachedResponse{
		Status:   status,
		Header:   header,
		Body:     body,
		StoredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cachepolicy: encode entry: %w", err)
	}
	return c.kv.Set(c.key(u), data)
}

// Get returns the cached response for a URL, if any.
func (c *Cache) Get(u string) (cachedResponse, bool, error) {
	data, ok, err := c.kv.Get(c.key(u))
	if err != nil || !ok {
		return cachedResponse{}, false, err
	}
	var entry cachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		return cachedResponse{}, false, fmt.Errorf("cachepolicy: decode entry: %w", err)
	}
	return entry, true, nil
}

// respond materializes a cached entry as an http.Response tagged with
// how it was sourced.
func (entry cachedResponse) respond(req *http.Request, cacheStatus string) *http.Response {
	header := make(http.Header, len(entry.Header)+1)
	for k, vs := range entry.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set(StatusHeader, cacheStatus)
	return &http.Response{
		StatusCode:    entry.Status,
		Status:        http.StatusText(entry.Status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}

// emptyResponse is the degraded placeholder for asset failures.
func emptyResponse(req *http.Request, contentType string) *http.Response {
	header := make(http.Header, 2)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	header.Set(StatusHeader, statusEmpty)
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        http.StatusText(http.StatusOK),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(nil)),
		ContentLength: 0,
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
