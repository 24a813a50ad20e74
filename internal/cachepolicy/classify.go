// Package cachepolicy is the cache-vs-network policy layer beneath the
// sync queue and snapshot fetches: per resource class it decides
// network-first or cache-first, tags stale fallbacks, and versions the
// cache so a new deployment invalidates old entries atomically.
package cachepolicy

import (
	"net/http"
	"path"
	"strings"
)

// Class partitions requests by how their failures should degrade.
type Class int

const (
	// ClassMutatingAPI bypasses the cache entirely; the sync queue
	// must observe real network failures to decide to retry.
	ClassMutatingAPI Class = iota
	// ClassReadAPI is network-first with a stale cached fallback.
	ClassReadAPI
	// ClassDocument is network-first with a cached page or offline
	// fallback document.
	ClassDocument
	// ClassStaticAsset is cache-first; total failure degrades to an
	// empty placeholder rather than breaking layout.
	ClassStaticAsset
	// ClassCrossOrigin is cache-first with network fallback; failures
	// degrade to an empty response.
	ClassCrossOrigin
)

func (c Class) String() string {
	switch c {
	case ClassMutatingAPI:
		return "mutating_api"
	case ClassReadAPI:
		return "read_api"
	case ClassDocument:
		return "document"
	case ClassStaticAsset:
		return "static_asset"
	case ClassCrossOrigin:
		return "cross_origin"
	default:
		return "unknown"
	}
}

// Classifier assigns a Class to each outgoing request.
type Classifier struct {
	// Origin is the host treated as our own; anything else is
	// cross-origin.
	Origin string
	// APIPrefix marks API paths on the origin, e.g. "/api/".
	APIPrefix string
}

// Classify buckets one request.
func (c Classifier) Classify(req *http.Request) Class {
	if c.Origin != "" && req.URL.Host != "" && !strings.EqualFold(req.URL.Host, c.Origin) {
		return ClassCrossOrigin
	}

	if c.APIPrefix != "" && strings.HasPrefix(req.URL.Path, c.APIPrefix) {
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			return ClassReadAPI
		}
		return ClassMutatingAPI
	}

	if isDocument(req) {
		return ClassDocument
	}
	return ClassStaticAsset
}

func isDocument(req *http.Request) bool {
	if strings.Contains(req.Header.Get("Accept"), "text/html") {
		return true
	}
	ext := path.Ext(req.URL.Path)
	return ext == "" || ext == ".html"
}
