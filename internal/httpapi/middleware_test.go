package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"archery-scoring-service/internal/metrics"

	"github.com/gorilla/mux"
)

func middlewareRouter(recorder *metrics.Recorder, inner http.HandlerFunc) http.Handler {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(nil, recorder))
	r.HandleFunc("/sessions/{event}/{date}/{participant}", inner).Methods(http.MethodGet)
	return r
}

func TestMiddlewarePreservesValidRequestID(t *testing.T) {
	router := middlewareRouter(nil, func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromContext(r.Context()); got != "req-42" {
			t.Fatalf("expected request id in context, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/sessions/evt/2026-04-18/alice", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestMiddlewareReplacesInvalidRequestID(t *testing.T) {
	router := middlewareRouter(nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/sessions/evt/2026-04-18/alice", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces!")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	got := rr.Header().Get("X-Request-ID")
	if got == "" || got == "bad id with spaces!" {
		t.Fatalf("expected sanitized request id, got %q", got)
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	recorder := metrics.NewRecorder()
	router := middlewareRouter(recorder, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/sessions/evt/2026-04-18/alice", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status passthrough, got %d", rr.Code)
	}
}
