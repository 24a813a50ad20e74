package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"archery-scoring-service/internal/metrics"
)

// NewRouter registers the device-local routes.
func NewRouter(h *Handler, logger *slog.Logger, recorder *metrics.Recorder) http.Handler {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(logger, recorder))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.HandleFunc("/status", h.SyncStatus).Methods(http.MethodGet)
	r.HandleFunc("/snapshots/{event}", h.Snapshot).Methods(http.MethodGet)

	r.HandleFunc("/sessions", h.OpenSession).Methods(http.MethodPost)
	s := r.PathPrefix("/sessions/{event}/{date}/{participant}").Subrouter()
	s.HandleFunc("", h.GetCard).Methods(http.MethodGet)
	s.HandleFunc("", h.CloseSession).Methods(http.MethodDelete)
	s.HandleFunc("/ends/{end}/arrows/{arrow}", h.RecordArrow).Methods(http.MethodPut)

	return r
}
