// Package server assembles the scorekeeper daemon: durable store, sync
// queue, snapshot poller, and the device-local HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"archery-scoring-service/internal/api"
	"archery-scoring-service/internal/cachepolicy"
	"archery-scoring-service/internal/config"
	"archery-scoring-service/internal/httpapi"
	"archery-scoring-service/internal/logging"
	"archery-scoring-service/internal/metrics"
	"archery-scoring-service/internal/poller"
	"archery-scoring-service/internal/scorecard"
	"archery-scoring-service/internal/store"
	"archery-scoring-service/internal/syncq"
)

var metricsSetup = metrics.Setup

// Server owns every long-lived component of the daemon.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	recorder *metrics.Recorder

	kv     store.KV
	queue  *syncq.Queue
	cards  *scorecard.Coordinator
	poller *poller.Poller

	httpServer  httpServer
	metricsStop func(context.Context) error
}

// New constructs the daemon from config. The store is opened here;
// Close releases it.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	recorder, promHandler, metricsStop := buildMetrics(cfg, logger)

	kv, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("server: open store: %w", err)
	}

	s, err := build(cfg, logger, recorder, kv, promHandler)
	if err != nil {
		kv.Close()
		return nil, err
	}
	s.metricsStop = metricsStop
	return s, nil
}

// newWithStore is the test seam: it skips metrics setup and uses the
// provided store.
func newWithStore(cfg config.Config, logger *slog.Logger, kv store.KV) (*Server, error) {
	return build(cfg, logger, metrics.NewRecorder(), kv, nil)
}

func build(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder, kv store.KV, promHandler http.Handler) (*Server, error) {
	transport, err := cachepolicy.New(cachepolicy.Config{
		Version:         cfg.Cache.Version,
		Origin:          cfg.Cache.Origin,
		APIPrefix:       cfg.Cache.APIPrefix,
		OfflineDocument: offlineDocument(cfg.Cache.OfflinePagePath, logger),
	}, cachepolicy.NewCache(kv, cfg.Cache.Version), nil, logger, recorder)
	if err != nil {
		return nil, fmt.Errorf("server: cache transport: %w", err)
	}

	client := api.NewClient(api.Config{
		BaseURL:  cfg.Sync.BaseURL,
		Passcode: cfg.Sync.Passcode,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Sync.Timeout,
		},
	})

	var queue *syncq.Queue
	if cfg.Sync.Enabled && cfg.Sync.BaseURL != "" {
		queue, err = syncq.New(kv, client, logger, recorder, cfg.Sync.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("server: sync queue: %w", err)
		}
		queue.SetFlushInterval(cfg.Sync.FlushInterval)
	}

	cards := scorecard.New(kv, queue, logger, scorecard.Config{
		ArrowsPerEnd: cfg.Scoring.ArrowsPerEnd,
		EndsPerRound: cfg.Scoring.EndsPerRound,
	})

	var plr *poller.Poller
	var statusFn func() poller.Status
	if cfg.Snapshot.Enabled && cfg.Snapshot.EventID != "" {
		plr = poller.New(client, kv, cfg.Snapshot.EventID, logger, recorder, cfg.Snapshot.Interval)
		statusFn = plr.Status
	}

	handler := httpapi.New(cards, queue, kv, statusFn, logger)
	router := httpapi.NewRouter(handler, logger, recorder)

	root := http.NewServeMux()
	root.Handle("/", router)
	if promHandler != nil {
		root.Handle("/metrics", promHandler)
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		kv:       kv,
		queue:    queue,
		cards:    cards,
		poller:   plr,
		httpServer: stdServer{srv: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      root,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		}},
	}, nil
}

// offlineDocument loads the configured offline fallback page, falling
// back to the built-in one when no path is set or the file is
// unreadable.
func offlineDocument(path string, logger *slog.Logger) []byte {
	if path == "" {
		return cachepolicy.DefaultOfflineDocument
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn(logger, "offline page unreadable, using built-in",
			slog.String(logging.FieldPath, path), slog.Any("err", err))
		return cachepolicy.DefaultOfflineDocument
	}
	return data
}

func buildMetrics(cfg config.Config, logger *slog.Logger) (*metrics.Recorder, http.Handler, func(context.Context) error) {
	recorder, handler, shutdown, err := metricsSetup(context.Background(), metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	})
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", slog.Any("err", err))
		return metrics.NewRecorder(), nil, nil
	}
	return recorder, handler, shutdown
}

// Run starts the queue driver, the poller, and the HTTP server, then
// waits for context cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	if s.queue != nil {
		go s.queue.Run(ctx)
	}
	if s.poller != nil {
		s.poller.Start(ctx)
	}

	logging.Info(s.logger, "http server starting", slog.String("addr", s.httpServer.Addr()))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(s.logger, "http server failed", err)
			if stop != nil {
				stop()
			}
		}
	}()

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")
	s.gracefulShutdown()
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", slog.Any("err", err))
		}
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}
	if err := s.kv.Close(); err != nil {
		logging.Warn(s.logger, "store close failed", slog.Any("err", err))
	}
	logging.Info(s.logger, "shutdown complete")
}

// Flush drains the sync queue once. It is the `flush` subcommand's
// entry point.
func (s *Server) Flush(ctx context.Context) error {
	if s.queue == nil {
		return fmt.Errorf("server: sync disabled")
	}
	if err := s.queue.Flush(ctx); err != nil {
		return err
	}
	st := s.queue.Status()
	if st.Pending > 0 {
		return fmt.Errorf("server: %d tasks still pending: %s", st.Pending, st.LastError)
	}
	return nil
}

// Close releases resources without a graceful HTTP shutdown. Used by
// one-shot commands that never started Run.
func (s *Server) Close() error {
	return s.kv.Close()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
