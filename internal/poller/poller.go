// Package poller periodically fetches the remote leaderboard snapshot
// and persists it locally so the UI can render last-seen standings
// while offline.
package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"archery-scoring-service/internal/domain"
	"archery-scoring-service/internal/logging"
	"archery-scoring-service/internal/metrics"
	"archery-scoring-service/internal/store"
)

const defaultInterval = 30 * time.Second

const snapshotKeyPrefix = "snapshot/"

// SnapshotFetcher retrieves the full read-side view of an event.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, eventID string) (domain.Snapshot, error)
}

// Poller refreshes one event's snapshot on an interval.
type Poller struct {
	fetcher  SnapshotFetcher
	kv       store.KV
	eventID  string
	logger   *slog.Logger
	metrics  *metrics.Recorder
	interval time.Duration

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health of the refresh loop.
type Status struct {
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// IsReady reports whether the poller has had a recent success and is
// not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < 3
}

// New constructs a Poller with sane defaults.
func New(fetcher SnapshotFetcher, kv store.KV, eventID string, logger *slog.Logger, recorder *metrics.Recorder, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		kv:       kv,
		eventID:  eventID,
		logger:   logger,
		metrics:  recorder,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins refreshing until the context is cancelled or Stop is
// called.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	p.startMu.Unlock()

	p.ticker = time.NewTicker(p.interval)

	go func() {
		logging.Info(p.logger, "snapshot poller started",
			slog.String(logging.FieldEvent, p.eventID),
			slog.Int64(logging.FieldDurationMS, p.interval.Milliseconds()),
		)
		// Initial fetch to warm the local copy on boot.
		p.fetchOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				p.stopTicker()
				logging.Info(p.logger, "snapshot poller stopped")
				return
			case <-p.done:
				p.stopTicker()
				logging.Info(p.logger, "snapshot poller stopped")
				return
			case <-p.ticker.C:
				p.fetchOnce(ctx)
			}
		}
	}()
}

// Stop halts the refresh loop.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.stopTicker()
	})
}

func (p *Poller) fetchOnce(ctx context.Context) {
	start := time.Now()
	p.recordAttempt(start)

	snap, err := p.fetcher.FetchSnapshot(ctx, p.eventID)
	p.metrics.RecordSnapshotRefresh(time.Since(start), err)
	if err != nil {
		logging.Error(p.logger, "snapshot refresh failed", err,
			slog.String(logging.FieldEvent, p.eventID),
			slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
		)
		p.recordFailure(err, start)
		return
	}

	if err := WriteSnapshot(p.kv, p.eventID, snap); err != nil {
		logging.Error(p.logger, "snapshot persist failed", err,
			slog.String(logging.FieldEvent, p.eventID),
		)
		p.recordFailure(err, start)
		return
	}

	p.recordSuccess(start)
	logging.Info(p.logger, "snapshot refreshed",
		slog.String(logging.FieldEvent, p.eventID),
		slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
}

func (p *Poller) stopTicker() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}

func (p *Poller) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *Poller) recordSuccess(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Poller) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.LastAttempt = at
}

// Status returns a snapshot of the poller's recent health.
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// WriteSnapshot persists an event snapshot to the local store.
func WriteSnapshot(kv store.KV, eventID string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return kv.Set(snapshotKeyPrefix+eventID, data)
}

// ReadSnapshot loads the last persisted snapshot for an event.
func ReadSnapshot(kv store.KV, eventID string) (domain.Snapshot, bool, error) {
	data, ok, err := kv.Get(snapshotKeyPrefix + eventID)
	if err != nil || !ok {
		return domain.Snapshot{}, false, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}
