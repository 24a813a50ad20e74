package metrics

import (
	"sync"
	"time"
)

type taskStats struct {
	attempts        int
	failures        int
	lastAttemptTime time.Time
	lastLatency     time.Duration
}

type cacheStats struct {
	hits   int
	misses int
}

// Recorder captures lightweight, in-memory metrics about sync and
// cache activity. It is intentionally simple so it can be swapped for
// a real backend later; all methods are safe on a nil receiver.
type Recorder struct {
	mu         sync.Mutex
	tasks      map[string]*taskStats
	cache      map[string]*cacheStats
	queueDepth int
	otel       *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		tasks: make(map[string]*taskStats),
		cache: make(map[string]*cacheStats),
		otel:  otel,
	}
}

// RecordSyncAttempt counts one delivery attempt for a task kind and
// stores the last observed latency.
func (r *Recorder) RecordSyncAttempt(kind string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.tasks[kind]
	if stats == nil {
		stats = &taskStats{}
		r.tasks[kind] = stats
	}
	stats.attempts++
	stats.lastAttemptTime = time.Now()
	stats.lastLatency = duration
	if err != nil {
		stats.failures++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordSyncAttempt(kind, duration, err)
	}
}

// RecordQueueDepth stores the current pending task count.
func (r *Recorder) RecordQueueDepth(pending int) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.queueDepth = pending
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordQueueDepth(pending)
	}
}

// RecordCacheLookup counts a cache policy decision per resource class.
func (r *Recorder) RecordCacheLookup(class string, hit bool) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.cache[class]
	if stats == nil {
		stats = &cacheStats{}
		r.cache[class] = stats
	}
	if hit {
		stats.hits++
	} else {
		stats.misses++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordCacheLookup(class, hit)
	}
}

// RecordSnapshotRefresh counts one leaderboard refresh cycle.
func (r *Recorder) RecordSnapshotRefresh(duration time.Duration, err error) {
	if r == nil {
		return
	}
	if r.otel != nil {
		r.otel.recordSnapshotRefresh(duration, err)
	}
}

// RecordHTTPRequest counts one status-server request.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	if r.otel != nil {
		r.otel.recordHTTPRequest(method, path, status, duration)
	}
}

// SyncAttempts returns attempt/failure counts for a task kind.
func (r *Recorder) SyncAttempts(kind string) (attempts, failures int) {
	if r == nil {
		return 0, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stats := r.tasks[kind]; stats != nil {
		return stats.attempts, stats.failures
	}
	return 0, 0
}

// CacheLookups returns hit/miss counts for a resource class.
func (r *Recorder) CacheLookups(class string) (hits, misses int) {
	if r == nil {
		return 0, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stats := r.cache[class]; stats != nil {
		return stats.hits, stats.misses
	}
	return 0, 0
}

// QueueDepth returns the last recorded pending count.
func (r *Recorder) QueueDepth() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queueDepth
}
