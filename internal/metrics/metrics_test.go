package metrics

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecorderCountsSyncAttempts(t *testing.T) {
	r := NewRecorder()

	r.RecordSyncAttempt("post_end", 10*time.Millisecond, nil)
	r.RecordSyncAttempt("post_end", 20*time.Millisecond, errors.New("boom"))
	r.RecordSyncAttempt("create_round", time.Millisecond, nil)

	attempts, failures := r.SyncAttempts("post_end")
	if attempts != 2 || failures != 1 {
		t.Fatalf("post_end = %d/%d, want 2/1", attempts, failures)
	}
	attempts, failures = r.SyncAttempts("create_round")
	if attempts != 1 || failures != 0 {
		t.Fatalf("create_round = %d/%d, want 1/0", attempts, failures)
	}
	attempts, _ = r.SyncAttempts("unknown")
	if attempts != 0 {
		t.Fatalf("unknown kind reported %d attempts", attempts)
	}
}

func TestRecorderCacheAndDepth(t *testing.T) {
	r := NewRecorder()

	r.RecordCacheLookup("static_asset", true)
	r.RecordCacheLookup("static_asset", false)
	r.RecordCacheLookup("static_asset", true)
	r.RecordQueueDepth(7)

	hits, misses := r.CacheLookups("static_asset")
	if hits != 2 || misses != 1 {
		t.Fatalf("cache = %d/%d, want 2/1", hits, misses)
	}
	if got := r.QueueDepth(); got != 7 {
		t.Fatalf("QueueDepth = %d, want 7", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordSyncAttempt("post_end", time.Millisecond, nil)
	r.RecordQueueDepth(1)
	r.RecordCacheLookup("document", true)
	r.RecordSnapshotRefresh(time.Millisecond, nil)
	r.RecordHTTPRequest("GET", "/status", 200, time.Millisecond)
	if n := r.QueueDepth(); n != 0 {
		t.Fatalf("nil recorder depth = %d", n)
	}
}

func TestSetupDisabledReturnsNoopShutdown(t *testing.T) {
	rec, handler, shutdown, err := Setup(context.Background(), TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if rec == nil {
		t.Fatal("expected recorder even when disabled")
	}
	if handler != nil {
		t.Fatal("expected no handler when disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
