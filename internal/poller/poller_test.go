package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"archery-scoring-service/internal/domain"
	"archery-scoring-service/internal/store"
	"archery-scoring-service/internal/teststubs"
)

func TestPollerFetchesAndPersistsSnapshot(t *testing.T) {
	snap := domain.Snapshot{
		Event: domain.Event{ID: "spring-open", Name: "Spring Open", Date: "2026-04-12"},
		Divisions: []domain.Division{
			{Name: "Varsity", Participants: []domain.Participant{{ID: "p-1", Name: "Robin"}}},
		},
	}
	fetcher := &teststubs.StubFetcher{
		Snapshot: snap,
		Notify:   make(chan struct{}),
	}
	kv := store.NewMemory()

	p := New(fetcher, kv, "spring-open", nil, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	select {
	case <-fetcher.Notify:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for initial fetch")
	}

	time.Sleep(30 * time.Millisecond) // allow at least one ticker fire

	cancel()
	p.Stop()

	got, ok, err := ReadSnapshot(kv, "spring-open")
	if err != nil || !ok {
		t.Fatalf("ReadSnapshot = ok=%v err=%v", ok, err)
	}
	if got.Event.Name != "Spring Open" || len(got.Divisions) != 1 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if fetcher.Calls.Load() < 1 {
		t.Fatal("expected at least one fetch call")
	}
	if !p.Status().IsReady() {
		t.Fatalf("poller not ready after success: %+v", p.Status())
	}
}

func TestPollerRecordsFailures(t *testing.T) {
	fetcher := &teststubs.StubFetcher{
		Err:    errors.New("network down"),
		Notify: make(chan struct{}),
	}
	p := New(fetcher, store.NewMemory(), "spring-open", nil, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	select {
	case <-fetcher.Notify:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for fetch")
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	p.Stop()

	st := p.Status()
	if st.ConsecutiveFailures == 0 || st.LastError == "" {
		t.Fatalf("failures not recorded: %+v", st)
	}
	if st.IsReady() {
		t.Fatal("poller with no success must not be ready")
	}
}

func TestPollerStartIsIdempotent(t *testing.T) {
	fetcher := &teststubs.StubFetcher{Notify: make(chan struct{})}
	p := New(fetcher, store.NewMemory(), "e", nil, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Start(ctx) // second Start must not spawn a second loop

	select {
	case <-fetcher.Notify:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for fetch")
	}
	time.Sleep(10 * time.Millisecond)
	if got := fetcher.Calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 initial fetch", got)
	}

	cancel()
	p.Stop()
	p.Stop() // Stop is safe to call twice
}

func TestReadSnapshotMissing(t *testing.T) {
	if _, ok, err := ReadSnapshot(store.NewMemory(), "nope"); ok || err != nil {
		t.Fatalf("ReadSnapshot(missing) = ok=%v err=%v", ok, err)
	}
}
