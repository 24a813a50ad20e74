// Package teststubs holds shared test doubles for the sync and
// snapshot plumbing.
package teststubs

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"archery-scoring-service/internal/domain"
	"archery-scoring-service/internal/syncq"
)

// PermanentStubError satisfies the sync queue's dead-letter check.
type PermanentStubError struct {
	Message string
}

func (e *PermanentStubError) Error() string   { return e.Message }
func (e *PermanentStubError) Permanent() bool { return true }

// StubSender is a test double for syncq.Sender. It records every task
// it is asked to deliver, in order.
type StubSender struct {
	// FailTimes makes the first N Send calls fail with Err (or a
	// generic transient error when Err is nil).
	FailTimes int
	// Err is returned while failing. Use a *PermanentStubError to
	// exercise dead-lettering.
	Err error
	// AssignID, when set, is returned as the server id for any task
	// that produces a ref. AssignFn wins when both are set.
	AssignID string
	AssignFn func(t syncq.Task) syncq.Result
	// Notify, when non-nil, is closed on the first Send.
	Notify chan struct{}

	Attempts atomic.Int32

	mu    sync.Mutex
	calls []syncq.Task
}

type transientStubError struct{}

func (transientStubError) Error() string { return "stub: transient failure" }

// Send records the task and returns the configured outcome.
func (s *StubSender) Send(ctx context.Context, t syncq.Task) (syncq.Result, error) {
	_ = ctx
	if s.Notify != nil {
		select {
		case <-s.Notify:
		default:
			close(s.Notify)
		}
	}
	attempt := int(s.Attempts.Add(1))

	s.mu.Lock()
	s.calls = append(s.calls, t)
	s.mu.Unlock()

	if attempt <= s.FailTimes {
		if s.Err != nil {
			return syncq.Result{}, s.Err
		}
		return syncq.Result{}, transientStubError{}
	}
	if s.AssignFn != nil {
		return s.AssignFn(t), nil
	}
	return syncq.Result{AssignedID: s.AssignID}, nil
}

// Calls returns a copy of the delivered tasks in order.
func (s *StubSender) Calls() []syncq.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]syncq.Task, len(s.calls))
	copy(out, s.calls)
	return out
}

// StubFetcher is a test double for the snapshot refresher's fetcher.
type StubFetcher struct {
	Snapshot domain.Snapshot
	Err      error
	Calls    atomic.Int32
	Notify   chan struct{}
}

// FetchSnapshot returns the configured snapshot and error.
func (s *StubFetcher) FetchSnapshot(ctx context.Context, eventID string) (domain.Snapshot, error) {
	_ = ctx
	_ = eventID
	if s.Notify != nil {
		select {
		case <-s.Notify:
		default:
			close(s.Notify)
		}
	}
	s.Calls.Add(1)
	return s.Snapshot, s.Err
}

// StubRoundTripper serves canned responses for transport tests.
type StubRoundTripper struct {
	// Handler builds the response for each request. When nil, Err is
	// returned for every request.
	Handler func(req *http.Request) (*http.Response, error)
	Err     error

	mu       sync.Mutex
	requests []*http.Request
}

// RoundTrip records the request and delegates to Handler.
func (s *StubRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.Handler == nil {
		return nil, s.Err
	}
	return s.Handler(req)
}

// Requests returns a copy of the observed requests in order.
func (s *StubRoundTripper) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}
