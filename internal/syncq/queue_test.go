package syncq_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"archery-scoring-service/internal/store"
	"archery-scoring-service/internal/syncq"
	"archery-scoring-service/internal/teststubs"
)

func newTask(t *testing.T, kind syncq.Kind, path string, payload any) syncq.Task {
	t.Helper()
	task, err := syncq.NewTask(kind, "POST", path, payload)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	return task
}

func newQueue(t *testing.T, kv store.KV, sender syncq.Sender) *syncq.Queue {
	t.Helper()
	q, err := syncq.New(kv, sender, nil, nil, time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

func TestFlushDeliversInOrder(t *testing.T) {
	sender := &teststubs.StubSender{}
	q := newQueue(t, store.NewMemory(), sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var want []string
	for _, path := range []string{"/rounds", "/rounds/r/participants", "/rounds/r/participants/p/ends/1"} {
		task := newTask(t, syncq.KindPostEnd, path, nil)
		want = append(want, task.ID)
		if err := q.Enqueue(ctx, task); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForDrain(t, q)

	calls := sender.Calls()
	if len(calls) != len(want) {
		t.Fatalf("delivered %d tasks, want %d", len(calls), len(want))
	}
	for i, call := range calls {
		if call.ID != want[i] {
			t.Fatalf("call %d = %s, want %s (reordered?)", i, call.ID, want[i])
		}
	}
	if st := q.Status(); st.Pending != 0 || st.Dead != 0 {
		t.Fatalf("status after drain = %+v", st)
	}
}

func waitForDrain(t *testing.T, q *syncq.Queue) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := q.Status()
		if st.Pending == 0 && !st.Flushing {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("queue did not drain: %+v", q.Status())
}

// blockingSender parks inside Send until released, to observe the
// single-flight guard.
type blockingSender struct {
	entered chan struct{}
	release chan struct{}
	inSend  atomic.Int32
	maxSeen atomic.Int32
	once    sync.Once
}

func (s *blockingSender) Send(ctx context.Context, t syncq.Task) (syncq.Result, error) {
	n := s.inSend.Add(1)
	defer s.inSend.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if n <= prev || s.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return syncq.Result{}, nil
}

func TestFlushIsSingleFlight(t *testing.T) {
	sender := &blockingSender{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	q := newQueue(t, store.NewMemory(), sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Enqueue(ctx, newTask(t, syncq.KindCreateRound, "/rounds", nil)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-sender.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first flush to start")
	}

	// A concurrent flush must observe the in-flight loop and return
	// without starting a second one.
	done := make(chan error, 1)
	go func() { done <- q.Flush(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("concurrent Flush = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent Flush blocked behind the in-flight one")
	}

	close(sender.release)
	waitForDrain(t, q)

	if got := sender.maxSeen.Load(); got != 1 {
		t.Fatalf("max concurrent Send = %d, want 1", got)
	}
}

func TestTransientFailureRetriesUntilSuccess(t *testing.T) {
	sender := &teststubs.StubSender{FailTimes: 3}
	q := newQueue(t, store.NewMemory(), sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := newTask(t, syncq.KindPostEnd, "/rounds/r/participants/p/ends/2", nil)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForDrain(t, q)

	if got := int(sender.Attempts.Load()); got < 4 {
		t.Fatalf("attempts = %d, want at least 4 (3 failures + success)", got)
	}
	for _, call := range sender.Calls() {
		if call.ID != task.ID {
			t.Fatalf("retried a different task: %s", call.ID)
		}
	}
	st := q.Status()
	if st.Pending != 0 || st.LastError != "" {
		t.Fatalf("status after recovery = %+v", st)
	}
	if st.LastSuccess.IsZero() {
		t.Fatal("LastSuccess not recorded")
	}
}

func TestAbandonedFlushLeavesHeadQueued(t *testing.T) {
	sender := &teststubs.StubSender{FailTimes: 1 << 30}
	kv := store.NewMemory()
	q := newQueue(t, kv, sender)

	bg, cancelBg := context.WithCancel(context.Background())
	task := newTask(t, syncq.KindPostEnd, "/rounds/r/participants/p/ends/3", nil)
	if err := q.Enqueue(bg, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = q.Flush(ctx)
	cancelBg()
	waitForIdle(t, q)

	pending := q.Pending()
	if len(pending) != 1 || pending[0].ID != task.ID {
		t.Fatalf("pending = %+v, want the original head", pending)
	}
	if st := q.Status(); st.LastError == "" {
		t.Fatal("expected LastError after failed attempts")
	}
}

func waitForIdle(t *testing.T, q *syncq.Queue) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !q.Status().Flushing {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("flush never became idle")
}

func TestPermanentRejectionDeadLetters(t *testing.T) {
	sender := &teststubs.StubSender{
		FailTimes: 1,
		Err:       &teststubs.PermanentStubError{Message: "duplicate end number"},
	}
	q := newQueue(t, store.NewMemory(), sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bad := newTask(t, syncq.KindPostEnd, "/rounds/r/participants/p/ends/1", nil)
	good := newTask(t, syncq.KindPostEnd, "/rounds/r/participants/p/ends/2", nil)
	if err := q.Enqueue(ctx, bad); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, good); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForDrain(t, q)

	dead := q.DeadLetters()
	if len(dead) != 1 || dead[0].ID != bad.ID {
		t.Fatalf("dead letters = %+v, want the rejected task", dead)
	}
	if dead[0].LastError == "" || dead[0].Attempts == 0 {
		t.Fatalf("dead letter missing diagnostics: %+v", dead[0])
	}
	if st := q.Status(); st.Pending != 0 || st.Dead != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestRestartResumesExactPendingTasks(t *testing.T) {
	kv := store.NewMemory()
	failing := &teststubs.StubSender{FailTimes: 1 << 30}

	q1 := newQueue(t, kv, failing)
	crashed, cancelCrashed := context.WithCancel(context.Background())
	cancelCrashed() // background flushes die immediately, as in a crash

	first := newTask(t, syncq.KindCreateRound, "/rounds", nil)
	second := newTask(t, syncq.KindPostEnd, "/rounds/r/participants/p/ends/1", nil)
	if err := q1.Enqueue(crashed, first); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q1.Enqueue(crashed, second); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitForIdle(t, q1)

	// "Restart": a fresh queue over the same durable store.
	sender := &teststubs.StubSender{}
	q2 := newQueue(t, kv, sender)

	pending := q2.Pending()
	if len(pending) != 2 || pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatalf("pending after restart = %+v, want both tasks in order", pending)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := q2.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForDrain(t, q2)

	calls := sender.Calls()
	if len(calls) != 2 || calls[0].ID != first.ID || calls[1].ID != second.ID {
		t.Fatalf("delivered = %+v, want both tasks once, in order", calls)
	}

	// A second restart finds an empty queue: no duplicated entries.
	q3 := newQueue(t, kv, sender)
	if got := q3.Pending(); len(got) != 0 {
		t.Fatalf("pending after drain+restart = %+v, want none", got)
	}
}

func TestServerIDResolutionRewritesPendingTasks(t *testing.T) {
	participantRef := syncq.LocalRef()
	sender := &teststubs.StubSender{
		AssignFn: func(task syncq.Task) syncq.Result {
			if task.Kind == syncq.KindRegisterParticipant {
				return syncq.Result{AssignedID: "srv-42"}
			}
			return syncq.Result{}
		},
	}
	kv := store.NewMemory()
	q := newQueue(t, kv, sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	register := newTask(t, syncq.KindRegisterParticipant, "/rounds/r/participants", map[string]string{"name": "Robin"})
	register.ProducesRef = participantRef
	postEnd := newTask(t, syncq.KindPostEnd,
		"/rounds/r/participants/"+participantRef+"/ends/1",
		map[string]string{"participant": participantRef},
	)

	if err := q.Enqueue(ctx, register); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, postEnd); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForDrain(t, q)

	calls := sender.Calls()
	if len(calls) != 2 {
		t.Fatalf("delivered %d tasks, want 2", len(calls))
	}
	delivered := calls[1]
	if strings.Contains(delivered.Path, participantRef) {
		t.Fatalf("path still carries placeholder: %s", delivered.Path)
	}
	if !strings.Contains(delivered.Path, "srv-42") {
		t.Fatalf("path not rewritten to server id: %s", delivered.Path)
	}
	var payload map[string]string
	if err := json.Unmarshal(delivered.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["participant"] != "srv-42" {
		t.Fatalf("payload participant = %q, want srv-42", payload["participant"])
	}

	// The correlation map survives a restart for later sessions.
	q2 := newQueue(t, kv, sender)
	late := newTask(t, syncq.KindPostEnd, "/rounds/r/participants/"+participantRef+"/ends/2", nil)
	if err := q2.Enqueue(ctx, late); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q2.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForDrain(t, q2)

	all := sender.Calls()
	lateCall := all[len(all)-1]
	if !strings.Contains(lateCall.Path, "srv-42") {
		t.Fatalf("post-restart path not resolved: %s", lateCall.Path)
	}
}

func TestIsPermanent(t *testing.T) {
	if syncq.IsPermanent(errors.New("plain")) {
		t.Fatal("plain error classified permanent")
	}
	if !syncq.IsPermanent(&teststubs.PermanentStubError{Message: "no"}) {
		t.Fatal("permanent error not recognized")
	}
}
