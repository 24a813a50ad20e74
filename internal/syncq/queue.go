package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"archery-scoring-service/internal/logging"
	"archery-scoring-service/internal/metrics"
	"archery-scoring-service/internal/store"
)

const stateKey = "syncq/state/v1"

const (
	defaultRetryDelay    = 15 * time.Second
	defaultFlushInterval = 30 * time.Second
)

// state is the durable shape of the queue. It is rewritten after every
// enqueue and after every completed or dead-lettered task so a restart
// resumes with no lost or duplicated entries.
type state struct {
	Tasks []Task            `json:"tasks"`
	Refs  map[string]string `json:"refs,omitempty"`
	Dead  []Task            `json:"dead,omitempty"`
}

// Status is the observable health of the queue, surfaced to the UI
// instead of hard sync failures.
type Status struct {
	Pending     int       `json:"pending"`
	Dead        int       `json:"dead"`
	Flushing    bool      `json:"flushing"`
	LastError   string    `json:"lastError,omitempty"`
	LastAttempt time.Time `json:"lastAttempt,omitempty"`
	LastSuccess time.Time `json:"lastSuccess,omitempty"`
}

// Queue owns the persisted task queue and its correlation map. All
// access to that state goes through Enqueue and Flush.
type Queue struct {
	kv      store.KV
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Recorder

	retryDelay    time.Duration
	flushInterval time.Duration
	notify        chan struct{}

	mu       sync.Mutex
	st       state
	flushing bool

	lastError   string
	lastAttempt time.Time
	lastSuccess time.Time
}

// New loads any persisted queue state from kv and returns a queue
// ready to enqueue and flush. retryDelay is the constant delay between
// delivery retries; zero selects the default.
func New(kv store.KV, sender Sender, logger *slog.Logger, recorder *metrics.Recorder, retryDelay time.Duration) (*Queue, error) {
	if kv == nil {
		return nil, errors.New("syncq: nil store")
	}
	if sender == nil {
		return nil, errors.New("syncq: nil sender")
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	q := &Queue{
		kv:            kv,
		sender:        sender,
		logger:        logger,
		metrics:       recorder,
		retryDelay:    retryDelay,
		flushInterval: defaultFlushInterval,
		notify:        make(chan struct{}, 1),
	}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

// SetFlushInterval overrides the steady flush interval used by Run.
// Call it before Run; it is not safe to change afterwards.
func (q *Queue) SetFlushInterval(d time.Duration) {
	if d > 0 {
		q.flushInterval = d
	}
}

func (q *Queue) load() error {
	data, ok, err := q.kv.Get(stateKey)
	if err != nil {
		return fmt.Errorf("syncq: load state: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, &q.st); err != nil {
			return fmt.Errorf("syncq: decode state: %w", err)
		}
	}
	if q.st.Refs == nil {
		q.st.Refs = make(map[string]string)
	}
	return nil
}

// persist writes the full queue state. Callers hold q.mu.
func (q *Queue) persist() error {
	data, err := json.Marshal(q.st)
	if err != nil {
		return fmt.Errorf("syncq: encode state: %w", err)
	}
	if err := q.kv.Set(stateKey, data); err != nil {
		return fmt.Errorf("syncq: persist state: %w", err)
	}
	return nil
}

// Enqueue durably appends the task and immediately attempts a flush.
// Callers must enqueue dependent tasks in dependency order; the queue
// never reorders.
func (q *Queue) Enqueue(ctx context.Context, t Task) error {
	q.mu.Lock()
	q.st.Tasks = append(q.st.Tasks, t)
	err := q.persist()
	pending := len(q.st.Tasks)
	q.mu.Unlock()
	if err != nil {
		return err
	}

	q.metrics.RecordQueueDepth(pending)
	logging.Info(q.logger, "task enqueued",
		slog.String(logging.FieldTask, string(t.Kind)),
		slog.Int(logging.FieldPending, pending),
	)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	go func() { _ = q.Flush(ctx) }()
	return nil
}

// Flush drains the queue strictly head-to-tail. Only one flush loop
// runs at a time; a concurrent call observes the in-flight flush and
// returns immediately. A task is removed only after a confirmed
// success, so delivery is at-least-once and the server must treat
// repeated submissions of the same logical mutation as overwrites.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return nil
	}
	q.flushing = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	for {
		q.mu.Lock()
		if len(q.st.Tasks) == 0 {
			q.mu.Unlock()
			return nil
		}
		head := resolveRefs(q.st.Tasks[0], q.st.Refs)
		q.mu.Unlock()

		res, attempts, err := q.deliver(ctx, head)
		switch {
		case err == nil:
			q.completeHead(res)
		case IsPermanent(err):
			q.deadLetterHead(attempts, err)
		default:
			// Retry abandoned (context cancelled). The head stays
			// queued so ordering survives for the next flush.
			return err
		}
	}
}

// deliver retries one task with a constant delay until it succeeds, is
// rejected permanently, or the context is cancelled. The delay is
// deliberately flat: a device can sit offline for a whole match and
// the queue just keeps knocking.
func (q *Queue) deliver(ctx context.Context, t Task) (Result, int, error) {
	var res Result
	attempts := 0

	op := func() error {
		attempts++
		start := time.Now()
		r, err := q.sender.Send(ctx, t)
		q.metrics.RecordSyncAttempt(string(t.Kind), time.Since(start), err)
		q.noteAttempt(err)
		if err != nil {
			if IsPermanent(err) {
				return backoff.Permanent(err)
			}
			logging.Warn(q.logger, "task delivery failed, will retry",
				slog.String(logging.FieldTask, string(t.Kind)),
				slog.Int(logging.FieldAttempt, attempts),
				slog.String(logging.FieldError, err.Error()),
			)
			return err
		}
		res = r
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(q.retryDelay), ctx)
	err := backoff.Retry(op, policy)
	return res, attempts, err
}

// completeHead removes the delivered head, records any server-assigned
// id, and rewrites the placeholders of every still-pending task before
// it can be attempted.
func (q *Queue) completeHead(res Result) {
	q.mu.Lock()
	head := q.st.Tasks[0]
	q.st.Tasks = q.st.Tasks[1:]
	if head.ProducesRef != "" && res.AssignedID != "" {
		q.st.Refs[head.ProducesRef] = res.AssignedID
		for i := range q.st.Tasks {
			q.st.Tasks[i] = resolveRefs(q.st.Tasks[i], q.st.Refs)
		}
	}
	if err := q.persist(); err != nil {
		logging.Error(q.logger, "persist after dequeue failed", err)
	}
	q.lastSuccess = time.Now()
	q.lastError = ""
	pending := len(q.st.Tasks)
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(pending)
	logging.Info(q.logger, "task delivered",
		slog.String(logging.FieldTask, string(head.Kind)),
		slog.Int(logging.FieldPending, pending),
	)
}

// deadLetterHead parks a permanently rejected head so the rest of the
// queue can proceed. Dead tasks are kept durably for inspection rather
// than retried forever.
func (q *Queue) deadLetterHead(attempts int, cause error) {
	q.mu.Lock()
	head := q.st.Tasks[0]
	q.st.Tasks = q.st.Tasks[1:]
	head.Attempts = attempts
	head.LastError = cause.Error()
	q.st.Dead = append(q.st.Dead, head)
	if err := q.persist(); err != nil {
		logging.Error(q.logger, "persist after dead-letter failed", err)
	}
	pending := len(q.st.Tasks)
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(pending)
	logging.Error(q.logger, "task rejected permanently, dead-lettered", cause,
		slog.String(logging.FieldTask, string(head.Kind)),
		slog.Int(logging.FieldAttempt, attempts),
	)
}

func (q *Queue) noteAttempt(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastAttempt = time.Now()
	if err != nil {
		q.lastError = err.Error()
	}
}

// Run flushes on enqueue notifications and on a steady interval until
// the context is cancelled. It is the daemon-side retry driver; library
// callers may instead call Flush directly.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	_ = q.Flush(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
			_ = q.Flush(ctx)
		case <-ticker.C:
			_ = q.Flush(ctx)
		}
	}
}

// Status reports the queue's observable state.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Pending:     len(q.st.Tasks),
		Dead:        len(q.st.Dead),
		Flushing:    q.flushing,
		LastError:   q.lastError,
		LastAttempt: q.lastAttempt,
		LastSuccess: q.lastSuccess,
	}
}

// Pending returns a copy of the queued tasks, head first.
func (q *Queue) Pending() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.st.Tasks))
	copy(out, q.st.Tasks)
	return out
}

// DeadLetters returns a copy of the permanently rejected tasks.
func (q *Queue) DeadLetters() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.st.Dead))
	copy(out, q.st.Dead)
	return out
}
