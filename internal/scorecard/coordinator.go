// Package scorecard coordinates open scoring sessions: ledger state,
// durable persistence, and the outbound sync tasks each mutation owes.
package scorecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"archery-scoring-service/internal/api"
	"archery-scoring-service/internal/ledger"
	"archery-scoring-service/internal/logging"
	"archery-scoring-service/internal/scoring"
	"archery-scoring-service/internal/store"
	"archery-scoring-service/internal/syncq"
	"archery-scoring-service/internal/timeutil"
)

// ErrNoSession reports an operation on a session that was never opened.
var ErrNoSession = errors.New("scorecard: no such session")

// Config fixes the card dimensions for sessions this coordinator opens.
type Config struct {
	ArrowsPerEnd int
	EndsPerRound int
}

// Coordinator owns the scorecard sessions of one device. Every mutation
// persists locally first, then enqueues the matching upload task, so
// the card survives a crash even if the upload never happened.
type Coordinator struct {
	mu       sync.Mutex
	kv       store.KV
	sessions *ledger.SessionStore
	queue    *syncq.Queue
	logger   *slog.Logger
	cfg      Config
}

// refRecord ties a session to the local refs minted for its round and
// participant registration. The refs stay valid across restarts; the
// queue resolves them to server ids as uploads land.
type refRecord struct {
	RoundRef       string `json:"roundRef"`
	ParticipantRef string `json:"participantRef"`
}

// New builds a coordinator. A nil queue disables uploads; scoring then
// runs purely local.
func New(kv store.KV, queue *syncq.Queue, logger *slog.Logger, cfg Config) *Coordinator {
	return &Coordinator{
		kv:       kv,
		sessions: ledger.NewSessionStore(kv),
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
	}
}

func roundKey(event, date, division string) string {
	return fmt.Sprintf("scorecard/rounds/%s/%s/%s", event, date, division)
}

func refKey(key ledger.SessionKey) string {
	return "scorecard/refs/" + key.Event + "/" + key.Date + "/" + key.Participant
}

// Open returns the session's ledger, creating it if needed. Opening the
// first session of a division enqueues the round creation; every new
// session enqueues the participant registration, addressed by local
// refs until the server assigns ids.
func (c *Coordinator) Open(ctx context.Context, key ledger.SessionKey, name, affiliation, division string) (*ledger.Ledger, error) {
	date, err := timeutil.NormalizeDate(key.Date)
	if err != nil {
		return nil, fmt.Errorf("scorecard: session date %q: %w", key.Date, err)
	}
	key.Date = date

	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok, err := c.sessions.Load(key); err != nil {
		return nil, err
	} else if ok {
		return l, nil
	}

	roundRef, err := c.ensureRound(ctx, key, division)
	if err != nil {
		return nil, err
	}

	participantRef := syncq.LocalRef()
	rec := refRecord{RoundRef: roundRef, ParticipantRef: participantRef}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("scorecard: encode refs: %w", err)
	}
	if err := c.kv.Set(refKey(key), data); err != nil {
		return nil, err
	}

	l := ledger.New(name, affiliation, c.cfg.EndsPerRound, c.cfg.ArrowsPerEnd)
	if err := c.sessions.Save(key, l); err != nil {
		return nil, err
	}

	task, err := api.RegisterParticipantTask(roundRef, participantRef, name, affiliation)
	if err != nil {
		return nil, err
	}
	if err := c.enqueue(ctx, task); err != nil {
		return nil, err
	}

	logging.Info(c.logger, "session opened",
		slog.String(logging.FieldEvent, key.Event),
		slog.String("participant", key.Participant),
	)
	return l, nil
}

func (c *Coordinator) ensureRound(ctx context.Context, key ledger.SessionKey, division string) (string, error) {
	storageKey := roundKey(key.Event, key.Date, division)
	if data, ok, err := c.kv.Get(storageKey); err != nil {
		return "", err
	} else if ok {
		var rec refRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return "", fmt.Errorf("scorecard: decode round record: %w", err)
		}
		return rec.RoundRef, nil
	}

	roundRef := syncq.LocalRef()
	data, err := json.Marshal(refRecord{RoundRef: roundRef})
	if err != nil {
		return "", fmt.Errorf("scorecard: encode round record: %w", err)
	}
	if err := c.kv.Set(storageKey, data); err != nil {
		return "", err
	}

	task, err := api.CreateRoundTask(roundRef, key.Event, key.Date, division, c.cfg.EndsPerRound, c.cfg.ArrowsPerEnd)
	if err != nil {
		return "", err
	}
	if err := c.enqueue(ctx, task); err != nil {
		return "", err
	}
	return roundRef, nil
}

// RecordArrow scores one arrow on an open session. The ledger is
// persisted before anything else; when the arrow completes its end, the
// end upload is enqueued.
func (c *Coordinator) RecordArrow(ctx context.Context, key ledger.SessionKey, endIndex, arrowIndex int, raw string) (ledger.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok, err := c.sessions.Load(key)
	if err != nil {
		return ledger.Summary{}, err
	}
	if !ok {
		return ledger.Summary{}, fmt.Errorf("%w: %s", ErrNoSession, key.StorageKey())
	}

	if err := l.SetArrow(endIndex, arrowIndex, scoring.Parse(raw)); err != nil {
		return ledger.Summary{}, err
	}
	if err := c.sessions.Save(key, l); err != nil {
		return ledger.Summary{}, err
	}

	end, err := l.EndAt(endIndex)
	if err != nil {
		return ledger.Summary{}, err
	}
	summary := end.Summary()
	if summary.Complete {
		if err := c.uploadEnd(ctx, key, end); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (c *Coordinator) uploadEnd(ctx context.Context, key ledger.SessionKey, end ledger.End) error {
	data, ok, err := c.kv.Get(refKey(key))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: refs for %s", ErrNoSession, key.StorageKey())
	}
	var rec refRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("scorecard: decode refs: %w", err)
	}

	task, err := api.PostEndTask(rec.RoundRef, rec.ParticipantRef, end)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Coordinator) enqueue(ctx context.Context, t syncq.Task) error {
	if c.queue == nil {
		return nil
	}
	return c.queue.Enqueue(ctx, t)
}

// Card returns the persisted ledger for a session, if one exists.
func (c *Coordinator) Card(key ledger.SessionKey) (*ledger.Ledger, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.Load(key)
}

// Close discards a finished session and its ref record. Enqueued
// uploads are unaffected.
func (c *Coordinator) Close(key ledger.SessionKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sessions.Delete(key); err != nil {
		return err
	}
	return c.kv.Delete(refKey(key))
}
