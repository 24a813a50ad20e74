package ledger

import (
	"encoding/json"
	"fmt"

	"archery-scoring-service/internal/store"
)

// SessionKey identifies one open scorecard session. It is supplied
// explicitly by the caller; the core never derives it from ambient
// clock or environment state.
type SessionKey struct {
	Participant string
	Event       string
	Date        string
}

// StorageKey is the durable key the session's ledger is stored under.
func (k SessionKey) StorageKey() string {
	return fmt.Sprintf("scorecard/%s/%s/%s", k.Event, k.Date, k.Participant)
}

// SessionStore persists open scorecards so a process restart
// reconstructs in-progress ends exactly.
type SessionStore struct {
	kv store.KV
}

// NewSessionStore wraps a durable KV store.
func NewSessionStore(kv store.KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Save writes the ledger under the session key.
func (s *SessionStore) Save(key SessionKey, l *Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("ledger: encode session %s: %w", key.StorageKey(), err)
	}
	return s.kv.Set(key.StorageKey(), data)
}

// Load reads the ledger stored under the session key. The second return
// is false when no session exists.
func (s *SessionStore) Load(key SessionKey) (*Ledger, bool, error) {
	data, ok, err := s.kv.Get(key.StorageKey())
	if err != nil || !ok {
		return nil, false, err
	}
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, false, fmt.Errorf("ledger: decode session %s: %w", key.StorageKey(), err)
	}
	return &l, true, nil
}

// Delete removes a finished session.
func (s *SessionStore) Delete(key SessionKey) error {
	return s.kv.Delete(key.StorageKey())
}
