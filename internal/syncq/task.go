// Package syncq delivers locally recorded scoring mutations to the
// remote API: a durable FIFO queue with single-flight flushing,
// constant-delay retry, and local-to-server id resolution.
package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names the logical mutation a task carries.
type Kind string

const (
	KindCreateRound         Kind = "create_round"
	KindRegisterParticipant Kind = "register_participant"
	KindPostEnd             Kind = "post_end"
)

// LocalRef mints a placeholder identifier for a resource that does not
// have a server id yet. Dependent tasks embed the placeholder in their
// path or payload; the queue substitutes the server id once known.
func LocalRef() string {
	return "local:" + uuid.NewString()
}

// Task is one ordered, idempotent-by-construction unit of outbound
// work. Tasks are opaque to the queue except for ProducesRef and any
// embedded local placeholders.
type Task struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	Method  string          `json:"method"`
	Path    string          `json:"path"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// ProducesRef is the local placeholder this task's server response
	// resolves, e.g. a locally assigned participant id.
	ProducesRef string `json:"producesRef,omitempty"`

	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempts   int       `json:"attempts,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
}

// NewTask builds a task with a fresh id, marshaling payload to JSON.
func NewTask(kind Kind, method, path string, payload any) (Task, error) {
	t := Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		Method:     method,
		Path:       path,
		EnqueuedAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Task{}, fmt.Errorf("syncq: encode %s payload: %w", kind, err)
		}
		t.Payload = data
	}
	return t, nil
}

// resolveRefs substitutes every known local placeholder in the task's
// path and payload with its server-assigned id.
func resolveRefs(t Task, refs map[string]string) Task {
	for local, server := range refs {
		t.Path = strings.ReplaceAll(t.Path, local, server)
		if len(t.Payload) > 0 {
			t.Payload = json.RawMessage(strings.ReplaceAll(string(t.Payload), local, server))
		}
	}
	return t
}

// Result is what a successful delivery reports back to the queue.
type Result struct {
	// AssignedID is the server-issued identifier for the resource the
	// task created, when the endpoint returns one.
	AssignedID string
}

// Sender performs the network call for one task. Implementations must
// return an error satisfying IsPermanent for rejections that will never
// succeed on retry.
type Sender interface {
	Send(ctx context.Context, t Task) (Result, error)
}

// IsPermanent reports whether err marks a rejection that retrying
// cannot fix, such as a validation failure.
func IsPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}
