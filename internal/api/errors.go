package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a failure worth retrying: a transport error, a
// 5xx, or a 408/429 response.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient failure (status=%d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a rejection that retrying cannot fix, such as a
// validation failure. The sync queue dead-letters these.
type PermanentError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected"
	}
	return fmt.Sprintf("%s: %s (status=%d)", e.Op, msg, e.StatusCode)
}

// Permanent tags the error for the sync queue's dead-letter check.
func (e *PermanentError) Permanent() bool { return true }

// AsPermanent attempts to unwrap an error into a PermanentError.
func AsPermanent(err error) (*PermanentError, bool) {
	var pErr *PermanentError
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}

// classifyStatus maps a response status to the retry taxonomy. 2xx is
// success; 408 and 429 are transient despite being 4xx.
func classifyStatus(op string, status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Op: op, StatusCode: status}
	default:
		return &PermanentError{Op: op, StatusCode: status, Message: body}
	}
}
