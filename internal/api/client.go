// Package api is the HTTP client for the remote tournament service. It
// executes queued mutations for the sync queue and fetches leaderboard
// snapshots for display.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"archery-scoring-service/internal/domain"
	"archery-scoring-service/internal/syncq"
)

// Config controls how the client reaches the tournament API. All values
// come from the caller; nothing is hard-coded here.
type Config struct {
	BaseURL    string
	Passcode   string
	HTTPClient *http.Client
}

// Client talks to the tournament API. It implements syncq.Sender.
type Client struct {
	baseURL    string
	passcode   string
	httpClient httpDoer
}

// NewClient constructs a client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		passcode:   cfg.Passcode,
		httpClient: resolveHTTPClient(cfg.HTTPClient),
	}
}

// Send executes one queued task against the API. Transport failures
// and 5xx/408/429 responses come back as TransientError so the queue
// retries; other non-2xx responses come back as PermanentError.
func (c *Client) Send(ctx context.Context, t syncq.Task) (syncq.Result, error) {
	op := "api: " + string(t.Kind)

	var body io.Reader
	if len(t.Payload) > 0 {
		body = bytes.NewReader(t.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, t.Method, c.baseURL+t.Path, body)
	if err != nil {
		return syncq.Result{}, &PermanentError{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.passcode != "" {
		req.Header.Set("X-Passcode", c.passcode)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return syncq.Result{}, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := classifyStatus(op, resp.StatusCode, strings.TrimSpace(string(raw))); err != nil {
		return syncq.Result{}, err
	}

	var created createdResponse
	if len(raw) > 0 {
		// A body without an id field is fine; not every endpoint
		// creates a resource.
		_ = json.Unmarshal(raw, &created)
	}
	return syncq.Result{AssignedID: created.ID}, nil
}

// FetchSnapshot retrieves the full read-side view of an event. When the
// response was served from the local cache because the network was
// down, the snapshot is marked stale.
func (c *Client) FetchSnapshot(ctx context.Context, eventID string) (domain.Snapshot, error) {
	op := "api: fetch_snapshot"

	u := fmt.Sprintf("%s/events/%s/snapshot", c.baseURL, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Snapshot{}, &PermanentError{Op: op, Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Snapshot{}, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Snapshot{}, classifyStatus(op, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	snap := mapSnapshot(payload)
	snap.Stale = resp.Header.Get("X-Cache-Status") == "stale"
	return snap, nil
}
