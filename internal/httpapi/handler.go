// Package httpapi serves the device-local HTTP surface: scorecard
// operations for the scoring UI plus sync and snapshot status.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"archery-scoring-service/internal/ledger"
	"archery-scoring-service/internal/poller"
	"archery-scoring-service/internal/scorecard"
	"archery-scoring-service/internal/store"
	"archery-scoring-service/internal/syncq"
)

// Handler wires HTTP routes to the scorecard coordinator and the sync
// plumbing. Any dependency may be nil; the matching endpoints then
// report unavailable instead of panicking.
type Handler struct {
	cards        *scorecard.Coordinator
	queue        *syncq.Queue
	kv           store.KV
	pollerStatus func() poller.Status
	logger       *slog.Logger
}

// New constructs a Handler.
func New(cards *scorecard.Coordinator, queue *syncq.Queue, kv store.KV, pollerStatus func() poller.Status, logger *slog.Logger) *Handler {
	return &Handler{
		cards:        cards,
		queue:        queue,
		kv:           kv,
		pollerStatus: pollerStatus,
		logger:       logger,
	}
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports whether the service can do useful work. Scoring is
// local-first, so readiness only degrades when snapshot polling is on
// and persistently failing.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ready := true
	if h.pollerStatus != nil {
		ready = h.pollerStatus().IsReady()
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{"ready": ready}, h.logger)
}

type statusResponse struct {
	Sync     syncq.Status   `json:"sync"`
	Snapshot *poller.Status `json:"snapshot,omitempty"`
}

// SyncStatus exposes the queue and snapshot state the UI renders: how
// many mutations still wait for the network, and what last went wrong.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, r, http.StatusServiceUnavailable, "sync disabled", h.logger)
		return
	}
	resp := statusResponse{Sync: h.queue.Status()}
	if h.pollerStatus != nil {
		st := h.pollerStatus()
		resp.Snapshot = &st
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// Snapshot serves the last leaderboard snapshot persisted for an event.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.kv == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no snapshot store", h.logger)
		return
	}
	eventID := mux.Vars(r)["event"]
	snap, ok, err := poller.ReadSnapshot(h.kv, eventID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read snapshot", h.logger)
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "no snapshot for event", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, snap, h.logger)
}

type openSessionRequest struct {
	Participant string `json:"participant"`
	Event       string `json:"event"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	Division    string `json:"division"`
}

// OpenSession opens (or reopens) a scorecard session.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	if h.cards == nil {
		writeError(w, r, http.StatusServiceUnavailable, "scoring disabled", h.logger)
		return
	}
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body", h.logger)
		return
	}
	if req.Participant == "" || req.Event == "" || req.Date == "" {
		writeError(w, r, http.StatusBadRequest, "participant, event, and date are required", h.logger)
		return
	}

	key := ledger.SessionKey{Participant: req.Participant, Event: req.Event, Date: req.Date}
	card, err := h.cards.Open(r.Context(), key, req.Name, req.Affiliation, req.Division)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, card, h.logger)
}

// GetCard returns the persisted scorecard for a session.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	if h.cards == nil {
		writeError(w, r, http.StatusServiceUnavailable, "scoring disabled", h.logger)
		return
	}
	card, ok, err := h.cards.Card(sessionKeyFromVars(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load scorecard", h.logger)
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "no such session", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, card, h.logger)
}

type recordArrowRequest struct {
	Value string `json:"value"`
}

type recordArrowResponse struct {
	End          int            `json:"end"`
	Summary      ledger.Summary `json:"summary"`
	RunningTotal int            `json:"runningTotal"`
}

// RecordArrow scores one arrow on an open session. End and arrow
// positions are one-based in the URL, matching the paper card.
func (h *Handler) RecordArrow(w http.ResponseWriter, r *http.Request) {
	if h.cards == nil {
		writeError(w, r, http.StatusServiceUnavailable, "scoring disabled", h.logger)
		return
	}
	vars := mux.Vars(r)
	endNum, err1 := strconv.Atoi(vars["end"])
	arrowNum, err2 := strconv.Atoi(vars["arrow"])
	if err1 != nil || err2 != nil || endNum < 1 || arrowNum < 1 {
		writeError(w, r, http.StatusBadRequest, "end and arrow must be positive integers", h.logger)
		return
	}
	var req recordArrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body", h.logger)
		return
	}

	key := sessionKeyFromVars(r)
	summary, err := h.cards.RecordArrow(r.Context(), key, endNum-1, arrowNum-1, req.Value)
	switch {
	case errors.Is(err, scorecard.ErrNoSession):
		writeError(w, r, http.StatusNotFound, "no such session", h.logger)
		return
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		writeError(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "failed to record arrow", h.logger)
		return
	}

	resp := recordArrowResponse{End: endNum, Summary: summary}
	if card, ok, err := h.cards.Card(key); err == nil && ok {
		resp.RunningTotal = card.RunningTotal(endNum - 1)
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// CloseSession discards a finished session.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if h.cards == nil {
		writeError(w, r, http.StatusServiceUnavailable, "scoring disabled", h.logger)
		return
	}
	if err := h.cards.Close(sessionKeyFromVars(r)); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to close session", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionKeyFromVars(r *http.Request) ledger.SessionKey {
	vars := mux.Vars(r)
	return ledger.SessionKey{
		Participant: vars["participant"],
		Event:       vars["event"],
		Date:        vars["date"],
	}
}
