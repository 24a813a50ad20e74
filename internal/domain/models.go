// Package domain holds the canonical tournament shapes exchanged with
// the remote API and handed to render layers as plain data.
package domain

import "archery-scoring-service/internal/scoring"

// Event is the tournament metadata carried on every snapshot.
type Event struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Venue string `json:"venue,omitempty"`
	Date  string `json:"date"`
}

// ScoredEnd is one completed end as the server reports it.
type ScoredEnd struct {
	Number int             `json:"number"`
	Arrows []scoring.Arrow `json:"arrows"`
	Total  int             `json:"total"`
}

// Participant is one archer's line on the leaderboard.
type Participant struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	School string      `json:"school,omitempty"`
	Ends   []ScoredEnd `json:"ends"`
	Total  int         `json:"total"`
}

// Division groups the participants competing against each other.
type Division struct {
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}

// Snapshot is the full read-side view of an event. Stale is set when
// the payload was served from cache because the network was down; it is
// presentation state, not server state.
type Snapshot struct {
	Event     Event      `json:"event"`
	Divisions []Division `json:"divisions"`
	Stale     bool       `json:"stale,omitempty"`
}
