package api

import "archery-scoring-service/internal/scoring"

// Wire shapes for the tournament API. The client maps these to domain
// models rather than exposing them.

type createRoundRequest struct {
	Event      string `json:"event"`
	Date       string `json:"date"`
	Division   string `json:"division"`
	EndCount   int    `json:"endCount"`
	ArrowsEach int    `json:"arrowsEach"`
}

type registerParticipantRequest struct {
	Name   string `json:"name"`
	School string `json:"school,omitempty"`
}

type postEndRequest struct {
	EndNumber int             `json:"endNumber"`
	Arrows    []scoring.Arrow `json:"arrows"`
	Total     int             `json:"total"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type snapshotResponse struct {
	Event     eventPayload      `json:"event"`
	Divisions []divisionPayload `json:"divisions"`
}

type eventPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Venue string `json:"venue"`
	Date  string `json:"date"`
}

type divisionPayload struct {
	Name         string               `json:"name"`
	Participants []participantPayload `json:"participants"`
}

type participantPayload struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	School string       `json:"school"`
	Ends   []endPayload `json:"ends"`
}

type endPayload struct {
	Number int             `json:"number"`
	Arrows []scoring.Arrow `json:"arrows"`
}
