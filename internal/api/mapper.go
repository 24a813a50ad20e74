package api

import (
	"archery-scoring-service/internal/domain"
	"archery-scoring-service/internal/scoring"
)

func mapSnapshot(payload snapshotResponse) domain.Snapshot {
	snap := domain.Snapshot{
		Event: domain.Event{
			ID:    payload.Event.ID,
			Name:  payload.Event.Name,
			Venue: payload.Event.Venue,
			Date:  payload.Event.Date,
		},
		Divisions: make([]domain.Division, 0, len(payload.Divisions)),
	}
	for _, d := range payload.Divisions {
		snap.Divisions = append(snap.Divisions, mapDivision(d))
	}
	return snap
}

func mapDivision(payload divisionPayload) domain.Division {
	div := domain.Division{
		Name:         payload.Name,
		Participants: make([]domain.Participant, 0, len(payload.Participants)),
	}
	for _, p := range payload.Participants {
		div.Participants = append(div.Participants, mapParticipant(p))
	}
	return div
}

func mapParticipant(payload participantPayload) domain.Participant {
	p := domain.Participant{
		ID:     payload.ID,
		Name:   payload.Name,
		School: payload.School,
		Ends:   make([]domain.ScoredEnd, 0, len(payload.Ends)),
	}
	for _, e := range payload.Ends {
		end := domain.ScoredEnd{Number: e.Number, Arrows: e.Arrows, Total: endTotal(e.Arrows)}
		p.Ends = append(p.Ends, end)
		p.Total += end.Total
	}
	return p
}

func endTotal(arrows []scoring.Arrow) int {
	total := 0
	for _, a := range arrows {
		total += a.Value()
	}
	return total
}
