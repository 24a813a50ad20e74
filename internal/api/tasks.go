package api

import (
	"fmt"
	"net/http"

	"archery-scoring-service/internal/ledger"
	"archery-scoring-service/internal/syncq"
)

// Task builders keep endpoint paths and payload shapes in one place.
// Callers mint local refs with syncq.LocalRef and enqueue dependent
// tasks in dependency order; the queue substitutes server ids later.

// CreateRoundTask creates a scoring round. roundRef is the local
// placeholder the server-assigned round id will resolve.
func CreateRoundTask(roundRef, event, date, division string, endCount, arrowsEach int) (syncq.Task, error) {
	t, err := syncq.NewTask(syncq.KindCreateRound, http.MethodPost, "/rounds", createRoundRequest{
		Event:      event,
		Date:       date,
		Division:   division,
		EndCount:   endCount,
		ArrowsEach: arrowsEach,
	})
	if err != nil {
		return syncq.Task{}, err
	}
	t.ProducesRef = roundRef
	return t, nil
}

// RegisterParticipantTask registers an archer on a round. The round may
// still be a local placeholder when this is enqueued.
func RegisterParticipantTask(roundRef, participantRef, name, school string) (syncq.Task, error) {
	t, err := syncq.NewTask(syncq.KindRegisterParticipant, http.MethodPost,
		fmt.Sprintf("/rounds/%s/participants", roundRef),
		registerParticipantRequest{Name: name, School: school},
	)
	if err != nil {
		return syncq.Task{}, err
	}
	t.ProducesRef = participantRef
	return t, nil
}

// PostEndTask uploads one completed end. PUT keyed by end number makes
// replays of the same logical mutation overwrite, not duplicate.
func PostEndTask(roundRef, participantRef string, end ledger.End) (syncq.Task, error) {
	return syncq.NewTask(syncq.KindPostEnd, http.MethodPut,
		fmt.Sprintf("/rounds/%s/participants/%s/ends/%d", roundRef, participantRef, end.Number),
		postEndRequest{
			EndNumber: end.Number,
			Arrows:    end.Arrows,
			Total:     end.Summary().Total,
		},
	)
}
