// Package view derives what a single visitor sees from the reconciled queue state.
// Everything here is pure and recomputed on every poll; nothing is cached.
package view

import (
	"fmt"

	"github.com/Guizzs26/suya-queue/internal/engine"
	"github.com/Guizzs26/suya-queue/internal/models"
)

// Compute builds the view for the visitor holding own.
// active must be the ascending active queue for serving, as produced by engine.ActiveQueue.
func Compute(active []models.QueueEntry, serving, own string) (models.ClientViewState, error) {
	ownN, err := models.ParseQueueNumber(own)
	if err != nil {
		return models.ClientViewState{}, err
	}
	servingN, err := models.ParseQueueNumber(serving)
	if err != nil {
		return models.ClientViewState{}, fmt.Errorf("serving value: %w", err)
	}

	own = models.FormatQueueNumber(ownN)
	serving = models.FormatQueueNumber(servingN)

	state := models.ClientViewState{
		QueueNumber:   own,
		Serving:       serving,
		PeopleAhead:   max(0, ownN-servingN-1),
		IsCurrentTurn: ownN == servingN,
	}
	state.HasBeenServed = !state.IsCurrentTurn && ownN <= servingN

	for i, e := range active {
		if e.Suffix() == ownN {
			state.Position = i + 1
			break
		}
	}
	return state, nil
}

// FromSnapshot computes the view against one immutable engine snapshot
func FromSnapshot(snap engine.Snapshot, own string) (models.ClientViewState, error) {
	return Compute(snap.Active, snap.Serving, own)
}

// JustCalled is true only on the transition into own's turn, so an alert fires once rather than every poll
func JustCalled(prevServing, curServing, own string) bool {
	ownN, err := models.ParseQueueNumber(own)
	if err != nil {
		return false
	}
	cur, err := models.ParseQueueNumber(curServing)
	if err != nil || cur != ownN {
		return false
	}
	prev, err := models.ParseQueueNumber(prevServing)
	return err != nil || prev != ownN
}
