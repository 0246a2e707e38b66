// Package pipeline drives one CI run: decide whether the workflow triggers,
// build the site, and publish it when the event allows. Each run is a small
// state machine whose transitions are recorded in the run history.
package pipeline

import (
	"fmt"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

// State is the state of a run.
type State string

const (
	StatePending    State = "pending"
	StateBuilding   State = "building"
	StatePublishing State = "publishing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateSkipped    State = "skipped"
)

var transitions = map[State][]State{
	"":              {StatePending},
	StatePending:    {StateBuilding, StateSkipped, StateFailed},
	StateBuilding:   {StatePublishing, StateSucceeded, StateFailed},
	StatePublishing: {StateSucceeded, StateFailed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if CanTransition(from, to) {
		return nil
	}
	return errors.InternalError(fmt.Sprintf("invalid run transition %q -> %q", from, to)).Build()
}
