package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a patch would move a job backwards
	// or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid job state transition")
	// ErrJobNotFound is returned when an update targets an unknown job.
	ErrJobNotFound = errors.New("job not found")
	// ErrPostNotFound and ErrVideoNotFound are returned by entity lookups.
	ErrPostNotFound  = errors.New("post not found")
	ErrVideoNotFound = errors.New("video not found")
	// ErrUnitsExceeded is returned when completed units would pass total units.
	ErrUnitsExceeded = errors.New("completed units exceed total units")
)

var allowedTransitions = map[State][]State{
	StatePending: {StateRunning, StateFailed, StateCancelled},
	StateRunning: {StateCompleted, StateFailed, StateCancelled},
}

// CanTransition reports whether from → to is a legal lifecycle move. Staying in
// running is allowed; every other self-transition is not.
func CanTransition(from, to State) bool {
	if from == StateRunning && to == StateRunning {
		return true
	}
	for _, next := range allowedTransitions[from] {
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
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
