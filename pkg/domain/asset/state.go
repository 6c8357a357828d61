package asset

import (
	"fmt"
	"slices"
	"sync"
)

// State is the lifecycle state of a single asset during a run.
type State string

const (
	StatePending    State = "Pending"
	StateValidating State = "Validating"
	StateValidated  State = "Validated"
	StateRejected   State = "Rejected"
	StateSyncing    State = "Syncing"
	StateApplied    State = "Applied"
	StateFailed     State = "Failed"
)

var transitions = map[State][]State{
	StatePending:    {StateValidating},
	StateValidating: {StateValidated, StateRejected},
	StateValidated:  {StateSyncing},
	StateSyncing:    {StateApplied, StateFailed},
}

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateApplied || s == StateFailed
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s State) CanTransitionTo(next State) bool {
	return slices.Contains(transitions[s], next)
}

// Tracker records the state of every asset of a run. It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	states map[Key]State
}

// NewTracker creates a Tracker with every key Pending.
func NewTracker(keys []Key) *Tracker {
	states := make(map[Key]State, len(keys))
	for _, key := range keys {
		states[key] = StatePending
	}
	return &Tracker{states: states}
}

// Transition moves an asset to the next state.
func (t *Tracker) Transition(key Key, next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.states[key]
	if !ok {
		return fmt.Errorf("%w: %s is not tracked", ErrInvalidTransition, key)
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, key, current, next)
	}
	t.states[key] = next
	return nil
}

// State returns the current state of an asset.
func (t *Tracker) State(key Key) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[key]
	return s, ok
}

// Count returns how many assets are in the given state.
func (t *Tracker) Count(state State) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, s := range t.states {
		if s == state {
			n++
		}
	}
	return n
}
