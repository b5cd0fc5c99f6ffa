// Package rowstate tracks the per-booking UI sub-state on pages that act on
// individual rows. Each booking reference owns one small state machine, so
// an in-flight operation on one booking never blocks actions on another.
package rowstate

import "sync"

// State represents the current sub-state of one booking row.
type State string

const (
	StateIdle            State = "idle"
	StateSelectingReason State = "selecting_reason"
	StateCancelling      State = "cancelling"
	StateEditing         State = "editing"
	StateSaving          State = "saving"
)

var transitions = map[State][]State{
	StateIdle:            {StateSelectingReason, StateEditing},
	StateSelectingReason: {StateCancelling, StateIdle},
	StateCancelling:      {StateIdle},
	StateEditing:         {StateSaving, StateIdle},
	StateSaving:          {StateIdle},
}

// CanTransition checks if a transition is allowed.
func CanTransition(from, to State) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Busy reports whether the state has a request outstanding. A busy row must
// not accept another submission until the operation settles.
func (s State) Busy() bool {
	return s == StateCancelling || s == StateSaving
}

// Tracker maps booking references to their row state. References it has
// never seen are idle.
type Tracker struct {
	mu   sync.Mutex
	rows map[string]State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{rows: make(map[string]State)}
}

// Get returns the current state for a reference.
func (t *Tracker) Get(ref string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(ref)
}

func (t *Tracker) get(ref string) State {
	if s, ok := t.rows[ref]; ok {
		return s
	}
	return StateIdle
}

// Transition moves a reference to a new state if the step is allowed.
func (t *Tracker) Transition(ref string, to State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !CanTransition(t.get(ref), to) {
		return false
	}
	t.set(ref, to)
	return true
}

// Begin marks the start of a network operation on a reference. It returns
// false when the row is already busy, which rejects duplicate submissions
// for that booking while leaving other bookings untouched.
func (t *Tracker) Begin(ref string, op State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.get(ref)
	if cur.Busy() {
		return false
	}
	// Allow starting the operation from idle as well: form posts arrive
	// without the intermediate selecting/editing step having been tracked.
	if !CanTransition(cur, op) && cur != StateIdle {
		return false
	}
	t.set(ref, op)
	return true
}

// End settles a reference back to idle regardless of outcome.
func (t *Tracker) End(ref string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, ref)
}

func (t *Tracker) set(ref string, s State) {
	if s == StateIdle {
		delete(t.rows, ref)
		return
	}
	t.rows[ref] = s
}
