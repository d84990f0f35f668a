package pairing

// State is the position of one pairing attempt.
//
//	idle -> starting -> started -> confirming -> confirmed -> persisting -> done
//
// Any state may move to failed. Attempts are single-shot: a retry is a new
// attempt starting from idle.
type State string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateStarted    State = "started"
	StateConfirming State = "confirming"
	StateConfirmed  State = "confirmed"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// next lists the only forward transition out of each non-terminal state.
var next = map[State]State{
	StateIdle:       StateStarting,
	StateStarting:   StateStarted,
	StateStarted:    StateConfirming,
	StateConfirming: StateConfirmed,
	StateConfirmed:  StatePersisting,
	StatePersisting: StateDone,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// canTransition reports whether from -> to is a legal move.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[from] == to
}
