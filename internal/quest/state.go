package quest

import (
	"errors"
	"fmt"
)

// TaskID identifies a quest task.
type TaskID int

// ItemID identifies an inventory item.
type ItemID int

// State is the lifecycle state of a task.
type State int

const (
	StateNew      State = iota // Not yet accepted
	StateAccepted              // Accepted and in progress
	StateFinished              // Objective done, not yet handed in
	StateEnd                   // Handed in, terminal
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateAccepted:
		return "accepted"
	case StateFinished:
		return "finished"
	case StateEnd:
		return "end"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Running reports whether the state counts as an active task.
func (s State) Running() bool {
	return s == StateAccepted || s == StateFinished
}

// ErrInvalidTransition is returned by Advance for out-of-order state changes.
var ErrInvalidTransition = errors.New("invalid task state transition")

// next maps each state to the only state it may advance to.
var next = map[State]State{
	StateNew:      StateAccepted,
	StateAccepted: StateFinished,
	StateFinished: StateEnd,
}

// TransitionError describes a rejected Advance call.
type TransitionError struct {
	TaskID TaskID
	From   State
	To     State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %d: cannot move from %s to %s", e.TaskID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Next returns the state that follows s, or false when s is terminal.
func (s State) Next() (State, bool) {
	n, ok := next[s]
	return n, ok
}
