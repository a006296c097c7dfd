package fsm

import (
	"fmt"

	"github.com/enetx/g"
)

// ErrConfig is returned for builder misconfiguration: an empty or duplicated
// state set, a missing or doubled storage choice, or a registration call with
// no targets.
type ErrConfig struct {
	Reason string
}

func (e *ErrConfig) Error() string {
	return "fsm: " + e.Reason
}

// ErrUnknownState is returned when a state referenced by a transition,
// callback, or overload registration is not a member of the machine's state
// set. It is detected at declaration time, never at first use.
type ErrUnknownState[S comparable] struct {
	State S
}

func (e *ErrUnknownState[S]) Error() string {
	return fmt.Sprintf("fsm: state %v is not a member of the machine's state set", e.State)
}

// ErrImpossibleTransition is returned when a transition is invoked while the
// owner's current state is not among the transition's sources, or when the
// transition's guard declines. No state is written and no callbacks fire.
type ErrImpossibleTransition[S comparable] struct {
	From    S
	To      S
	Sources g.Slice[S]
}

func (e *ErrImpossibleTransition[S]) Error() string {
	return fmt.Sprintf("fsm: impossible transition to %v: current state %v is not an allowed source %v",
		e.To, e.From, []S(e.Sources))
}

// ErrDuplicateOverload is returned when a dispatcher already has a handler
// registered for the given state. Overloads are declared exactly once; there
// is no silent overwrite.
type ErrDuplicateOverload[S comparable] struct {
	State S
}

func (e *ErrDuplicateOverload[S]) Error() string {
	return fmt.Sprintf("fsm: a handler is already overloaded for state %v", e.State)
}

// ErrForeignTransition is returned when a transition callback registration
// names a transition that was not created by this machine's builder.
type ErrForeignTransition struct {
	Transition string
}

func (e *ErrForeignTransition) Error() string {
	return fmt.Sprintf("fsm: transition %s was not created by this machine", e.Transition)
}

// ErrProtocolViolation is returned on any attempt to assign state directly.
// State changes only through transitions.
type ErrProtocolViolation[S comparable] struct {
	State S
}

func (e *ErrProtocolViolation[S]) Error() string {
	return fmt.Sprintf("fsm: cannot set state to %v directly; use a transition", e.State)
}

// ErrSealed is returned when a builder is mutated after Seal. The machine is
// structurally immutable once sealed.
type ErrSealed struct {
	Op string
}

func (e *ErrSealed) Error() string {
	return fmt.Sprintf("fsm: cannot %s: machine is already sealed", e.Op)
}

// ErrUnconfigured is returned when a transition or dispatcher is used before
// its builder has been sealed.
type ErrUnconfigured struct {
	Op string
}

func (e *ErrUnconfigured) Error() string {
	return fmt.Sprintf("fsm: cannot %s: machine has not been sealed yet", e.Op)
}
