package fsm

import (
	"fmt"

	"github.com/enetx/g"
)

// Transition is a guarded state change from a non-empty set of source states
// to one destination. It is declared through Builder.Transition, holds no
// per-owner state of its own, and operates against the machine's storage
// through a proxy, so committing it runs the machine's exit/enter pipeline.
type Transition[O any, S comparable] struct {
	machine   *Machine[O, S]
	sources   g.Set[S]
	srcOrder  g.Slice[S]
	dest      S
	guard     GuardFunc[O]
	callbacks g.Slice[Callback[O, S]]
	storage   StateStorage[O, S]
}

// Invoke performs the transition on the owner: it reads the current state,
// rejects the attempt if that state is not an allowed source or the guard
// declines, and otherwise commits the destination, which fires exit and
// enter callbacks, before firing this transition's own callbacks in
// registration order with (owner, source, destination). On failure nothing is mutated and
// no callbacks fire.
//
// Invoke is not atomic; concurrent invocations on the same owner must be
// serialized by the caller.
func (t *Transition[O, S]) Invoke(owner O) error {
	if !t.machine.sealed {
		return &ErrUnconfigured{Op: "invoke a transition"}
	}

	from := t.storage.Get(owner)
	if !t.sources.Contains(from) || (t.guard != nil && !t.guard(owner)) {
		return &ErrImpossibleTransition[S]{From: from, To: t.dest, Sources: t.srcOrder.Clone()}
	}

	t.storage.Set(owner, t.dest)

	for cb := range t.callbacks.Iter() {
		cb(owner, from, t.dest)
	}

	return nil
}

// Sources returns the transition's source states in declaration order.
func (t *Transition[O, S]) Sources() g.Slice[S] {
	return t.srcOrder.Clone()
}

// Dest returns the transition's destination state.
func (t *Transition[O, S]) Dest() S {
	return t.dest
}

func (t *Transition[O, S]) String() string {
	return fmt.Sprintf("Transition(%v -> %v)", []S(t.srcOrder), t.dest)
}
