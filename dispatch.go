package fsm

import "github.com/enetx/g"

// Dispatcher implements state-dependent method overloading: a table mapping
// state to handler plus a single fallback for states with no overload. It
// reads the current state through the same storage path as transitions.
type Dispatcher[O any, S comparable] struct {
	machine  *Machine[O, S]
	storage  StateStorage[O, S]
	fallback Handler[O]
	table    g.Map[S, Handler[O]]
}

// Overload registers handler for each listed state. Every state must belong
// to the machine's state set and may carry at most one overload; violations
// are rejected before any registration takes effect.
func (d *Dispatcher[O, S]) Overload(handler Handler[O], states ...S) error {
	if d.machine.sealed {
		return &ErrSealed{Op: "register an overload"}
	}

	if handler == nil {
		return &ErrConfig{Reason: "overload handler must not be nil"}
	}

	if len(states) == 0 {
		return &ErrConfig{Reason: "overload requires at least one state"}
	}

	seen := g.NewSet[S]()
	for _, state := range states {
		if !d.machine.stateSet.Contains(state) {
			return &ErrUnknownState[S]{State: state}
		}

		if d.table.Contains(state) || seen.Contains(state) {
			return &ErrDuplicateOverload[S]{State: state}
		}

		seen.Insert(state)
	}

	for _, state := range states {
		d.table.Set(state, handler)
	}

	return nil
}

// Dispatch reads the owner's current state, resolves the handler overloaded
// for it, falling back to the default handler when none is registered, and
// invokes it with the owner and args, returning its result unmodified.
func (d *Dispatcher[O, S]) Dispatch(owner O, args ...any) (any, error) {
	if !d.machine.sealed {
		return nil, &ErrUnconfigured{Op: "dispatch"}
	}

	state := d.storage.Get(owner)
	handler := d.table.Get(state).UnwrapOr(d.fallback)

	return handler(owner, args...), nil
}
