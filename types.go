package fsm

type (
	// Callback is fired after a state change with the owner instance and the
	// states involved. Transition callbacks, enter callbacks, and exit
	// callbacks all share this signature.
	Callback[O any, S comparable] func(owner O, from, to S)

	// GuardFunc determines whether a transition is allowed to fire.
	GuardFunc[O any] func(owner O) bool

	// Handler implements one state-dependent variant of a dispatched method.
	// Arguments and the return value pass through Dispatch unmodified.
	Handler[O any] func(owner O, args ...any) any
)

// hookKey identifies one (state, callback) enter/exit registration. Callback
// identity is the function's code pointer, which makes re-registering the
// same function for the same state a no-op.
type hookKey[S comparable] struct {
	state S
	fn    uintptr
}
