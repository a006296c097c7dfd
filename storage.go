package fsm

// StateStorage reads and writes the current state of an owner instance,
// decoupled from where that value is physically kept. Implementations must
// not validate transitions and must not fire callbacks; legality checks
// belong to Transition and the callback pipeline to Machine.
type StateStorage[O any, S comparable] interface {
	Get(owner O) S
	Set(owner O, state S)
}

// FieldStorage keeps state in a field on the owner, reached through an
// explicit accessor resolved once at construction. While the field still
// holds the zero value of S the configured initial state is reported
// instead, so a fresh owner needs no setup before its first read.
type FieldStorage[O any, S comparable] struct {
	initial S
	field   func(owner O) *S
}

// NewFieldStorage creates a FieldStorage over the given field accessor.
func NewFieldStorage[O any, S comparable](initial S, field func(owner O) *S) *FieldStorage[O, S] {
	return &FieldStorage[O, S]{initial: initial, field: field}
}

func (fs *FieldStorage[O, S]) Get(owner O) S {
	var zero S
	if v := *fs.field(owner); v != zero {
		return v
	}

	return fs.initial
}

func (fs *FieldStorage[O, S]) Set(owner O, state S) {
	*fs.field(owner) = state
}

// ProxyStorage delegates reads and writes to caller-supplied closures. The
// machine also uses it internally, handing every Transition and Dispatcher
// it creates a proxy onto its own read and commit path, so they all observe
// the same logical state, default handling, and callback pipeline.
type ProxyStorage[O any, S comparable] struct {
	get func(owner O) S
	set func(owner O, state S)
}

// NewProxyStorage creates a ProxyStorage over the given closure pair.
func NewProxyStorage[O any, S comparable](get func(O) S, set func(O, S)) *ProxyStorage[O, S] {
	return &ProxyStorage[O, S]{get: get, set: set}
}

func (ps *ProxyStorage[O, S]) Get(owner O) S {
	return ps.get(owner)
}

func (ps *ProxyStorage[O, S]) Set(owner O, state S) {
	ps.set(owner, state)
}

// Interface compliance checks.
var (
	_ StateStorage[any, int] = (*FieldStorage[any, int])(nil)
	_ StateStorage[any, int] = (*ProxyStorage[any, int])(nil)
)
