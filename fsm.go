// Package fsm provides a generic finite state machine runtime that attaches
// a state value from a closed, enumerable set to an arbitrary owner type.
// A Builder, configured while the owner type is being defined, is sealed
// into an immutable Machine shared by every instance of that type; state
// changes only through Transitions, which fire exit callbacks, enter
// callbacks, and the transition's own callbacks in a fixed order.
// State-dependent method behavior is available through Dispatchers. It is
// built with types and utilities from the github.com/enetx/g library.
//
// The engine is synchronous. It is not safe for concurrent transitions on
// the same owner: the read-validate-write sequence is not atomic, and
// callers with multi-goroutine owners must serialize transitions
// externally. Sharing one sealed Machine across all instances of an owner
// type is safe, since the machine is read-only after Seal.
package fsm

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/enetx/g"
)

// Machine is the per-owner-type state descriptor. It owns the closed state
// set, the state storage, the registered transitions, and the enter/exit
// callback registry. A Machine is obtained by sealing a Builder and is
// structurally immutable from then on.
type Machine[O any, S comparable] struct {
	states      g.Slice[S]
	stateSet    g.Set[S]
	storage     StateStorage[O, S]
	transitions g.Slice[*Transition[O, S]]
	onEnter     g.Map[S, g.Slice[Callback[O, S]]]
	onExit      g.Map[S, g.Slice[Callback[O, S]]]
	enterSeen   g.Set[hookKey[S]]
	exitSeen    g.Set[hookKey[S]]
	logger      *slog.Logger
	sealed      bool
}

// Builder configures a Machine during owner-type definition. Every
// registration method fails once the builder has been sealed.
type Builder[O any, S comparable] struct {
	m *Machine[O, S]
}

type config[O any, S comparable] struct {
	hasInitial bool
	initial    S
	field      func(O) *S
	storage    StateStorage[O, S]
}

// Option configures the storage strategy of a new Builder.
type Option[O any, S comparable] func(*config[O, S])

// WithInitial selects attribute-backed storage: state lives in a field on
// the owner, reached through the given accessor, and reads report initial
// until the field is first written.
func WithInitial[O any, S comparable](initial S, field func(owner O) *S) Option[O, S] {
	return func(c *config[O, S]) {
		c.hasInitial = true
		c.initial = initial
		c.field = field
	}
}

// WithStorage supplies an external StateStorage implementation instead of
// attribute-backed storage.
func WithStorage[O any, S comparable](storage StateStorage[O, S]) Option[O, S] {
	return func(c *config[O, S]) {
		c.storage = storage
	}
}

// New creates a Builder over the given closed state set. Exactly one of
// WithInitial or WithStorage must be supplied; anything else is a
// configuration error, as are an empty or duplicated state list and an
// initial state outside the set. With attribute-backed storage the zero
// value of S stands for "never written", so it may appear in the state set
// only as the initial state.
func New[O any, S comparable](states []S, opts ...Option[O, S]) (*Builder[O, S], error) {
	if len(states) == 0 {
		return nil, &ErrConfig{Reason: "state set must not be empty"}
	}

	stateSet := g.NewSet[S]()
	for _, state := range states {
		if stateSet.Contains(state) {
			return nil, &ErrConfig{Reason: fmt.Sprintf("state %v declared more than once", state)}
		}

		stateSet.Insert(state)
	}

	var cfg config[O, S]
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.hasInitial == (cfg.storage != nil) {
		return nil, &ErrConfig{Reason: "exactly one of an initial state or a state storage must be supplied"}
	}

	storage := cfg.storage
	if cfg.hasInitial {
		if cfg.field == nil {
			return nil, &ErrConfig{Reason: "initial-state storage requires a field accessor"}
		}

		if !stateSet.Contains(cfg.initial) {
			return nil, &ErrUnknownState[S]{State: cfg.initial}
		}

		var zero S
		if stateSet.Contains(zero) && zero != cfg.initial {
			return nil, &ErrConfig{
				Reason: fmt.Sprintf("the zero value %v marks an unwritten field and may only be the initial state", zero),
			}
		}

		storage = NewFieldStorage(cfg.initial, cfg.field)
	}

	m := &Machine[O, S]{
		states:      g.SliceOf(states...),
		stateSet:    stateSet,
		storage:     storage,
		transitions: g.NewSlice[*Transition[O, S]](),
		onEnter:     g.NewMap[S, g.Slice[Callback[O, S]]](),
		onExit:      g.NewMap[S, g.Slice[Callback[O, S]]](),
		enterSeen:   g.NewSet[hookKey[S]](),
		exitSeen:    g.NewSet[hookKey[S]](),
		logger:      slog.Default(),
	}

	return &Builder[O, S]{m: m}, nil
}

// Logger replaces the machine's logger. Committed state changes are logged
// at debug level.
func (b *Builder[O, S]) Logger(logger *slog.Logger) *Builder[O, S] {
	b.m.logger = logger
	return b
}

// Transition declares a guarded state change from any of the given source
// states to dest and records it on the machine. All referenced states must
// belong to the state set.
func (b *Builder[O, S]) Transition(sources []S, dest S) (*Transition[O, S], error) {
	return b.TransitionWhen(sources, dest, nil)
}

// TransitionWhen declares a transition with an additional guard; the guard
// is consulted after the source check, and its refusal is reported as an
// impossible transition.
func (b *Builder[O, S]) TransitionWhen(sources []S, dest S, guard GuardFunc[O]) (*Transition[O, S], error) {
	m := b.m
	if m.sealed {
		return nil, &ErrSealed{Op: "declare a transition"}
	}

	if !m.stateSet.Contains(dest) {
		return nil, &ErrUnknownState[S]{State: dest}
	}

	if len(sources) == 0 {
		return nil, &ErrConfig{Reason: "transition requires at least one source state"}
	}

	sourceSet := g.NewSet[S]()
	for _, state := range sources {
		if !m.stateSet.Contains(state) {
			return nil, &ErrUnknownState[S]{State: state}
		}

		sourceSet.Insert(state)
	}

	t := &Transition[O, S]{
		machine:  m,
		sources:  sourceSet,
		srcOrder: g.SliceOf(sources...),
		dest:     dest,
		guard:    guard,
		storage:  NewProxyStorage(m.State, m.commit),
	}

	m.transitions.Push(t)

	return t, nil
}

// Dispatch creates a Dispatcher bound to this machine's storage with the
// given fallback handler. Per-state overloads are registered on the
// returned dispatcher before Seal.
func (b *Builder[O, S]) Dispatch(fallback Handler[O]) (*Dispatcher[O, S], error) {
	m := b.m
	if m.sealed {
		return nil, &ErrSealed{Op: "declare a dispatched method"}
	}

	if fallback == nil {
		return nil, &ErrConfig{Reason: "dispatch fallback handler must not be nil"}
	}

	return &Dispatcher[O, S]{
		machine:  m,
		storage:  NewProxyStorage(m.State, m.commit),
		fallback: fallback,
		table:    g.NewMap[S, Handler[O]](),
	}, nil
}

// OnTransition appends cb to each listed transition's callback list. At
// least one transition is required; use OnAnyTransition to subscribe to all
// transitions known to the machine. Duplicate registration is allowed here
// and fires the callback once per registration.
func (b *Builder[O, S]) OnTransition(cb Callback[O, S], transitions ...*Transition[O, S]) error {
	if b.m.sealed {
		return &ErrSealed{Op: "register a transition callback"}
	}

	if cb == nil {
		return &ErrConfig{Reason: "transition callback must not be nil"}
	}

	if len(transitions) == 0 {
		return &ErrConfig{Reason: "OnTransition requires at least one transition; use OnAnyTransition for all"}
	}

	for _, t := range transitions {
		if t == nil {
			return &ErrForeignTransition{Transition: "<nil>"}
		}

		if t.machine != b.m {
			return &ErrForeignTransition{Transition: t.String()}
		}
	}

	for _, t := range transitions {
		t.callbacks.Push(cb)
	}

	return nil
}

// OnAnyTransition appends cb to every transition declared on the machine so
// far.
func (b *Builder[O, S]) OnAnyTransition(cb Callback[O, S]) error {
	if b.m.sealed {
		return &ErrSealed{Op: "register a transition callback"}
	}

	if cb == nil {
		return &ErrConfig{Reason: "transition callback must not be nil"}
	}

	for _, t := range b.m.transitions {
		t.callbacks.Push(cb)
	}

	return nil
}

// OnStateEntered registers cb to fire whenever state becomes one of the
// listed states, regardless of which transition caused it. Registration is
// idempotent per state and callback. At least one state is required; use
// OnAnyStateEntered to cover the whole state set.
func (b *Builder[O, S]) OnStateEntered(cb Callback[O, S], states ...S) error {
	return b.registerHook(cb, states, "OnStateEntered", b.m.addEnter)
}

// OnAnyStateEntered registers cb as an enter callback for every state in
// the set.
func (b *Builder[O, S]) OnAnyStateEntered(cb Callback[O, S]) error {
	return b.registerHook(cb, b.m.states, "OnStateEntered", b.m.addEnter)
}

// OnStateExited registers cb to fire whenever state stops being one of the
// listed states. Same rules as OnStateEntered.
func (b *Builder[O, S]) OnStateExited(cb Callback[O, S], states ...S) error {
	return b.registerHook(cb, states, "OnStateExited", b.m.addExit)
}

// OnAnyStateExited registers cb as an exit callback for every state in the
// set.
func (b *Builder[O, S]) OnAnyStateExited(cb Callback[O, S]) error {
	return b.registerHook(cb, b.m.states, "OnStateExited", b.m.addExit)
}

func (b *Builder[O, S]) registerHook(cb Callback[O, S], states []S, op string, add func(S, Callback[O, S])) error {
	if b.m.sealed {
		return &ErrSealed{Op: "register a state callback"}
	}

	if cb == nil {
		return &ErrConfig{Reason: "state callback must not be nil"}
	}

	if len(states) == 0 {
		return &ErrConfig{Reason: op + " requires at least one state; use the OnAny variant for all"}
	}

	for _, state := range states {
		if !b.m.stateSet.Contains(state) {
			return &ErrUnknownState[S]{State: state}
		}
	}

	for _, state := range states {
		add(state, cb)
	}

	return nil
}

// Seal finishes the definition phase and returns the immutable Machine. Any
// later builder mutation fails, and transitions and dispatchers become
// invocable.
func (b *Builder[O, S]) Seal() (*Machine[O, S], error) {
	if b.m.sealed {
		return nil, &ErrSealed{Op: "seal"}
	}

	b.m.sealed = true

	return b.m, nil
}

// State returns the owner's current state.
func (m *Machine[O, S]) State(owner O) S {
	return m.storage.Get(owner)
}

// Is reports whether the owner is currently in the given state.
func (m *Machine[O, S]) Is(owner O, state S) bool {
	return m.storage.Get(owner) == state
}

// Set always fails: direct state assignment is a protocol violation, and
// state changes only through transitions.
func (m *Machine[O, S]) Set(owner O, state S) error {
	return &ErrProtocolViolation[S]{State: state}
}

// States returns the machine's state set in declaration order.
func (m *Machine[O, S]) States() g.Slice[S] {
	return m.states.Clone()
}

// Transitions returns the transitions declared on the machine.
func (m *Machine[O, S]) Transitions() g.Slice[*Transition[O, S]] {
	return m.transitions.Clone()
}

// commit is the state-change pipeline: capture the old state, write the new
// one, then fire exit callbacks for the old state and enter callbacks for
// the new state, each with (owner, old, new). Exit and enter fire even when
// old == new. Transitions reach commit through their proxy storage and fire
// their own callbacks afterwards.
func (m *Machine[O, S]) commit(owner O, state S) {
	from := m.storage.Get(owner)
	m.storage.Set(owner, state)

	for cb := range m.onExit.Get(from).UnwrapOr(nil).Iter() {
		cb(owner, from, state)
	}

	for cb := range m.onEnter.Get(state).UnwrapOr(nil).Iter() {
		cb(owner, from, state)
	}

	m.logger.Debug("state changed", "from", from, "to", state)
}

func (m *Machine[O, S]) addEnter(state S, cb Callback[O, S]) {
	key := hookKey[S]{state: state, fn: reflect.ValueOf(cb).Pointer()}
	if m.enterSeen.Contains(key) {
		return
	}

	m.enterSeen.Insert(key)
	m.onEnter.Set(state, m.onEnter.Get(state).UnwrapOr(nil).Append(cb))
}

func (m *Machine[O, S]) addExit(state S, cb Callback[O, S]) {
	key := hookKey[S]{state: state, fn: reflect.ValueOf(cb).Pointer()}
	if m.exitSeen.Contains(key) {
		return
	}

	m.exitSeen.Insert(key)
	m.onExit.Set(state, m.onExit.Get(state).UnwrapOr(nil).Append(cb))
}
