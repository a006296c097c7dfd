package fsm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmate/fsm"
)

func TestDispatchResolution(t *testing.T) {
	b := newDoorBuilder(t)

	push, err := b.Dispatch(func(_ *Door, _ ...any) any { return "fallback" })
	require.NoError(t, err)
	require.NoError(t, push.Overload(func(_ *Door, _ ...any) any { return "overload" }, Opened))

	_, err = b.Seal()
	require.NoError(t, err)

	for _, s := range doorStates {
		d := &Door{state: s}
		got, err := push.Dispatch(d)
		require.NoError(t, err)

		if s == Opened {
			assert.Equal(t, "overload", got)
		} else {
			assert.Equal(t, "fallback", got, "state %v has no overload", s)
		}
	}
}

func TestDispatchForwardsArgsAndResult(t *testing.T) {
	b := newDoorBuilder(t)

	push, err := b.Dispatch(func(_ *Door, args ...any) any {
		return args[0].(int) + args[1].(int)
	})
	require.NoError(t, err)

	d := &Door{}
	require.NoError(t, push.Overload(func(owner *Door, args ...any) any {
		assert.Same(t, d, owner)
		return args[0].(int) * args[1].(int)
	}, Closed))

	_, err = b.Seal()
	require.NoError(t, err)

	got, err := push.Dispatch(d, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 12, got, "overload for the initial state")

	d.state = Opening
	got, err = push.Dispatch(d, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, got, "fallback for un-overloaded states")
}

func TestOverloadErrors(t *testing.T) {
	b := newDoorBuilder(t)

	push, err := b.Dispatch(func(_ *Door, _ ...any) any { return nil })
	require.NoError(t, err)

	handler := func(_ *Door, _ ...any) any { return nil }

	t.Run("foreign state", func(t *testing.T) {
		var stateErr *fsm.ErrUnknownState[DoorState]
		require.ErrorAs(t, push.Overload(handler, DoorState(42)), &stateErr)
	})

	t.Run("duplicate across calls", func(t *testing.T) {
		require.NoError(t, push.Overload(handler, Opened))

		err := push.Overload(handler, Opened)
		var dupErr *fsm.ErrDuplicateOverload[DoorState]
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, Opened, dupErr.State)
	})

	t.Run("duplicate within one call", func(t *testing.T) {
		var dupErr *fsm.ErrDuplicateOverload[DoorState]
		require.ErrorAs(t, push.Overload(handler, Closing, Closing), &dupErr)
	})

	t.Run("rejected call registers nothing", func(t *testing.T) {
		require.NoError(t, push.Overload(handler, Closing))
	})

	t.Run("no states", func(t *testing.T) {
		var cfgErr *fsm.ErrConfig
		require.ErrorAs(t, push.Overload(handler), &cfgErr)
	})

	t.Run("nil handler", func(t *testing.T) {
		var cfgErr *fsm.ErrConfig
		require.ErrorAs(t, push.Overload(nil, Opening), &cfgErr)
	})
}

func TestDispatchNilFallback(t *testing.T) {
	b := newDoorBuilder(t)

	_, err := b.Dispatch(nil)
	var cfgErr *fsm.ErrConfig
	require.ErrorAs(t, err, &cfgErr)
}

func TestOverloadOnSeveralStates(t *testing.T) {
	b := newDoorBuilder(t)

	push, err := b.Dispatch(func(_ *Door, _ ...any) any { return "idle" })
	require.NoError(t, err)
	require.NoError(t, push.Overload(func(_ *Door, _ ...any) any { return "moving" }, Opening, Closing))

	_, err = b.Seal()
	require.NoError(t, err)

	for _, s := range []DoorState{Opening, Closing} {
		got, err := push.Dispatch(&Door{state: s})
		require.NoError(t, err)
		assert.Equal(t, "moving", got)
	}

	got, err := push.Dispatch(&Door{state: Opened})
	require.NoError(t, err)
	assert.Equal(t, "idle", got)
}
