package fsm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmate/fsm"
)

func TestFieldStorage(t *testing.T) {
	storage := fsm.NewFieldStorage(Closed, doorField)

	d := &Door{}
	assert.Equal(t, Closed, storage.Get(d), "unwritten field reads as the initial state")

	storage.Set(d, Opened)
	assert.Equal(t, Opened, storage.Get(d))
	assert.Equal(t, Opened, d.state, "state lives on the owner itself")

	d.state = 0
	assert.Equal(t, Closed, storage.Get(d), "zero value means never written")
}

func TestProxyStorage(t *testing.T) {
	var gets, sets int
	backing := make(map[*Door]DoorState)

	storage := fsm.NewProxyStorage(
		func(d *Door) DoorState {
			gets++
			return backing[d]
		},
		func(d *Door, s DoorState) {
			sets++
			backing[d] = s
		},
	)

	d := &Door{}
	storage.Set(d, Closing)
	assert.Equal(t, Closing, storage.Get(d))
	assert.Equal(t, 1, gets)
	assert.Equal(t, 1, sets)
	assert.Equal(t, DoorState(0), d.state, "proxy storage never touches the owner directly")
}

// Storage must not run the callback pipeline itself; that is the machine's
// job, wired in through the proxy handed to transitions.
func TestStorageDoesNotFireCallbacks(t *testing.T) {
	b := newDoorBuilder(t)
	fired := false
	require.NoError(t, b.OnStateEntered(func(_ *Door, _, _ DoorState) { fired = true }, Opened))

	_, err := b.Seal()
	require.NoError(t, err)

	storage := fsm.NewFieldStorage(Closed, doorField)
	storage.Set(&Door{}, Opened)
	assert.False(t, fired)
}
