package startup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remoteproc/rpmsg-core/collab/local"
	"github.com/remoteproc/rpmsg-core/dispatch"
)

type fakeZeroer struct {
	zeroed bool
}

func (f *fakeZeroer) Zero() { f.zeroed = true }

func TestHandshakeHostAndSlave(t *testing.T) {
	bus := local.NewBus()

	hostDispatcher := dispatch.New(0, 1, bus.Endpoint(0), &local.Power{}, &local.Cache{}, nil)
	slaveDispatcher := dispatch.New(1, 0, bus.Endpoint(1), &local.Power{}, &local.Cache{}, nil)

	// The slave registers its ISR handler first, as it would at boot,
	// before the host's READY/ECHO_REQUEST can be delivered.
	err := Sync(Config{
		IsHost:     false,
		Mailbox:    bus.Endpoint(1),
		Dispatcher: slaveDispatcher,
		Power:      &local.Power{},
		PeerID:     0,
	})
	require.NoError(t, err)
	assert.False(t, slaveDispatcher.Synced(), "slave does not wait for a reply")

	region := &fakeZeroer{}

	err = Sync(Config{
		IsHost:     true,
		Regions:    []Zeroer{region},
		Mailbox:    bus.Endpoint(0),
		Dispatcher: hostDispatcher,
		Power:      &local.Power{},
		PeerID:     1,
	})
	require.NoError(t, err)

	assert.True(t, region.zeroed, "host zeroes shared regions before sending READY")
	assert.True(t, hostDispatcher.Synced(), "host returns only once ECHO_REPLY observed")
}

func TestHandshakeResolvesPeerByName(t *testing.T) {
	bus := local.NewBus()
	names := map[string]uint16{"HOST": 0, "CORE0": 1}

	hostDispatcher := dispatch.New(0, 1, bus.Endpoint(0), &local.Power{}, &local.Cache{}, nil)
	slaveDispatcher := dispatch.New(1, 0, bus.Endpoint(1), &local.Power{}, &local.Cache{}, nil)

	err := Sync(Config{
		IsHost: false, Mailbox: bus.Endpoint(1), Dispatcher: slaveDispatcher,
		Power:        &local.Power{},
		ProcResolver: local.NewProcResolver(names, 1), PeerName: "HOST",
	})
	require.NoError(t, err)

	err = Sync(Config{
		IsHost: true, Mailbox: bus.Endpoint(0), Dispatcher: hostDispatcher,
		Power:        &local.Power{},
		ProcResolver: local.NewProcResolver(names, 0), PeerName: "CORE0",
	})
	require.NoError(t, err)
	assert.True(t, hostDispatcher.Synced())
}

func TestHandshakeUnknownPeerNameErrors(t *testing.T) {
	bus := local.NewBus()
	hostDispatcher := dispatch.New(0, 1, bus.Endpoint(0), &local.Power{}, &local.Cache{}, nil)

	err := Sync(Config{
		IsHost: true, Mailbox: bus.Endpoint(0), Dispatcher: hostDispatcher,
		Power:        &local.Power{},
		ProcResolver: local.NewProcResolver(map[string]uint16{"HOST": 0}, 0), PeerName: "CORE0",
	})
	assert.Error(t, err)
}
