package virtqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remoteproc/rpmsg-core/addr"
	"github.com/remoteproc/rpmsg-core/bufpool"
	"github.com/remoteproc/rpmsg-core/collab/local"
	"github.com/remoteproc/rpmsg-core/vring"
)

const (
	testN       = 8
	testBufSize = 64
)

type fixture struct {
	ring    *vring.Ring
	pool    *bufpool.Pool
	host    *Queue
	slave   *Queue
	bus     *local.Bus
}

// newFixture wires one ring shared between a host-role and a slave-role
// Queue view of it, with a buffer pool addressed by identity translation
// (tests don't exercise the host/firmware physical aliasing, addr's own
// tests do).
func newFixture(t *testing.T) *fixture {
	t.Helper()

	l := vring.Layout{N: testN, Align: 16}
	mem := make([]byte, l.Compute().Size)
	r, err := vring.New(mem, testN, 16)
	require.NoError(t, err)

	poolMem := make([]byte, testN*testBufSize)
	pool, err := bufpool.New(poolMem, 0x1000, testN, testBufSize)
	require.NoError(t, err)

	bus := local.NewBus()

	host := New(Config{
		ID: 0, PeerID: 1, Role: RoleHost,
		Ring: r, Translator: addr.Identity(), BufSize: testBufSize,
		Mailbox: bus.Endpoint(0),
	})
	slave := New(Config{
		ID: 0, PeerID: 0, Role: RoleSlave,
		Ring: r, Translator: addr.Identity(), BufSize: testBufSize,
		Mailbox: bus.Endpoint(1),
	})

	return &fixture{ring: r, pool: pool, host: host, slave: slave, bus: bus}
}

func TestAddAvailGetAvailRoundTrip(t *testing.T) {
	f := newFixture(t)

	va := f.pool.VA(2)
	copy(f.pool.Slot(2), []byte("ping"))

	numFree, err := f.host.AddAvail(va)
	require.NoError(t, err)
	assert.Equal(t, testN-1, numFree)

	head, gotVA, err := f.slave.GetAvail()
	require.NoError(t, err)
	assert.Equal(t, va, gotVA)

	buf, err := f.pool.Bytes(gotVA)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:4]))

	assert.Equal(t, uint16(0), head)
}

func TestAddUsedGetUsedRoundTrip(t *testing.T) {
	f := newFixture(t)

	va := f.pool.VA(5)
	_, err := f.host.AddAvail(va)
	require.NoError(t, err)

	head, _, err := f.slave.GetAvail()
	require.NoError(t, err)

	err = f.slave.AddUsed(head)
	require.NoError(t, err)

	gotVA, err := f.host.GetUsed()
	require.NoError(t, err)
	assert.Equal(t, va, gotVA)
	assert.Equal(t, uint16(testN), f.host.NumFree(), "host reclaims its free count on GetUsed")
}

func TestGetAvailEmpty(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.slave.GetAvail()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestGetUsedEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.host.GetUsed()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestAddAvailFullWhenExhausted(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < testN; i++ {
		_, err := f.host.AddAvail(f.pool.VA(i))
		require.NoError(t, err)
	}

	_, err := f.host.AddAvail(f.pool.VA(0))
	assert.ErrorIs(t, err, ErrFull)
}

func TestAddUsedRejectsOutOfRangeHead(t *testing.T) {
	f := newFixture(t)

	assert.Panics(t, func() {
		f.slave.AddUsed(testN)
	})
}

func TestKickDeliversExactlyOneInterrupt(t *testing.T) {
	f := newFixture(t)

	received := 0
	f.bus.Endpoint(1).Register(func(msg uint32) {
		received++
		assert.Equal(t, uint32(0), msg)
	})

	f.host.Kick()
	assert.Equal(t, 1, received)
}

func TestKickSuppressedByNoInterruptFlag(t *testing.T) {
	f := newFixture(t)

	received := 0
	f.bus.Endpoint(1).Register(func(msg uint32) {
		received++
	})

	f.ring.SetAvailFlags(vring.AvailFNoInterrupt)
	f.host.Kick()
	assert.Equal(t, 0, received)
}

// TestWrapAround exercises idx wrap across the 16-bit boundary (§8
// boundary behavior: both idx counters at 2^16-1).
func TestWrapAround(t *testing.T) {
	f := newFixture(t)

	f.ring.SetAvailIdx(0xffff)
	f.ring.SetUsedIdx(0xffff)
	f.host.lastAvailIdx = 0xffff
	f.host.lastUsedIdx = 0xffff
	f.slave.lastAvailIdx = 0xffff

	va := f.pool.VA(1)
	_, err := f.host.AddAvail(va)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), f.ring.AvailIdx(), "avail.idx wraps to 0")

	head, gotVA, err := f.slave.GetAvail()
	require.NoError(t, err)
	assert.Equal(t, va, gotVA)

	err = f.slave.AddUsed(head)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), f.ring.UsedIdx(), "used.idx wraps to 0")

	gotVA, err = f.host.GetUsed()
	require.NoError(t, err)
	assert.Equal(t, va, gotVA)
}
