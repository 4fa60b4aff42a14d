package vring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMatchesVirtioReference(t *testing.T) {
	// N=256, align=4096 is the reference configuration from
	// original_source/src/ti/ipc/rpmsg/VirtQueue.c (RP_MSG_NUM_BUFS,
	// RP_MSG_VRING_ALIGN) and should occupy exactly 3 pages.
	l := Layout{Base: 0, N: 256, Align: 4096}
	a := l.Compute()

	assert.Equal(t, uint32(0), a.Desc)
	assert.Equal(t, uint32(4096), a.Avail, "descriptor table for N=256 is exactly one page")
	assert.Equal(t, uint32(8192), a.Used, "avail header+ring+trailer for N=256 also rounds up to one page")
	assert.Equal(t, uint32(3*4096), a.Size, "256-entry split ring occupies 3 pages")
}

func TestComputeRespectsBase(t *testing.T) {
	l := Layout{Base: 0xa0000000, N: 256, Align: 4096}
	a := l.Compute()

	assert.Equal(t, uint32(0xa0000000), a.Desc)
	assert.True(t, a.Avail > a.Desc)
	assert.True(t, a.Used > a.Avail)
}

func TestComputeSmallN(t *testing.T) {
	l := Layout{N: 4, Align: 16}
	a := l.Compute()

	assert.Equal(t, uint32(0), a.Desc)
	// desc: 4*16=64, aligned to 16 -> 64
	assert.Equal(t, uint32(64), a.Avail)
	// avail: hdr 4 + 4*2 + 2 = 14, +64 = 78, aligned to 16 -> 80
	assert.Equal(t, uint32(80), a.Used)
}

func TestNewRejectsUndersizedBuffer(t *testing.T) {
	mem := make([]byte, 100)
	_, err := New(mem, 256, DefaultAlign)
	require.Error(t, err)
}

func TestRingFieldRoundTrip(t *testing.T) {
	l := Layout{N: 8, Align: 16}
	mem := make([]byte, l.Compute().Size)

	r, err := New(mem, 8, 16)
	require.NoError(t, err)

	r.SetDesc(3, 0xdeadbeef, 512, DescWrite, 0)
	addr, length, flags, next := r.Desc(3)
	assert.Equal(t, uint64(0xdeadbeef), addr)
	assert.Equal(t, uint32(512), length)
	assert.Equal(t, uint16(DescWrite), flags)
	assert.Equal(t, uint16(0), next)

	r.SetAvailIdx(7)
	assert.Equal(t, uint16(7), r.AvailIdx())

	r.SetAvailRing(2, 5)
	assert.Equal(t, uint16(5), r.AvailRing(2))

	r.SetUsedIdx(9)
	assert.Equal(t, uint16(9), r.UsedIdx())

	r.SetUsedRing(1, 42, 512)
	id, length := r.UsedRing(1)
	assert.Equal(t, uint32(42), id)
	assert.Equal(t, uint32(512), length)

	r.SetAvailFlags(AvailFNoInterrupt)
	assert.Equal(t, uint16(AvailFNoInterrupt), r.AvailFlags())

	r.SetUsedFlags(UsedFNoNotify)
	assert.Equal(t, uint16(UsedFNoNotify), r.UsedFlags())
}

func TestZeroClearsRegion(t *testing.T) {
	mem := make([]byte, Layout{N: 8, Align: 16}.Compute().Size)
	r, err := New(mem, 8, 16)
	require.NoError(t, err)

	r.SetAvailIdx(3)
	r.Zero()

	assert.Equal(t, uint16(0), r.AvailIdx())
	for _, b := range mem {
		assert.Equal(t, byte(0), b)
	}
}
