package rsctable

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHeaderAndOffsets(t *testing.T) {
	entries := []Entry{
		VDev{ID: VirtioIDRPMsg, Vrings: []VDevVring{{DA: DAUnallocated, Align: 4096, Num: 256, NotifyID: 1}}},
		Carveout{DA: 0x80000000, Len: 0x1000, Name: "DATA"},
	}

	buf := Build(1, entries)

	require.True(t, len(buf) > 16)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[4:8]))

	vdevOffset := binary.LittleEndian.Uint32(buf[16:20])
	carveoutOffset := binary.LittleEndian.Uint32(buf[20:24])

	headerSize := uint32(4 + 4 + 8 + 4*2)
	assert.Equal(t, headerSize, vdevOffset)

	vdevSize := uint32(28 + 20) // fw_rsc_vdev header + one vring
	assert.Equal(t, headerSize+vdevSize, carveoutOffset)

	assert.Equal(t, TypeVDev, binary.LittleEndian.Uint32(buf[vdevOffset:vdevOffset+4]))
	assert.Equal(t, TypeCarveout, binary.LittleEndian.Uint32(buf[carveoutOffset:carveoutOffset+4]))
}

func TestVDevEncodesNestedVringsInline(t *testing.T) {
	v := VDev{
		ID: VirtioIDRPMsg,
		Vrings: []VDevVring{
			{DA: 0xA0000000, Align: 4096, Num: 256, NotifyID: 1},
			{DA: 0xA0004000, Align: 4096, Num: 256, NotifyID: 2},
		},
	}

	b := v.Encode()
	assert.Equal(t, 28+20*2, len(b))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[24:28]))

	ring0 := b[28 : 28+20]
	assert.Equal(t, uint32(0xA0000000), binary.LittleEndian.Uint32(ring0[0:4]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(ring0[12:16]))
}

func TestCarveoutEncodesName(t *testing.T) {
	c := Carveout{DA: 0x1000, Len: 0x2000, Name: "IPU_MEM_DATA"}
	b := c.Encode()

	name := b[20 : 20+nameFieldLen]
	assert.Equal(t, "IPU_MEM_DATA", trimZeros(name))
}

func TestDefaultBuildsCompleteTable(t *testing.T) {
	buf := Default(Config{
		VRing0DA: DAUnallocated, VRing1DA: DAUnallocated,
		VRingAlign: 4096, VRingNum: 256,
		DataDA: 0x80000000, DataLen: 0x6000000,
		TextDA: 0, TextLen: 0x400000,
		TraceDA: 0x9f000000, TraceLen: 0x8000,
		IPCDA: 0xA0000000, IPCPA: 0xA9000000, IPCLen: 0x100000,
		ExtraDevMem: []DevMem{{DA: 0x60000000, PA: 0x60000000, Len: 0x10000000, Name: "TILER"}},
	})

	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(buf[4:8]), "vdev, 2 carveouts, trace, ipc devmem, 1 extra devmem")
}

func trimZeros(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
