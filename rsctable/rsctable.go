// Package rsctable builds the static remoteproc resource table a firmware
// image exposes to the host: the vdev/vring, carveout, trace, and devmem
// descriptors remoteproc reads out of the ELF image before loading it,
// per spec.md §4.H.
//
// Grounded on original_source/src/ti/resources/rsc_table_ipu.h: the
// struct resource_table layout (version, num, reserved[2], offset[num]
// followed by each entry's bytes) and its rpmsg_vdev/rpmsg_vring0/
// rpmsg_vring1/data_cout/text_cout/trace/devmem0..7 entry set, adapted
// from fixed OMAP4/IPU memory-map constants to a Config callers supply
// for their own platform.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package rsctable

import "encoding/binary"

// Resource type tags, matching Linux's include/linux/remoteproc.h
// enum fw_resource_type.
const (
	TypeCarveout uint32 = 0
	TypeDevMem   uint32 = 1
	TypeTrace    uint32 = 2
	TypeVDev     uint32 = 3
)

// VirtioIDRPMsg is the virtio device id announced by the rpmsg vdev
// entry, matching the teacher's virtio.RPMSG device-type constant.
const VirtioIDRPMsg = 7

// nameFieldLen is the fixed width of every entry's trailing name field.
const nameFieldLen = 32

func putName(b []byte, name string) {
	n := copy(b[:nameFieldLen], name)
	for ; n < nameFieldLen; n++ {
		b[n] = 0
	}
}

// Entry is one top-level resource table entry.
type Entry interface {
	Encode() []byte
}

// VDevVring is one virtqueue declaration nested inside a VDev entry
// (fw_rsc_vdev_vring). It is not a top-level Entry: it is encoded inline
// immediately after its owning VDev, never addressed by the table's own
// offset array.
type VDevVring struct {
	DA       uint32 // 0xffffffff requests the host allocate and report back
	Align    uint32
	Num      uint32
	NotifyID uint32
}

func (v VDevVring) encode() []byte {
	b := make([]byte, 20)
	binary.LittleEndian.PutUint32(b[0:4], v.DA)
	binary.LittleEndian.PutUint32(b[4:8], v.Align)
	binary.LittleEndian.PutUint32(b[8:12], v.Num)
	binary.LittleEndian.PutUint32(b[12:16], v.NotifyID)
	// b[16:20] reserved, left zero
	return b
}

// VDev is the rpmsg virtio device entry (fw_rsc_vdev) plus its nested
// vring declarations.
type VDev struct {
	ID        uint32 // virtio device id, VirtioIDRPMsg for this module
	Notify    uint32
	DFeatures uint32
	GFeatures uint32
	Status    uint32
	Vrings    []VDevVring
}

// Encode implements Entry.
func (v VDev) Encode() []byte {
	b := make([]byte, 28)
	binary.LittleEndian.PutUint32(b[0:4], TypeVDev)
	binary.LittleEndian.PutUint32(b[4:8], v.ID)
	binary.LittleEndian.PutUint32(b[8:12], v.Notify)
	binary.LittleEndian.PutUint32(b[12:16], v.DFeatures)
	binary.LittleEndian.PutUint32(b[16:20], v.GFeatures)
	// config_len left zero: no vdev config data, matching the original
	binary.LittleEndian.PutUint32(b[24:28], uint32(len(v.Vrings)))

	for _, vr := range v.Vrings {
		b = append(b, vr.encode()...)
	}
	return b
}

// Carveout is a contiguous memory region the host must reserve and map
// (fw_rsc_carveout).
type Carveout struct {
	DA, PA, Len, Flags uint32
	Name               string
}

// Encode implements Entry.
func (c Carveout) Encode() []byte {
	b := make([]byte, 20+nameFieldLen)
	binary.LittleEndian.PutUint32(b[0:4], TypeCarveout)
	binary.LittleEndian.PutUint32(b[4:8], c.DA)
	binary.LittleEndian.PutUint32(b[8:12], c.PA)
	binary.LittleEndian.PutUint32(b[12:16], c.Len)
	binary.LittleEndian.PutUint32(b[16:20], c.Flags)
	putName(b[20:], c.Name)
	return b
}

// DevMem maps a device-address window onto a fixed physical address
// (fw_rsc_devmem), used for IPC shared memory and other peripherals the
// firmware addresses virtually but the host must identity-describe.
type DevMem struct {
	DA, PA, Len, Flags uint32
	Name               string
}

// Encode implements Entry.
func (d DevMem) Encode() []byte {
	b := make([]byte, 20+nameFieldLen)
	binary.LittleEndian.PutUint32(b[0:4], TypeDevMem)
	binary.LittleEndian.PutUint32(b[4:8], d.DA)
	binary.LittleEndian.PutUint32(b[8:12], d.PA)
	binary.LittleEndian.PutUint32(b[12:16], d.Len)
	binary.LittleEndian.PutUint32(b[16:20], d.Flags)
	putName(b[20:], d.Name)
	return b
}

// Trace describes a trace buffer the host may read out for post-mortem
// logging (fw_rsc_trace).
type Trace struct {
	DA, Len uint32
	Name    string
}

// Encode implements Entry.
func (t Trace) Encode() []byte {
	b := make([]byte, 12+nameFieldLen)
	binary.LittleEndian.PutUint32(b[0:4], TypeTrace)
	binary.LittleEndian.PutUint32(b[4:8], t.DA)
	binary.LittleEndian.PutUint32(b[8:12], t.Len)
	putName(b[12:], t.Name)
	return b
}

// Build serializes entries into the wire resource table: a header
// (version, count, two reserved words, one offset per entry) followed by
// each entry's bytes in order. Nested VDevVring entries are not counted
// or offset separately — they are part of their owning VDev's Encode
// output.
func Build(version uint32, entries []Entry) []byte {
	n := len(entries)
	headerSize := 4 + 4 + 8 + 4*n

	bodies := make([][]byte, n)
	offsets := make([]uint32, n)
	cursor := uint32(headerSize)

	for i, e := range entries {
		b := e.Encode()
		bodies[i] = b
		offsets[i] = cursor
		cursor += uint32(len(b))
	}

	buf := make([]byte, cursor)
	binary.LittleEndian.PutUint32(buf[0:4], version)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(n))

	for i, off := range offsets {
		binary.LittleEndian.PutUint32(buf[16+4*i:], off)
	}

	pos := headerSize
	for _, b := range bodies {
		pos += copy(buf[pos:], b)
	}

	return buf
}
