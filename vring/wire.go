package vring

import (
	"encoding/binary"
	"fmt"
)

// Ring is a live view over a shared-memory region holding one split
// virtio ring: a descriptor table, an available ring, and a used ring.
// All multi-byte fields are little-endian, per the wire protocol.
//
// Ring itself does no locking — callers (virtqueue.Queue) are
// responsible for holding whatever gate the protocol requires around a
// sequence of reads/writes, same as the upstream VirtQueue.c leaves
// locking to its TransportVirtio caller.
type Ring struct {
	mem   []byte
	addrs Addrs
	n     uint16
}

// New wraps mem as a ring of n descriptors aligned to align. mem must be
// at least as long as the computed layout's Size.
func New(mem []byte, n uint16, align uint32) (*Ring, error) {
	addrs := Layout{N: n, Align: align}.Compute()

	if len(mem) < int(addrs.Size) {
		return nil, fmt.Errorf("vring: buffer too small: have %d, need %d", len(mem), addrs.Size)
	}

	return &Ring{mem: mem, addrs: addrs, n: n}, nil
}

// Size returns the total byte size of the ring region.
func (r *Ring) Size() uint32 {
	return r.addrs.Size
}

// N returns the configured number of descriptors.
func (r *Ring) N() uint16 {
	return r.n
}

// Zero clears the entire ring region. Called by the host side before the
// slave reads from shared memory for the first time.
func (r *Ring) Zero() {
	for i := range r.mem[:r.addrs.Size] {
		r.mem[i] = 0
	}
}

func (r *Ring) le16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(r.mem[off:])
}

func (r *Ring) putLe16(off uint32, v uint16) {
	binary.LittleEndian.PutUint16(r.mem[off:], v)
}

func (r *Ring) le32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(r.mem[off:])
}

func (r *Ring) putLe32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(r.mem[off:], v)
}

func (r *Ring) le64(off uint32) uint64 {
	return binary.LittleEndian.Uint64(r.mem[off:])
}

func (r *Ring) putLe64(off uint32, v uint64) {
	binary.LittleEndian.PutUint64(r.mem[off:], v)
}

// descOffset returns the byte offset of descriptor i.
func (r *Ring) descOffset(i uint16) uint32 {
	return r.addrs.Desc + uint32(i)*descSize
}

// Desc reads descriptor i.
func (r *Ring) Desc(i uint16) (addr uint64, length uint32, flags, next uint16) {
	off := r.descOffset(i)
	return r.le64(off), r.le32(off + 8), r.le16(off + 12), r.le16(off + 14)
}

// SetDesc writes descriptor i.
func (r *Ring) SetDesc(i uint16, addr uint64, length uint32, flags, next uint16) {
	off := r.descOffset(i)
	r.putLe64(off, addr)
	r.putLe32(off+8, length)
	r.putLe16(off+12, flags)
	r.putLe16(off+14, next)
}

// AvailFlags reads the available ring's flags field.
func (r *Ring) AvailFlags() uint16 {
	return r.le16(r.addrs.Avail)
}

// SetAvailFlags writes the available ring's flags field.
func (r *Ring) SetAvailFlags(v uint16) {
	r.putLe16(r.addrs.Avail, v)
}

// AvailIdx reads the available ring's free-running index.
func (r *Ring) AvailIdx() uint16 {
	return r.le16(r.addrs.Avail + 2)
}

// SetAvailIdx writes the available ring's free-running index. Callers must
// have written the corresponding ring slot and called Fence first.
func (r *Ring) SetAvailIdx(v uint16) {
	r.putLe16(r.addrs.Avail+2, v)
}

// AvailRing reads slot i (mod N already applied by the caller) of the
// available ring.
func (r *Ring) AvailRing(i uint16) uint16 {
	return r.le16(r.addrs.Avail + availHdrSize + uint32(i)*availElem)
}

// SetAvailRing writes slot i of the available ring.
func (r *Ring) SetAvailRing(i uint16, head uint16) {
	r.putLe16(r.addrs.Avail+availHdrSize+uint32(i)*availElem, head)
}

// UsedFlags reads the used ring's flags field.
func (r *Ring) UsedFlags() uint16 {
	return r.le16(r.addrs.Used)
}

// SetUsedFlags writes the used ring's flags field.
func (r *Ring) SetUsedFlags(v uint16) {
	r.putLe16(r.addrs.Used, v)
}

// UsedIdx reads the used ring's free-running index.
func (r *Ring) UsedIdx() uint16 {
	return r.le16(r.addrs.Used + 2)
}

// SetUsedIdx writes the used ring's free-running index. Callers must have
// written the corresponding ring slot and called Fence first.
func (r *Ring) SetUsedIdx(v uint16) {
	r.putLe16(r.addrs.Used+2, v)
}

// UsedRing reads slot i of the used ring.
func (r *Ring) UsedRing(i uint16) (id uint32, length uint32) {
	off := r.addrs.Used + usedHdrSize + uint32(i)*usedElem
	return r.le32(off), r.le32(off + 4)
}

// SetUsedRing writes slot i of the used ring.
func (r *Ring) SetUsedRing(i uint16, id uint32, length uint32) {
	off := r.addrs.Used + usedHdrSize + uint32(i)*usedElem
	r.putLe32(off, id)
	r.putLe32(off+4, length)
}

// Fence marks the ordering point between a descriptor/ring-slot write and
// the subsequent idx write that publishes it. On real hardware this is a
// store-store barrier; in this port the actual cross-goroutine visibility
// comes from the Gate each VirtQueue operation is required to hold, so
// Fence is a no-op retained so call sites mirror the wire protocol they
// implement.
func (r *Ring) Fence() {}
