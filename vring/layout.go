// Package vring computes the split virtio-ring memory layout and provides
// little-endian accessors to the descriptor table, available ring, and
// used ring that back a VirtQueue. The layout this package computes must
// reproduce the host-side virtio-ring layout exactly for a given (N,
// align) — see usbarmory-tamago's virtio/descriptor.go for the struct
// shapes this generalizes into a parametric (base, N, align) computation.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package vring

const (
	// PageSize is the unit the total ring region size is rounded up to.
	PageSize = 4096

	// DefaultAlign is the alignment used between the available and used
	// halves of the ring, per the wire protocol.
	DefaultAlign = 4096

	descSize     = 16 // addr(8) + len(4) + flags(2) + next(2)
	availHdrSize = 4  // flags(2) + idx(2)
	availElem    = 2  // one ring index
	usedHdrSize  = 4  // flags(2) + idx(2)
	usedElem     = 8  // id(4) + len(4)
	trailerSize  = 2  // used_event / avail_event
)

// Descriptor flags.
const (
	DescNext  = 1 << 0
	DescWrite = 1 << 1
)

// Avail/used flag bits.
const (
	AvailFNoInterrupt = 1 << 0
	UsedFNoNotify     = 1 << 0
)

// Layout describes the parameters needed to place a split virtio ring in a
// shared-memory region.
type Layout struct {
	// Base is the physical base address of the region.
	Base uint32
	// N is the number of descriptors/ring slots. Must be a power of two.
	N uint16
	// Align is the alignment boundary between the descriptor+available
	// half and the used half.
	Align uint32
}

// Addrs holds the computed placement of the three ring sections plus the
// total region size (rounded up to PageSize).
type Addrs struct {
	Desc  uint32
	Avail uint32
	Used  uint32
	Size  uint32
}

func alignUp(x, align uint32) uint32 {
	if align == 0 {
		return x
	}
	return (x + align - 1) &^ (align - 1)
}

// Compute returns the addresses of the descriptor table, available ring,
// and used ring for this layout, matching the host-side virtio-ring
// placement bit-for-bit.
func (l Layout) Compute() Addrs {
	n := uint32(l.N)

	desc := l.Base
	avail := alignUp(desc+n*descSize, l.Align)
	used := alignUp(avail+availHdrSize+n*availElem+trailerSize, l.Align)
	size := alignUp(used+usedHdrSize+n*usedElem+trailerSize, PageSize)

	return Addrs{Desc: desc, Avail: avail, Used: used, Size: size}
}
