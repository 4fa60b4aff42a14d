// Package bufpool partitions a contiguous shared-memory region into N
// fixed-size buffers, mirroring the virtqueue's descriptor addressing.
//
// This adapts usbarmory-tamago's dma.Region (dma/dma.go), which carves
// arbitrarily-sized, aligned slices out of a reserved DMA window with a
// first-fit allocator. RPMsg's buffer pool never varies its slice size or
// frees out of order, so the first-fit bookkeeping is dropped in favor of
// direct fixed-stride indexing — the part of dma.Region this keeps is the
// "a byte region is handed out as addressable, fixed-location slices"
// shape, not its allocator.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package bufpool

import "fmt"

// Pool is N fixed-size buffers carved out of one contiguous region.
type Pool struct {
	mem     []byte
	base    uint32
	bufSize int
	n       int
}

// New wraps mem, whose virtual base address is base, as a pool of n
// buffers of bufSize bytes each. mem must be at least n*bufSize long.
func New(mem []byte, base uint32, n, bufSize int) (*Pool, error) {
	need := n * bufSize

	if len(mem) < need {
		return nil, fmt.Errorf("bufpool: region too small: have %d, need %d", len(mem), need)
	}

	return &Pool{mem: mem, base: base, bufSize: bufSize, n: n}, nil
}

// Len returns the number of buffers in the pool.
func (p *Pool) Len() int {
	return p.n
}

// BufSize returns the size, in bytes, of each buffer.
func (p *Pool) BufSize() int {
	return p.bufSize
}

// Slot returns the backing bytes of buffer i.
func (p *Pool) Slot(i int) []byte {
	off := i * p.bufSize
	return p.mem[off : off+p.bufSize]
}

// VA returns the virtual address of buffer i, suitable for use as the
// buf argument to virtqueue.Queue.AddAvail.
func (p *Pool) VA(i int) uint32 {
	return p.base + uint32(i*p.bufSize)
}

// Bytes resolves a virtual address previously returned by VA (or
// translated back from a descriptor) to the backing buffer bytes.
func (p *Pool) Bytes(va uint32) ([]byte, error) {
	if va < p.base {
		return nil, fmt.Errorf("bufpool: address 0x%x below pool base 0x%x", va, p.base)
	}

	off := int(va - p.base)

	if off%p.bufSize != 0 || off/p.bufSize >= p.n {
		return nil, fmt.Errorf("bufpool: address 0x%x is not a buffer boundary", va)
	}

	return p.mem[off : off+p.bufSize], nil
}
