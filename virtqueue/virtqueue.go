// Package virtqueue implements one end of one virtio split ring: local
// cursors (last_avail_idx, last_used_idx, num_free), role (host or
// slave), and the add/get/kick operations described in spec.md §4.C.
//
// This generalizes usbarmory-tamago's virtio.VirtualQueue (a fixed,
// device-side MMIO ring consumer) and is grounded step-for-step on
// original_source/src/ti/ipc/rpmsg/VirtQueue.c's
// VirtQueue_addAvailBuf/addUsedBuf/getAvailBuf/getUsedBuf/kick, the
// asymmetric host/slave peer across one ring pair this spec requires.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package virtqueue

import (
	"errors"
	"fmt"
	"log"

	"github.com/remoteproc/rpmsg-core/addr"
	"github.com/remoteproc/rpmsg-core/collab"
	"github.com/remoteproc/rpmsg-core/vring"
)

// Role distinguishes the two asymmetric peers of a ring pair. The host
// allocates and primes buffers; the slave only reuses them.
type Role int

const (
	RoleHost Role = iota
	RoleSlave
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "slave"
}

// ErrFull is returned by AddAvail when no descriptor slots remain.
var ErrFull = errors.New("virtqueue: ring full")

// ErrEmpty is returned by GetAvail/GetUsed when no buffer is ready.
var ErrEmpty = errors.New("virtqueue: ring empty")

// Queue is one local end of one virtio split ring.
//
// Queue performs no locking of its own: every operation below must run
// under whatever Gate the owning transport holds, exactly as
// VirtQueue.c's callers wrap every sequence in GateSwi_enter/leave rather
// than locking inside VirtQueue itself.
type Queue struct {
	// ID is this queue's identity within the firmware instance (0..4),
	// used both as the registry key and as the mailbox payload on kick.
	ID int
	// PeerID is the remote processor id interrupted on kick.
	PeerID uint16
	// Role is host or slave.
	Role Role

	ring       *vring.Ring
	translator addr.Translator
	bufSize    int

	lastAvailIdx uint16
	lastUsedIdx  uint16
	numFree      uint16

	// Callback is the upcall invoked by the dispatcher when this queue's
	// id is signaled. Arg is opaque state the callback resolves itself
	// (a deferred-work handle, typically), breaking the direct
	// queue<->transport ownership cycle the original ties through
	// arg/Swi_handle.
	Callback func(q *Queue, arg interface{})
	Arg      interface{}

	mailbox collab.Mailbox
	logger  *log.Logger
}

// Config parameterizes New.
type Config struct {
	ID         int
	PeerID     uint16
	Role       Role
	Ring       *vring.Ring
	Translator addr.Translator
	BufSize    int
	Mailbox    collab.Mailbox
	Logger     *log.Logger
}

// New constructs a Queue over an already-placed ring. numFree starts at
// N: whichever side is responsible for priming availability (see
// spec.md §4.F) calls AddAvail that many times during transport
// construction.
func New(cfg Config) *Queue {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Queue{
		ID:         cfg.ID,
		PeerID:     cfg.PeerID,
		Role:       cfg.Role,
		ring:       cfg.Ring,
		translator: cfg.Translator,
		bufSize:    cfg.BufSize,
		numFree:    cfg.Ring.N(),
		mailbox:    cfg.Mailbox,
		logger:     logger,
	}
}

// N returns the ring's descriptor count.
func (q *Queue) N() uint16 {
	return q.ring.N()
}

// NumFree returns the number of descriptors this side currently
// considers available for use.
func (q *Queue) NumFree() uint16 {
	return q.numFree
}

// AddAvail makes bufVA available to the consumer side. Caller: the
// producer-of-available side (host for a host-role ring, host for a
// slave-role ring when priming it).
func (q *Queue) AddAvail(bufVA uint32) (numFree int, err error) {
	if q.numFree == 0 {
		return 0, ErrFull
	}

	n := q.ring.N()
	idx := q.ring.AvailIdx()
	slot := idx % n

	pa := q.translator.PA(bufVA)
	q.ring.SetDesc(slot, uint64(pa), uint32(q.bufSize), 0, 0)
	q.ring.SetAvailRing(slot, slot)
	q.ring.Fence()
	q.ring.SetAvailIdx(idx + 1)
	q.numFree--

	q.logger.Printf("virtqueue[%d]: addAvail num_free=%d avail.idx=%d", q.ID, q.numFree, idx+1)

	return int(q.numFree), nil
}

// GetAvail returns the next buffer the producer has made available.
// Caller: the consumer-of-available side (the slave; a host-role
// transport drains its receive ring with GetUsed instead).
func (q *Queue) GetAvail() (head uint16, bufVA uint32, err error) {
	n := q.ring.N()

	if q.lastAvailIdx == q.ring.AvailIdx() {
		if q.Role == RoleHost {
			q.ring.SetUsedFlags(q.ring.UsedFlags() &^ vring.UsedFNoNotify)

			if q.lastAvailIdx == q.ring.AvailIdx() {
				return 0, 0, ErrEmpty
			}
		} else {
			return 0, 0, ErrEmpty
		}
	}

	if q.Role == RoleHost {
		q.ring.SetUsedFlags(q.ring.UsedFlags() | vring.UsedFNoNotify)
	}

	slot := q.lastAvailIdx % n
	head = q.ring.AvailRing(slot)
	q.lastAvailIdx++

	pa, _, _, _ := q.ring.Desc(head)
	bufVA = q.translator.VA(uint32(pa))

	return head, bufVA, nil
}

// AddUsed returns descriptor head to the producer side. Caller: the
// consumer side returning a descriptor it has finished with.
func (q *Queue) AddUsed(head uint16) error {
	n := q.ring.N()

	if head >= n {
		panic(fmt.Sprintf("virtqueue[%d]: invalid descriptor head %d (N=%d)", q.ID, head, n))
	}

	idx := q.ring.UsedIdx()
	slot := idx % n

	q.ring.SetUsedRing(slot, uint32(head), uint32(q.bufSize))
	q.ring.Fence()
	q.ring.SetUsedIdx(idx + 1)

	return nil
}

// GetUsed reclaims the next descriptor the consumer has returned. Caller:
// the producer side reclaiming a used descriptor.
func (q *Queue) GetUsed() (bufVA uint32, err error) {
	if q.lastUsedIdx == q.ring.UsedIdx() {
		return 0, ErrEmpty
	}

	n := q.ring.N()
	slot := q.lastUsedIdx % n

	head, _ := q.ring.UsedRing(slot)
	q.lastUsedIdx++
	q.numFree++

	pa, _, _, _ := q.ring.Desc(uint16(head))
	bufVA = q.translator.VA(uint32(pa))

	return bufVA, nil
}

// Kick notifies the peer that indices advanced, unless the peer has
// asked not to be interrupted.
func (q *Queue) Kick() {
	if q.ring.AvailFlags()&vring.AvailFNoInterrupt != 0 {
		return
	}

	q.mailbox.Send(q.PeerID, uint32(q.ID))
}

// EnableCallback and DisableCallback are stubs reserved for future
// interrupt coalescing, unimplemented upstream
// (VirtQueue_enableCallback/disableCallback) and here.
func (q *Queue) EnableCallback() bool { return false }
func (q *Queue) DisableCallback()     {}

// Invoke runs the registered callback, if any. Called by the dispatcher
// when this queue's id is signaled.
func (q *Queue) Invoke() {
	if q.Callback != nil {
		q.Callback(q, q.Arg)
	}
}
