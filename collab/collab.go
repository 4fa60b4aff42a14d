// Package collab declares the external collaborator interfaces the core
// runtime is built against: the mailbox/inter-core interrupt driver, the
// scheduler's deferrable-work and gate primitives, power management,
// cache maintenance, processor-id resolution, and the upper-layer
// MessageQ facility. spec.md treats all of these as out of scope,
// specified only through the interface the core uses; collab/local
// supplies one process-local implementation of each so the core can run
// and be tested without real hardware.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package collab

// Mailbox models the inter-core interrupt driver: send an integer, and
// invoke a registered handler when one arrives on an ISR.
type Mailbox interface {
	// Register installs the handler invoked, from ISR context, for every
	// value received on this mailbox.
	Register(handler func(msg uint32))
	// Send interrupts peerID with the given payload.
	Send(peerID uint16, msg uint32)
}

// Gate is a non-preemptive critical section, reentrant on leave, that
// serializes vring index updates against concurrent deferred work and
// ISR-initiated callbacks.
type Gate interface {
	Enter() (key interface{})
	Leave(key interface{})
}

// DeferredWork is a schedulable unit of work posted from ISR context and
// run later at task level, modeling the scheduler's deferrable-work
// primitive (a BIOS Swi/Hwi-posted task in the teacher's domain).
type DeferredWork interface {
	// Post schedules the work function to run, asynchronously with
	// respect to the caller.
	Post()
}

// Power models the power-management collaborator.
type Power interface {
	Init() error
	Suspend()
}

// Cache models the cache maintenance collaborator.
type Cache interface {
	WritebackAll()
}

// ProcResolver resolves symbolic processor names to numeric ids, and
// reports which id the current core holds.
type ProcResolver interface {
	GetProcID(name string) (id uint16, ok bool)
	Self() uint16
}

// MessageQ is the upward interface to the local addressable-queue
// messaging facility RPMsg delivers datagrams into.
type MessageQ interface {
	// Put enqueues msg onto queueID. Returns false if the queue does not
	// exist or is full.
	Put(queueID uint32, msg []byte) bool
	// Alloc allocates a message of size bytes from heapID.
	Alloc(heapID uint32, size int) []byte
	// Free releases a message previously returned by Alloc.
	Free(msg []byte)
	// RegisterTransport registers this transport as the route for
	// outbound traffic destined for peerID, at the given priority.
	RegisterTransport(t Transport, peerID uint16, priority int) bool
	// UnregisterTransport reverses RegisterTransport.
	UnregisterTransport(peerID uint16, priority int)
	// GetMsgSize returns the size, in bytes, embedded in a message
	// previously allocated with Alloc.
	GetMsgSize(msg []byte) int
	// GetDstQueue returns the destination queue id embedded in msg.
	GetDstQueue(msg []byte) uint32
	// SetMsgTrace toggles tracing on msg; present for interface
	// completeness with the upstream MessageQ API, unused by this core.
	SetMsgTrace(msg []byte, trace bool)
}

// Transport is the callback surface MessageQ uses to hand a message to a
// registered transport for delivery to a remote processor.
type Transport interface {
	Put(msg []byte) bool
}
