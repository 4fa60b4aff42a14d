// Package dispatch implements the mailbox ISR entry point: it filters
// control messages from data messages and routes data messages to the
// registered virtqueue.Queue by id, per spec.md §4.D.
//
// Grounded on original_source/src/ti/ipc/rpmsg/VirtQueue.c's
// VirtQueue_isr, including both its APPM3_IS_HOST and default branches
// (the secondary-core forwarding rule, SPEC_FULL.md §4).
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package dispatch

import (
	"log"
	"sync/atomic"

	"github.com/remoteproc/rpmsg-core/collab"
	"github.com/remoteproc/rpmsg-core/virtqueue"
)

// Control message codes. The high 16 bits being set is the namespace
// boundary between control and data codes (spec.md §9); NUM_QUEUES data
// codes (0..4) never collide with it.
const (
	Ready         uint32 = 0xFFFFFF00
	StateChange   uint32 = 0xFFFFFF01
	Crash         uint32 = 0xFFFFFF02
	EchoRequest   uint32 = 0xFFFFFF03
	EchoReply     uint32 = 0xFFFFFF04
	AbortRequest  uint32 = 0xFFFFFF05
	FlushCache    uint32 = 0xFFFFFF06
	Hibernation   uint32 = 0xFFFFFF07
	controlNSMask uint32 = 0xFFFF0000
)

// NumQueues bounds the data-message id space (spec.md §3: 0..4).
const NumQueues = 5

// Dispatcher is the stateless-per-message ISR entry point. The only
// cross-message state it owns is the one-shot synced flag startup.Sync
// polls.
type Dispatcher struct {
	// SelfID is this core's processor id. Handle does not read it;
	// forwarding is decided by SecondaryQueueIDs alone.
	SelfID uint16
	// PeerID is the processor id to reply to for ECHO_REQUEST.
	PeerID uint16

	// Secondary, if non-nil, is the mailbox of a paired secondary core
	// this dispatcher forwards data messages to. SecondaryID is its
	// processor id; SecondaryQueueIDs names which queue ids are destined
	// for it.
	Secondary         collab.Mailbox
	SecondaryID       uint16
	SecondaryQueueIDs map[uint32]bool

	Power  collab.Power
	Cache  collab.Cache
	queues [NumQueues]*virtqueue.Queue

	mailbox collab.Mailbox
	synced  atomic.Bool
	logger  *log.Logger
}

// New constructs a Dispatcher. mailbox is the local mailbox endpoint this
// dispatcher's Handle is registered against.
func New(selfID, peerID uint16, mailbox collab.Mailbox, power collab.Power, cache collab.Cache, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}

	return &Dispatcher{
		SelfID:            selfID,
		PeerID:            peerID,
		SecondaryQueueIDs: map[uint32]bool{},
		Power:             power,
		Cache:             cache,
		mailbox:           mailbox,
		logger:            logger,
	}
}

// ReportCrash posts the crash control code to processor 0, matching
// postCrashToMailbox in the original: called from a panic-recovery
// wrapper around deferred work so a fatal fault on one core is visible to
// the other before the fault otherwise propagates.
func ReportCrash(mailbox collab.Mailbox) {
	mailbox.Send(0, Crash)
}

// Register installs q in the dispatch registry under q.ID.
func (d *Dispatcher) Register(q *virtqueue.Queue) {
	d.queues[q.ID] = q
}

// Synced reports whether the peer-liveness handshake has completed.
func (d *Dispatcher) Synced() bool {
	return d.synced.Load()
}

func (d *Dispatcher) markSynced() {
	d.synced.Store(true)
}

// Handle is the single entry point invoked with the integer delivered by
// the mailbox ISR.
func (d *Dispatcher) Handle(msg uint32) {
	d.logger.Printf("dispatch: received msg=0x%x", msg)

	switch msg {
	case Ready:
		return

	case EchoRequest:
		d.mailbox.Send(d.PeerID, EchoReply)
		d.markSynced()
		return

	case EchoReply:
		d.markSynced()
		return

	case AbortRequest:
		d.logger.Printf("dispatch: crash on demand")
		panic("dispatch: ABORT_REQUEST received")

	case FlushCache:
		d.Cache.WritebackAll()
		return

	case Hibernation:
		if d.Secondary != nil {
			d.Secondary.Send(d.SecondaryID, Hibernation)
		}
		d.Power.Suspend()
		return

	case StateChange:
		// Optional in the original protocol; no action taken here.
		return
	}

	if msg&controlNSMask != 0 {
		// Out-of-band control code this dispatcher doesn't recognize.
		return
	}

	if d.Secondary != nil && d.SecondaryQueueIDs[msg] {
		d.Secondary.Send(d.SecondaryID, msg)
		return
	}

	if msg >= NumQueues {
		return
	}

	if q := d.queues[msg]; q != nil {
		q.Invoke()
	}
}
