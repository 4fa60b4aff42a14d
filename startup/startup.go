// Package startup implements the host/slave role-dependent
// initialization and ready/echo handshake described in spec.md §4.E.
//
// Grounded on VirtQueue_startup in
// original_source/src/ti/ipc/rpmsg/VirtQueue.c: resolve peer ids, zero
// ring memory (host only), register the ISR, and (host only) send
// READY then ECHO_REQUEST, busy-waiting for the reply.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package startup

import (
	"fmt"
	"log"
	"runtime"

	"github.com/remoteproc/rpmsg-core/collab"
	"github.com/remoteproc/rpmsg-core/dispatch"
)

// Zeroer clears a shared-memory region. vring.Ring implements it;
// bufpool.Pool does not.
type Zeroer interface {
	Zero()
}

// Config parameterizes Sync.
type Config struct {
	IsHost bool
	// Regions are the ring + buffer pool regions the host must zero
	// before the slave can read from them. Ignored when IsHost is false.
	Regions []Zeroer

	Mailbox    collab.Mailbox
	Dispatcher *dispatch.Dispatcher
	Power      collab.Power

	// PeerID is the processor id addressed by the host's READY/ECHO_REQUEST.
	// Ignored when ProcResolver is set.
	PeerID uint16

	// ProcResolver, if set, resolves PeerName to the numeric peer id used
	// in place of PeerID, restoring MultiProc_getId-style symbolic peer
	// lookup (spec.md §4.E step 1) instead of requiring callers to
	// hand-carry numeric ids.
	ProcResolver collab.ProcResolver
	PeerName     string

	Logger *log.Logger
}

// Sync performs the startup sequence and, for the host, blocks until the
// slave's ECHO_REPLY is observed. There is no timeout: an unresponsive
// peer hangs this call forever, a known limitation preserved from the
// original (spec.md §7, §9).
func Sync(cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	if err := cfg.Power.Init(); err != nil {
		return fmt.Errorf("startup: power init: %w", err)
	}

	peerID := cfg.PeerID
	if cfg.ProcResolver != nil {
		id, ok := cfg.ProcResolver.GetProcID(cfg.PeerName)
		if !ok {
			return fmt.Errorf("startup: unknown peer %q", cfg.PeerName)
		}
		peerID = id
	}

	if cfg.IsHost {
		for _, r := range cfg.Regions {
			r.Zero()
		}
	}

	cfg.Mailbox.Register(cfg.Dispatcher.Handle)

	if cfg.IsHost {
		cfg.Mailbox.Send(peerID, dispatch.Ready)
		cfg.Mailbox.Send(peerID, dispatch.EchoRequest)

		for !cfg.Dispatcher.Synced() {
			runtime.Gosched()
		}
	}

	logger.Printf("startup: passed (isHost=%v)", cfg.IsHost)

	return nil
}
