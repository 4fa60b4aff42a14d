// Command firmware demonstrates one host/slave RPMsg pairing end to end:
// ring and buffer pool setup, the startup handshake, name-service
// announcement, and a MessageQ round trip in both directions. It stands
// in for the teacher's example/ tree, wiring every package in this
// module into one running process instead of real firmware and real
// shared memory.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package main

import (
	"log"
	"os"
	"runtime"

	"github.com/remoteproc/rpmsg-core/addr"
	"github.com/remoteproc/rpmsg-core/bufpool"
	"github.com/remoteproc/rpmsg-core/collab"
	"github.com/remoteproc/rpmsg-core/collab/local"
	"github.com/remoteproc/rpmsg-core/dispatch"
	"github.com/remoteproc/rpmsg-core/rpmsg"
	"github.com/remoteproc/rpmsg-core/rsctable"
	"github.com/remoteproc/rpmsg-core/startup"
	"github.com/remoteproc/rpmsg-core/virtqueue"
	"github.com/remoteproc/rpmsg-core/vring"
)

const (
	ringN    = 256
	ringAlgn = 4096
	bufSize  = 512

	queueHost  = 0
	queueSlave = 1
)

// procNames is the symbolic peer table a real board would resolve
// through MultiProc; cmd/firmware stands in for that with
// collab.ProcResolver instead of hand-carrying numeric ids itself.
var procNames = map[string]uint16{"HOST": 0, "CORE0": 1}

func main() {
	logger := log.New(os.Stdout, "", log.Ltime|log.Lmicroseconds)

	hostResolver := local.NewProcResolver(procNames, procNames["HOST"])
	slaveResolver := local.NewProcResolver(procNames, procNames["CORE0"])

	hostProcID := hostResolver.Self()
	slaveProcID, ok := hostResolver.GetProcID("CORE0")
	if !ok {
		log.Fatal("firmware: unknown peer CORE0")
	}

	table := rsctable.Default(rsctable.Config{
		VRing0DA: rsctable.DAUnallocated, VRing1DA: rsctable.DAUnallocated,
		VRingAlign: ringAlgn, VRingNum: ringN,
		DataDA: 0x80000000, DataLen: 0x100000,
		TraceDA: 0x9f000000, TraceLen: 0x8000,
		IPCDA: 0xa0000000, IPCPA: 0xa9000000, IPCLen: bufSize * ringN * 2,
	})
	logger.Printf("firmware: resource table is %d bytes", len(table))

	bus := local.NewBus()
	hostMailbox := bus.Endpoint(hostProcID)
	slaveMailbox := bus.Endpoint(slaveProcID)

	ringMemHost := make([]byte, vring.Layout{N: ringN, Align: ringAlgn}.Compute().Size)
	ringHost, err := vring.New(ringMemHost, ringN, ringAlgn)
	must(err)

	ringMemSlave := make([]byte, vring.Layout{N: ringN, Align: ringAlgn}.Compute().Size)
	ringSlave, err := vring.New(ringMemSlave, ringN, ringAlgn)
	must(err)

	poolMem := make([]byte, ringN*2*bufSize)
	pool, err := bufpool.New(poolMem, 0, ringN*2, bufSize)
	must(err)

	vqHostAtHost := virtqueue.New(virtqueue.Config{
		ID: queueHost, PeerID: slaveProcID, Role: virtqueue.RoleHost,
		Ring: ringHost, Translator: addr.Identity(), BufSize: bufSize,
		Mailbox: hostMailbox, Logger: logger,
	})
	vqHostAtSlave := virtqueue.New(virtqueue.Config{
		ID: queueHost, PeerID: hostProcID, Role: virtqueue.RoleSlave,
		Ring: ringHost, Translator: addr.Identity(), BufSize: bufSize,
		Mailbox: slaveMailbox, Logger: logger,
	})
	vqSlaveAtHost := virtqueue.New(virtqueue.Config{
		ID: queueSlave, PeerID: slaveProcID, Role: virtqueue.RoleHost,
		Ring: ringSlave, Translator: addr.Identity(), BufSize: bufSize,
		Mailbox: hostMailbox, Logger: logger,
	})
	vqSlaveAtSlave := virtqueue.New(virtqueue.Config{
		ID: queueSlave, PeerID: hostProcID, Role: virtqueue.RoleSlave,
		Ring: ringSlave, Translator: addr.Identity(), BufSize: bufSize,
		Mailbox: slaveMailbox, Logger: logger,
	})

	hostDispatcher := dispatch.New(hostProcID, slaveProcID, hostMailbox, &local.Power{}, &local.Cache{}, logger)
	slaveDispatcher := dispatch.New(slaveProcID, hostProcID, slaveMailbox, &local.Power{}, &local.Cache{}, logger)
	hostDispatcher.Register(vqHostAtHost)
	hostDispatcher.Register(vqSlaveAtHost)
	slaveDispatcher.Register(vqHostAtSlave)
	slaveDispatcher.Register(vqSlaveAtSlave)

	// The slave registers its ISR first, as it would at boot, so it is
	// ready before the host's READY/ECHO_REQUEST arrive.
	must(startup.Sync(startup.Config{
		IsHost: false, Mailbox: slaveMailbox, Dispatcher: slaveDispatcher,
		Power: &local.Power{}, ProcResolver: slaveResolver, PeerName: "HOST", Logger: logger,
	}))
	must(startup.Sync(startup.Config{
		IsHost: true, Regions: []startup.Zeroer{ringHost, ringSlave},
		Mailbox: hostMailbox, Dispatcher: hostDispatcher,
		Power: &local.Power{}, ProcResolver: hostResolver, PeerName: "CORE0", Logger: logger,
	}))
	logger.Printf("firmware: startup handshake complete")

	hostMQ := local.NewMessageQ()
	slaveMQ := local.NewMessageQ()

	newWorkerFor := func(mailbox collab.Mailbox) func(fn func()) collab.DeferredWork {
		return func(fn func()) collab.DeferredWork {
			return local.NewWorker(recoverInto(fn, mailbox, logger))
		}
	}

	hostTransport, err := rpmsg.New(rpmsg.Config{
		Role: virtqueue.RoleHost, RemoteProcID: slaveProcID,
		VQHost: vqHostAtHost, VQSlave: vqSlaveAtHost, Pool: pool,
		Gate: &local.Gate{}, MessageQ: hostMQ, Cache: &local.Cache{},
		NewWorker: newWorkerFor(hostMailbox), Logger: logger,
	})
	must(err)

	slaveTransport, err := rpmsg.New(rpmsg.Config{
		Role: virtqueue.RoleSlave, RemoteProcID: hostProcID,
		VQHost: vqHostAtSlave, VQSlave: vqSlaveAtSlave, Pool: pool,
		Gate: &local.Gate{}, MessageQ: slaveMQ, Cache: &local.Cache{},
		NewWorker: newWorkerFor(slaveMailbox), Logger: logger,
	})
	must(err)

	// The slave's name-service announcement travels on the host-direction
	// vq (vqHost): the slave-role transport takes the GetAvail/AddUsed path
	// over vqHost (spec.md §4.G). A host-role announcement would go out on
	// vqSlave like any other host send.
	must(rpmsg.Announce(slaveTransport, "rpmsg-sample", 1024, rpmsg.NSCreate))

	const queueID = 42
	hostMQ.Send(slaveProcID, local.NewMessage(queueID, []byte("hello from host")))
	for _, msg := range waitForMessages(slaveMQ, queueID) {
		logger.Printf("firmware: slave received %q", local.Payload(msg))
	}

	slaveMQ.Send(hostProcID, local.NewMessage(queueID, []byte("hello from slave")))
	for _, msg := range waitForMessages(hostMQ, queueID) {
		logger.Printf("firmware: host received %q", local.Payload(msg))
	}
}

// waitForMessages polls Drain until the deferred-work worker on the
// other end of the mailbox has actually run. There is no timeout here,
// the same known limitation startup.Sync carries for its own busy-wait.
func waitForMessages(mq *local.MessageQ, queueID uint32) [][]byte {
	for {
		if msgs := mq.Drain(queueID); len(msgs) > 0 {
			return msgs
		}
		runtime.Gosched()
	}
}

// recoverInto wraps a deferred-work function so a panic inside it posts a
// crash notification before propagating, restoring the original's
// postCrashToMailbox path (SPEC_FULL.md §4) rather than letting the work
// goroutine die silently.
func recoverInto(fn func(), mailbox collab.Mailbox, logger *log.Logger) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("firmware: deferred work panicked: %v", r)
				dispatch.ReportCrash(mailbox)
				panic(r)
			}
		}()
		fn()
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
