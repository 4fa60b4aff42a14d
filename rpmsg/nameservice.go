package rpmsg

import (
	"errors"
	"fmt"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// nameLen is the fixed name field width of a name-service announcement,
// matching struct rpmsg_ns_msg's char name[RPMSG_NAME_SIZE] in the
// original (RPMSG_NAME_SIZE == 32).
const nameLen = 32

// nsPayloadSize is the wire size of one announcement: name, address,
// flags, each a 32-bit field.
const nsPayloadSize = nameLen + 4 + 4

// NS announcement flags.
const (
	NSCreate  uint32 = 0
	NSDestroy uint32 = 1
)

// ErrNameTooLong is returned by Announce when name, with its terminating
// NUL, does not fit in the fixed nameLen field.
var ErrNameTooLong = errors.New("rpmsg: name-service name must be shorter than 32 bytes")

// Announce sends a one-shot name-service announcement advertising address
// under name, addressed to the peer's name-service port, on t's send path:
// a slave-role t sends on the host-direction ring (vqHost), a host-role t
// on vqSlave like any other host send. Binding the announced address to a live endpoint on
// receipt is unimplemented (spec.md Non-goals: no dynamic endpoint
// binding); the announcement is sent and logged on arrival, nothing more.
func Announce(t *Transport, name string, address, flags uint32) error {
	if len(name) >= nameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}

	payload := dirtmake.Bytes(nsPayloadSize, nsPayloadSize)
	copy(payload[:nameLen], name)
	putLE32(payload[nameLen:nameLen+4], address)
	putLE32(payload[nameLen+4:nameLen+8], flags)

	key := t.gate.Enter()
	defer t.gate.Leave(key)

	if !t.putAt(NameServicePort, payload) {
		return errors.New("rpmsg: no buffer available for name-service announcement")
	}
	return nil
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
