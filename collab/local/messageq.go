package local

import (
	"encoding/binary"
	"sync"

	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/remoteproc/rpmsg-core/collab"
)

// msgHeaderSize is the embedded header every MessageQ message carries on
// the wire: a total-size field and a destination-queue field, read back
// by GetMsgSize/GetDstQueue exactly as the upstream MessageQ_Msg header
// is read back by MessageQ_getMsgSize/MessageQ_getDstQueue.
const msgHeaderSize = 8

// MessageQ is an in-process collab.MessageQ: named queues are plain
// slices of messages behind a mutex, and Alloc and NewMessage use
// bytedance/gopkg's dirtmake to skip the zero-fill make() already
// performs on a hot allocate-copy-free path, the same use dirtmake gets
// in cloudwego-gopkg's bufiox/bytesbuf.go and protocol/thrift/fastcodec.go.
type MessageQ struct {
	mu        sync.Mutex
	queues    map[uint32][][]byte
	transport map[uint16]collab.Transport
}

// NewMessageQ creates an empty MessageQ.
func NewMessageQ() *MessageQ {
	return &MessageQ{
		queues:    make(map[uint32][][]byte),
		transport: make(map[uint16]collab.Transport),
	}
}

// NewMessage builds a raw MessageQ message addressed to dstQueue,
// carrying payload, for use as input to a transport's Put.
func NewMessage(dstQueue uint32, payload []byte) []byte {
	msg := dirtmake.Bytes(msgHeaderSize+len(payload), msgHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(msg[0:4], uint32(len(msg)))
	binary.LittleEndian.PutUint32(msg[4:8], dstQueue)
	copy(msg[msgHeaderSize:], payload)
	return msg
}

// Payload strips the embedded header off a message built by NewMessage.
func Payload(msg []byte) []byte {
	return msg[msgHeaderSize:]
}

// Put enqueues msg onto queueID.
func (q *MessageQ) Put(queueID uint32, msg []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.queues[queueID] = append(q.queues[queueID], msg)
	return true
}

// Drain returns and clears all messages enqueued on queueID.
func (q *MessageQ) Drain(queueID uint32) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs := q.queues[queueID]
	delete(q.queues, queueID)
	return msgs
}

// Alloc allocates a size-byte message. heapID is accepted for interface
// parity with the upstream API but this reference implementation has a
// single heap.
func (q *MessageQ) Alloc(heapID uint32, size int) []byte {
	return dirtmake.Bytes(size, size)
}

// Free is a no-op: Go's GC reclaims the backing array.
func (q *MessageQ) Free(msg []byte) {}

// RegisterTransport records t as the outbound route for peerID.
func (q *MessageQ) RegisterTransport(t collab.Transport, peerID uint16, priority int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.transport[peerID] = t
	return true
}

// UnregisterTransport removes the outbound route for peerID.
func (q *MessageQ) UnregisterTransport(peerID uint16, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.transport, peerID)
}

// Send hands msg to the transport registered for peerID, as application
// code driving an outbound MessageQ_put would.
func (q *MessageQ) Send(peerID uint16, msg []byte) bool {
	q.mu.Lock()
	t := q.transport[peerID]
	q.mu.Unlock()

	if t == nil {
		return false
	}

	return t.Put(msg)
}

// GetMsgSize reads the embedded total-size field.
func (q *MessageQ) GetMsgSize(msg []byte) int {
	return int(binary.LittleEndian.Uint32(msg[0:4]))
}

// GetDstQueue reads the embedded destination-queue field.
func (q *MessageQ) GetDstQueue(msg []byte) uint32 {
	return binary.LittleEndian.Uint32(msg[4:8])
}

// SetMsgTrace is a no-op; present for collab.MessageQ interface parity.
func (q *MessageQ) SetMsgTrace(msg []byte, trace bool) {}
