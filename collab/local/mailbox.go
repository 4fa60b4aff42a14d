package local

import "sync"

// Bus connects a set of in-process Mailbox endpoints, standing in for the
// physical mailbox/inter-core interrupt hardware: Send on one endpoint
// invokes the handler registered on the target endpoint, synchronously,
// in the caller's goroutine (modeling an ISR that runs to completion
// before the sender's kick returns).
type Bus struct {
	mu       sync.Mutex
	handlers map[uint16]func(uint32)
}

// NewBus creates an empty mailbox bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[uint16]func(uint32))}
}

// Endpoint returns the Mailbox view of the bus for processor id self.
func (b *Bus) Endpoint(self uint16) *Mailbox {
	return &Mailbox{bus: b, self: self}
}

// Mailbox is a collab.Mailbox backed by a Bus.
type Mailbox struct {
	bus  *Bus
	self uint16
}

// Register installs the handler for this endpoint.
func (m *Mailbox) Register(handler func(msg uint32)) {
	m.bus.mu.Lock()
	m.bus.handlers[m.self] = handler
	m.bus.mu.Unlock()
}

// Send delivers msg to peerID's registered handler, if any.
func (m *Mailbox) Send(peerID uint16, msg uint32) {
	m.bus.mu.Lock()
	h := m.bus.handlers[peerID]
	m.bus.mu.Unlock()

	if h != nil {
		h(msg)
	}
}
