// Package local is a process-local, goroutine-based reference
// implementation of the collab interfaces, used by this module's tests
// and by cmd/firmware to run a host/slave pairing without real hardware.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package local

import "sync"

// Gate is a mutex-backed collab.Gate. Real firmware uses a non-preemptive
// critical section against same/lower priority work (GateSwi in the
// original TI stack); a mutex gives the same serialization guarantee for
// the goroutines standing in for ISR/task contexts here.
type Gate struct {
	mu sync.Mutex
}

// Enter acquires the gate.
func (g *Gate) Enter() interface{} {
	g.mu.Lock()
	return nil
}

// Leave releases the gate.
func (g *Gate) Leave(interface{}) {
	g.mu.Unlock()
}
