// Package addr translates between the firmware-visible virtual address of
// a shared buffer and the host-visible physical address stored in ring
// descriptors.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package addr

// Translator converts addresses within a single shared-memory IPC window.
// Mask selects the bits that vary inside the window; VABase and PABase
// supply the fixed high bits on the firmware and host sides respectively.
// A zero-value Translator has Mask == 0 and maps every address to its
// base; use Identity for the no-remapping translation that tests which
// don't care about the host/firmware aliasing want.
type Translator struct {
	Mask   uint32
	VABase uint32
	PABase uint32
}

// Identity returns a Translator that performs no address remapping.
func Identity() Translator {
	return Translator{Mask: 0xffffffff}
}

// PA translates a local virtual address to the physical address written
// into a descriptor for the peer to read.
func (t Translator) PA(va uint32) uint32 {
	return (va & t.Mask) | t.PABase
}

// VA translates a descriptor's physical address back into a local virtual
// address.
func (t Translator) VA(pa uint32) uint32 {
	return (pa & t.Mask) | t.VABase
}
