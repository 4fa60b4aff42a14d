// Package rpmsg implements the framed, endpoint-addressed transport
// layered over a pair of virtqueues (spec.md §4.F), plus the one-shot
// name-service announcement (§4.G).
//
// Grounded on original_source/src/ti/ipc/transports/TransportVirtio.c:
// its RpMsg_Header/Rpmsg_Hdr struct, getTxBuf/TransportVirtio_put/
// TransportVirtio_swiFxn, and sendRpmsg.
//
// https://github.com/remoteproc/rpmsg-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package rpmsg

import "encoding/binary"

// HeaderSize is the fixed header every ring buffer carries ahead of its
// payload: srcEndpoint(4) + dstEndpoint(4) + reserved(4) + dataLen(2) +
// flags(2).
const HeaderSize = 16

// Reserved endpoint ports.
const (
	MessageQPort    = 61
	NameServicePort = 53
)

// localEndpoint is the source endpoint stamped onto every outbound
// MessageQ-bound frame. Real rpmsg endpoints are negotiated per-channel;
// binding one dynamically is out of scope (spec.md Non-goals), so every
// frame this side originates claims the same fixed address, matching the
// single statically-known channel the host side expects.
const localEndpoint = 1024

// Header is the fixed, little-endian frame header prefixing every ring
// buffer's payload.
type Header struct {
	SrcEndpoint uint32
	DstEndpoint uint32
	Reserved    uint32
	DataLen     uint16
	Flags       uint16
}

// Encode writes h into buf[:HeaderSize].
func (h Header) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.SrcEndpoint)
	binary.LittleEndian.PutUint32(buf[4:8], h.DstEndpoint)
	binary.LittleEndian.PutUint32(buf[8:12], h.Reserved)
	binary.LittleEndian.PutUint16(buf[12:14], h.DataLen)
	binary.LittleEndian.PutUint16(buf[14:16], h.Flags)
}

// DecodeHeader reads a Header from buf[:HeaderSize].
func DecodeHeader(buf []byte) Header {
	return Header{
		SrcEndpoint: binary.LittleEndian.Uint32(buf[0:4]),
		DstEndpoint: binary.LittleEndian.Uint32(buf[4:8]),
		Reserved:    binary.LittleEndian.Uint32(buf[8:12]),
		DataLen:     binary.LittleEndian.Uint16(buf[12:14]),
		Flags:       binary.LittleEndian.Uint16(buf[14:16]),
	}
}
