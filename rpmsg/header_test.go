package rpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{SrcEndpoint: localEndpoint, DstEndpoint: MessageQPort, Reserved: 0, DataLen: 12, Flags: 1}

	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	assert.Equal(t, h, DecodeHeader(buf))
}

func TestHeaderLittleEndian(t *testing.T) {
	h := Header{SrcEndpoint: 0x01020304, DstEndpoint: 61, DataLen: 256, Flags: 0}

	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	assert.Equal(t, byte(0x04), buf[0])
	assert.Equal(t, byte(0x03), buf[1])
	assert.Equal(t, byte(0x02), buf[2])
	assert.Equal(t, byte(0x01), buf[3])
	// DataLen=256 little-endian: low byte 0x00, high byte 0x01
	assert.Equal(t, byte(0x00), buf[12])
	assert.Equal(t, byte(0x01), buf[13])
}
