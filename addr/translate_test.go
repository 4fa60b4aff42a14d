package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	tr := Translator{Mask: 0x000fffff, VABase: 0xa0000000, PABase: 0xa9000000}

	for _, va := range []uint32{0xa0000000, 0xa0000001, 0xa000abcd, 0xa00fffff} {
		pa := tr.PA(va)
		assert.Equal(t, va, tr.VA(pa), "VA(PA(va)) should round-trip")
	}

	for _, pa := range []uint32{0xa9000000, 0xa9000123, 0xa90fffff} {
		va := tr.VA(pa)
		assert.Equal(t, pa, tr.PA(va), "PA(VA(pa)) should round-trip")
	}
}

func TestIdentity(t *testing.T) {
	tr := Identity()
	assert.Equal(t, uint32(0x1234), tr.PA(0x1234))
	assert.Equal(t, uint32(0x1234), tr.VA(0x1234))
}

func TestWindowIsolation(t *testing.T) {
	tr := Translator{Mask: 0x0000ffff, VABase: 0x10000000, PABase: 0x20000000}

	// bits above the window are replaced, not preserved
	assert.Equal(t, uint32(0x20001234), tr.PA(0xffff1234))
	assert.Equal(t, uint32(0x10001234), tr.VA(0xaaaa1234))
}
