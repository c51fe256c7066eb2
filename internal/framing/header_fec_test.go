package framing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kb9ops/gopacketmodem/internal/framing"
)

func toLLRs(codeword [framing.HeaderCodewordLen]byte) []float32 {
	llrs := make([]float32, framing.HeaderLLRLen)
	for i := 0; i < framing.HeaderLLRLen; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		bit := (codeword[byteIdx] >> (7 - bitIdx)) & 1
		if bit == 0 {
			llrs[i] = 4
		} else {
			llrs[i] = -4
		}
	}
	return llrs
}

func TestHeaderFecRoundTripNoiseless(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var header [4]byte
		for i := range header {
			header[i] = byte(rapid.IntRange(0, 255).Draw(t, "b"))
		}
		codeword := framing.EncodeHeader(header)
		decoded, ok := framing.DecodeHeader(toLLRs(codeword))
		require.True(t, ok)
		assert.Equal(t, header, decoded)
	})
}

func TestHeaderFecCorrectsSingleBitFlip(t *testing.T) {
	header := [4]byte{0x00, 0x20, 0x00, 0x55}
	codeword := framing.EncodeHeader(header)
	llrs := toLLRs(codeword)
	// Corrupt one systematic bit in both repetitions so the combined LLR
	// hard-slices to the wrong value; the generator-based search must
	// flip it back using the 96 parity bits.
	llrs[3] = -8
	llrs[3+128] = -8

	decoded, ok := framing.DecodeHeader(llrs)
	assert.True(t, ok)
	assert.Equal(t, header, decoded)
}

func TestHeaderFecRejectsWrongLLRLength(t *testing.T) {
	_, ok := framing.DecodeHeader(make([]float32, 10))
	assert.False(t, ok)
}
