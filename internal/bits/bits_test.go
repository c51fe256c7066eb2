package bits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kb9ops/gopacketmodem/internal/bits"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(1, 8).Draw(t, "k")
		b := rapid.IntRange(1, 4).Draw(t, "b")
		if k*b > 8 {
			t.Skip("k*b exceeds byte width")
		}
		nWords := rapid.IntRange(0, 16).Draw(t, "nWords")
		mask := byte((1 << b) - 1)

		in := make([]byte, nWords*k)
		for i := range in {
			in[i] = byte(rapid.IntRange(0, int(mask)).Draw(t, "nibble")) & mask
		}

		packed, err := bits.Pack(in, k, b, bits.BigEndian, 8)
		require.NoError(t, err)
		unpacked, err := bits.Unpack(packed, k, b, bits.BigEndian)
		require.NoError(t, err)
		assert.Equal(t, in, unpacked)
	})
}

func TestPackRejectsOverWideWord(t *testing.T) {
	_, err := bits.Pack([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, 9, 1, bits.BigEndian, 8)
	assert.Error(t, err)
}

func TestPackRejectsNonMultipleLength(t *testing.T) {
	_, err := bits.Pack([]byte{1, 1, 1}, 2, 1, bits.BigEndian, 8)
	assert.Error(t, err)
}

func TestQPSKMapperGrayCoding(t *testing.T) {
	m := bits.NewQPSKMapper()
	a := float32(0.70710677)
	assert.InDelta(t, real(complex64(complex(a, a))), real(m.Map(0b00)), 1e-5)
	assert.InDelta(t, imag(complex64(complex(a, a))), imag(m.Map(0b00)), 1e-5)
	assert.InDelta(t, float64(-a), float64(imag(m.Map(0b01))), 1e-5)
	assert.InDelta(t, float64(-a), float64(real(m.Map(0b10))), 1e-5)
	assert.InDelta(t, float64(-a), float64(real(m.Map(0b11))), 1e-5)
	assert.InDelta(t, float64(-a), float64(imag(m.Map(0b11))), 1e-5)
}

func TestBPSKMapperBitZeroIsPlusOne(t *testing.T) {
	m := bits.NewBPSKMapper()
	assert.Equal(t, complex64(complex(1, 0)), m.Map(0))
	assert.Equal(t, complex64(complex(-1, 0)), m.Map(1))
}

func TestMapperRejectsNonPowerOfTwoTable(t *testing.T) {
	_, err := bits.NewMapper([]complex64{1, 2, 3})
	assert.Error(t, err)
}

func TestScramblerDescrambleIsInverse(t *testing.T) {
	// Property 3: descramble(scramble(x)) = x for any byte sequence when
	// both LFSRs are reset at the same position.
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		// Work in the unpacked 1-bit-per-byte domain the scrambler uses.
		unpacked := make([]byte, len(data))
		for i, b := range data {
			unpacked[i] = b & 1
		}

		tx := bits.CCSDS131()
		scrambled := make([]byte, len(unpacked))
		copy(scrambled, unpacked)
		tx.ScrambleBytes(scrambled)

		rx := bits.CCSDS131()
		descrambled := make([]byte, len(scrambled))
		copy(descrambled, scrambled)
		rx.ScrambleBytes(descrambled)

		assert.Equal(t, unpacked, descrambled)
	})
}

func TestScramblerResetsOnCount(t *testing.T) {
	s := &bits.Scrambler{Mask: 0x4001, Seed: 0x18E38, Length: 16, Count: 4}
	s.Reset()
	first := make([]byte, 4)
	s.ScrambleBytes(first)
	second := make([]byte, 4)
	s.ScrambleBytes(second)
	assert.Equal(t, first, second, "LFSR must reset every Count symbols")
}

func TestScramblerZeroInputRevealsKeystream(t *testing.T) {
	// Scrambling an all-zero byte sequence reveals the keystream itself,
	// which is how S2-style known-answer vectors are derived.
	s := bits.CCSDS131()
	out := make([]byte, 8)
	s.ScrambleBytes(out)
	// At minimum the stream should not be trivially constant; a stuck
	// LFSR would fail this.
	allSame := true
	for _, v := range out[1:] {
		if v != out[0] {
			allSame = false
			break
		}
	}
	assert.False(t, allSame)
}
