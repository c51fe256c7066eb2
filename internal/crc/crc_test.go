package crc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kb9ops/gopacketmodem/internal/crc"
)

func TestCRC32MPEG2TenZeroBytes(t *testing.T) {
	// S1: CRC-32/MPEG-2 of ten zero bytes equals 0xE38A6876.
	e, err := crc.New(crc.CRC32MPEG2)
	require.NoError(t, err)

	data := make([]byte, 10)
	got := e.Compute(data)
	assert.Equal(t, uint64(0xE38A6876), got)
}

func TestCRC32MPEG2CheckValue(t *testing.T) {
	// The Width=32/Poly=0x04C11DB7/Init=XorOut=0xFFFFFFFF/ReflectIn=
	// ReflectOut=true parameters this engine is built with are exactly
	// CRC-32/ISO-HDLC (despite the CRC32MPEG2 name, see the doc comment
	// on that var); its published check value over "123456789" is
	// 0xCBF43926.
	e, err := crc.New(crc.CRC32MPEG2)
	require.NoError(t, err)

	got := e.Compute([]byte("123456789"))
	assert.Equal(t, uint64(0xCBF43926), got)
}

func TestNewRejectsBadWidth(t *testing.T) {
	_, err := crc.New(crc.Params{Width: 0})
	assert.Error(t, err)

	_, err = crc.New(crc.Params{Width: 12})
	assert.Error(t, err)

	_, err = crc.New(crc.Params{Width: 72})
	assert.Error(t, err)
}

func TestSoundnessSingleBitFlipDetected(t *testing.T) {
	// Property 2: flipping any single bit of the message changes the CRC.
	e, err := crc.New(crc.CRC32MPEG2)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")
		original := e.Compute(data)

		byteIdx := rapid.IntRange(0, len(data)-1).Draw(t, "byteIdx")
		bitIdx := rapid.IntRange(0, 7).Draw(t, "bitIdx")

		corrupted := make([]byte, len(data))
		copy(corrupted, data)
		corrupted[byteIdx] ^= 1 << bitIdx

		assert.NotEqual(t, original, e.Compute(corrupted))
	})
}

func TestBytesRoundTripsThroughFinalize(t *testing.T) {
	e, err := crc.New(crc.CRC32MPEG2)
	require.NoError(t, err)

	r := e.NewRegister()
	r.Update([]byte("hello, packet modem"))
	b := r.Bytes()
	require.Len(t, b, 4)

	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	assert.Equal(t, r.Finalize(), v)
}
