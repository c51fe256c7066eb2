package iosample_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/iosample"
)

func TestWriteReadRoundTrip(t *testing.T) {
	samples := []complex64{1 + 2i, -3 + 4.5i, 0}
	var buf bytes.Buffer
	require.NoError(t, iosample.WriteComplex64(&buf, samples))

	got, err := iosample.ReadAllComplex64(&buf)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestSourceReadsInChunksUntilExhausted(t *testing.T) {
	src := iosample.NewSource([]complex64{1, 2, 3, 4, 5})
	dst := make([]complex64, 2)

	n := src.Read(dst)
	assert.Equal(t, 2, n)
	assert.Equal(t, []complex64{1, 2}, dst)

	n = src.Read(dst)
	assert.Equal(t, 2, n)
	assert.Equal(t, []complex64{3, 4}, dst)

	n = src.Read(dst)
	assert.Equal(t, 1, n)

	n = src.Read(dst)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, src.Remaining())
}

func TestSinkAccumulatesAndFlushes(t *testing.T) {
	sink := iosample.NewSink()
	sink.Write([]complex64{1, 2})
	sink.Write([]complex64{3})

	var buf bytes.Buffer
	require.NoError(t, sink.Flush(&buf))

	got, err := iosample.ReadAllComplex64(&buf)
	require.NoError(t, err)
	assert.Equal(t, []complex64{1, 2, 3}, got)
}
