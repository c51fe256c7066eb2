package sync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/sync"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

func TestSyncwordRemoveDropsTaggedRun(t *testing.T) {
	b := sync.NewSyncwordRemove(2)
	in := b.In.OutSpan(5)
	copy(in.Items(), []complex64{1, 2, 3, 4, 5})
	in.PublishTag(1, tag.Map{tag.KeySyncwordAmplitude: tag.Float64(1)})
	in.Publish(5)
	_ = b.Out.OutSpan(5)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(3)
	// Sample 0 passes untouched; samples 1 and 2 (the syncword run) are
	// dropped; samples 3 and 4 pass through.
	assert.Equal(t, []complex64{1, 4, 5}, out.Items())
}

func TestSyncwordRemovePassesThroughWithoutTag(t *testing.T) {
	b := sync.NewSyncwordRemove(2)
	in := b.In.OutSpan(3)
	copy(in.Items(), []complex64{1, 2, 3})
	in.Publish(3)
	_ = b.Out.OutSpan(3)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(3)
	assert.Equal(t, []complex64{1, 2, 3}, out.Items())
}

func TestConstellationLLRDecoderQPSKEmitsTwoLLRsPerSymbol(t *testing.T) {
	b := sync.NewConstellationLLRDecoder(1.0)
	in := b.In.OutSpan(2)
	copy(in.Items(), []complex64{complex(1, -1), complex(-1, 1)})
	in.Publish(2)
	_ = b.Out.OutSpan(4)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(4)
	require.Equal(t, 4, out.Size())
	assert.Equal(t, float32(2), out.Items()[0])
	assert.Equal(t, float32(-2), out.Items()[1])
	assert.Equal(t, float32(-2), out.Items()[2])
	assert.Equal(t, float32(2), out.Items()[3])
}

func TestConstellationLLRDecoderSwitchesToBPSKOnTag(t *testing.T) {
	b := sync.NewConstellationLLRDecoder(1.0)
	in := b.In.OutSpan(1)
	copy(in.Items(), []complex64{complex(1, -1)})
	in.PublishTag(0, tag.Map{tag.KeyConstellation: tag.String("BPSK")})
	in.Publish(1)
	_ = b.Out.OutSpan(1)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(1)
	require.Equal(t, 1, out.Size())
	assert.Equal(t, float32(2), out.Items()[0])
}

func TestBinarySlicerNonInvertedSignConvention(t *testing.T) {
	b := sync.NewBinarySlicer(false)
	in := b.In.OutSpan(4)
	copy(in.Items(), []float32{1, -1, 0.5, -0.5})
	in.Publish(4)
	_ = b.Out.OutSpan(4)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(4)
	assert.Equal(t, []byte{1, 0, 1, 0}, out.Items())
}

func TestBinarySlicerInvertedFlipsSignConvention(t *testing.T) {
	b := sync.NewBinarySlicer(true)
	in := b.In.OutSpan(2)
	copy(in.Items(), []float32{1, -1})
	in.Publish(2)
	_ = b.Out.OutSpan(2)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(2)
	assert.Equal(t, []byte{0, 1}, out.Items())
}
