package sync_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/sync"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

func TestSyncwordBipolarMapsBitZeroToPlusOne(t *testing.T) {
	bits := sync.SyncwordBipolar()
	require.Len(t, bits, 64)
	// MSB of 0x1ACFFC1D is 0 -> +1.
	assert.Equal(t, float32(1), bits[0])
}

func TestCoarseFrequencyCorrectionAppliesAfterDelay(t *testing.T) {
	b := sync.NewCoarseFrequencyCorrection(2)
	in := b.In.OutSpan(5)
	for i := range in.Items() {
		in.Items()[i] = 1
	}
	in.PublishTag(0, tag.Map{tag.KeySyncwordFreq: tag.Float64(math.Pi / 2)})
	in.Publish(5)
	_ = b.Out.OutSpan(5)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(5)
	require.Equal(t, 5, out.Size())
	// First 3 samples (delay=2 means apply after index 2) pass through
	// the identity rotator; from sample index 3 onward the new
	// frequency is in effect and phase visibly rotates.
	assert.InDelta(t, 1.0, real(out.Items()[0]), 1e-5)
}

func TestSyncwordWipeoffFlipsSignPerBipolarSequence(t *testing.T) {
	b := sync.NewSyncwordWipeoff()
	in := b.In.OutSpan(3)
	copy(in.Items(), []complex64{1, 1, 1})
	in.PublishTag(0, tag.Map{tag.KeySyncwordAmplitude: tag.Float64(1)})
	in.Publish(3)
	_ = b.Out.OutSpan(3)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(3)
	bits := sync.SyncwordBipolar()
	for i := 0; i < 3; i++ {
		assert.Equal(t, complex64(complex(float64(bits[i]), 0)), out.Items()[i])
	}
}

func TestCostasLoopOutputsOneSamplePerInput(t *testing.T) {
	l := sync.NewCostasLoop(0.01)
	in := l.In.OutSpan(4)
	copy(in.Items(), []complex64{1, 1, 1, 1})
	in.Publish(4)
	_ = l.Out.OutSpan(4)

	status, err := l.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)
	out := l.Out.InSpan(4)
	require.Equal(t, 4, out.Size())
}

func TestPayloadMetadataInsertPassesSyncwordThenHeaderThenWaits(t *testing.T) {
	bus := message.NewBus(4)
	b := sync.NewPayloadMetadataInsert(bus, 2, 2)
	in := b.In.OutSpan(4)
	copy(in.Items(), []complex64{1, 2, 3, 4})
	in.PublishTag(0, tag.Map{tag.KeySyncwordAmplitude: tag.Float64(1)})
	in.Publish(4)
	_ = b.Out.OutSpan(4)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(4)
	assert.Equal(t, []complex64{1, 2, 3, 4}, out.Items())
}

func TestHeaderPayloadSplitRoutesByPayloadBitsTag(t *testing.T) {
	b := sync.NewHeaderPayloadSplit[complex64](2, 2)
	in := b.In.OutSpan(4)
	copy(in.Items(), []complex64{1, 2, 3, 4})
	in.PublishTag(2, tag.Map{tag.KeyPayloadBits: tag.Int64(4)})
	in.Publish(4)
	_ = b.Header.OutSpan(2)
	_ = b.Payload.OutSpan(2)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	header := b.Header.InSpan(2)
	assert.Equal(t, []complex64{1, 2}, header.Items())
	payload := b.Payload.InSpan(2)
	assert.Equal(t, []complex64{3, 4}, payload.Items())
}
