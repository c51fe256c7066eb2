package blocks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/blocks"
	"github.com/kb9ops/gopacketmodem/internal/iosample"
	"github.com/kb9ops/gopacketmodem/internal/tag"
	"github.com/kb9ops/gopacketmodem/internal/tun"
)

func TestTunSourceTagsAndCopiesADatagram(t *testing.T) {
	device := tun.NewLoopback(1)
	require.NoError(t, device.WritePacket([]byte{1, 2, 3, 4}))

	src := blocks.NewTunSource(device)
	defer src.Stop()
	_ = src.Out.OutSpan(4)

	status, err := src.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := src.Out.InSpan(4)
	require.Equal(t, 4, out.Size())
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Items())

	m, ok := out.TagAt(0)
	require.True(t, ok)
	n, ok := m[tag.KeyPacketLen].Int64()
	require.True(t, ok)
	assert.Equal(t, int64(4), n)
}

func TestTunSourceReturnsInsufficientInputWhenIdle(t *testing.T) {
	device := tun.NewLoopback(1)
	src := blocks.NewTunSource(device)
	defer src.Stop()
	_ = src.Out.OutSpan(4)

	status, err := src.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.InsufficientInput, status)
}

func TestTunSinkWritesTaggedPacketToDevice(t *testing.T) {
	device := tun.NewLoopback(1)
	sink := blocks.NewTunSink(device)

	in := sink.In.OutSpan(4)
	copy(in.Items(), []byte{9, 8, 7, 6})
	in.PublishTag(0, tag.Map{tag.KeyPacketLen: tag.Int64(4)})
	in.Publish(4)

	status, err := sink.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, err := device.ReadPacket(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, data)
}

func TestTunSinkWaitsForFullPacket(t *testing.T) {
	device := tun.NewLoopback(1)
	sink := blocks.NewTunSink(device)

	in := sink.In.OutSpan(2)
	copy(in.Items(), []byte{9, 8})
	in.PublishTag(0, tag.Map{tag.KeyPacketLen: tag.Int64(4)})
	in.Publish(2)

	status, err := sink.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.InsufficientInput, status)
}

func TestIQFileSourceStreamsThenSignalsDone(t *testing.T) {
	samples := []complex64{1, 2, 3}
	src := blocks.NewIQFileSource(iosample.NewSource(samples))
	_ = src.Out.OutSpan(8)

	status, err := src.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)
	out := src.Out.InSpan(3)
	assert.Equal(t, samples, out.Items())

	_ = src.Out.OutSpan(8)
	status, err = src.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.Done, status)
}

func TestIQFileSinkAccumulatesSamples(t *testing.T) {
	sink := iosample.NewSink()
	b := blocks.NewIQFileSink(sink)

	in := b.In.OutSpan(3)
	copy(in.Items(), []complex64{1, 2, 3})
	in.Publish(3)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)
	assert.Equal(t, []complex64{1, 2, 3}, sink.Samples())
}
