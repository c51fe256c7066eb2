package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/blocks"
	"github.com/kb9ops/gopacketmodem/internal/config"
	"github.com/kb9ops/gopacketmodem/internal/iosample"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/pipeline"
	"github.com/kb9ops/gopacketmodem/internal/scheduler"
	"github.com/kb9ops/gopacketmodem/internal/tag"
	"github.com/kb9ops/gopacketmodem/internal/tun"
)

// runPipeline drives a pipeline's graph under a bounded context, the
// same pattern pmodem-loopback uses to run a batch-style chain to
// completion without a transitively propagated Done.
func runPipeline(t *testing.T, g *scheduler.Graph, runFor time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), runFor)
	defer cancel()
	_ = scheduler.NewThreadedScheduler(g).Run(ctx)
}

func TestNewTransmitWiresInAndOutPorts(t *testing.T) {
	cfg := config.Default()
	tx, err := pipeline.NewTransmit(cfg, message.NewBus(64))
	require.NoError(t, err)
	assert.NotNil(t, tx.Graph)
	assert.NotEmpty(t, tx.Graph.Nodes)
	assert.NotNil(t, tx.Metadata)
	assert.NotNil(t, tx.Counter)
}

func TestNewTransmitBurstyModeAlsoWires(t *testing.T) {
	cfg := config.Default()
	cfg.StreamMode = false
	tx, err := pipeline.NewTransmit(cfg, message.NewBus(64))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.Graph.Nodes)
}

func TestNewReceiveWiresInAndOutPorts(t *testing.T) {
	cfg := config.Default()
	rx, err := pipeline.NewReceive(cfg)
	require.NoError(t, err)
	assert.NotNil(t, rx.Graph)
	assert.NotEmpty(t, rx.Graph.Nodes)
	assert.NotNil(t, rx.Metadata)
}

// TestTransmitProducesNonSilentBaseband feeds one packet through the
// transmit chain and checks the captured samples are a plausible
// modulated burst: present, and not all zero. It does not attempt to
// decode them back; TestTransmitReceiveRoundTrip below checks
// end-to-end recovery.
func TestTransmitProducesNonSilentBaseband(t *testing.T) {
	cfg := config.Default()

	device := tun.NewLoopback(2)
	packet := make([]byte, 32)
	for i := range packet {
		packet[i] = byte(i)
	}
	require.NoError(t, device.WritePacket(packet))

	tx, err := pipeline.NewTransmit(cfg, message.NewBus(64))
	require.NoError(t, err)
	source := blocks.NewTunSource(device)
	source.Out = tx.In
	tx.Graph.Add(source)

	sink := iosample.NewSink()
	fileSink := blocks.NewIQFileSink(sink)
	fileSink.In = tx.Out
	tx.Graph.Add(fileSink)

	runPipeline(t, tx.Graph, 2*time.Second)

	samples := sink.Samples()
	require.NotEmpty(t, samples, "expected the transmit chain to emit baseband samples")

	nonZero := 0
	for _, s := range samples {
		if s != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 0, "expected at least some non-silent samples in the captured burst")
}

// TestReceiveIgnoresUntaggedNoise feeds samples with no syncword tag
// through the receive chain and checks it neither panics nor emits a
// decoded packet, since nothing in the stream ever claims to be a
// syncword.
func TestReceiveIgnoresUntaggedNoise(t *testing.T) {
	cfg := config.Default()
	rx, err := pipeline.NewReceive(cfg)
	require.NoError(t, err)

	samples := make([]complex64, 4096)
	for i := range samples {
		samples[i] = complex(float32(i%7)-3, float32(i%5)-2)
	}
	rxSource := blocks.NewIQFileSource(iosample.NewSource(samples))
	rxSource.Out = rx.In
	rx.Graph.Add(rxSource)

	rxDevice := tun.NewLoopback(2)
	rxSink := blocks.NewTunSink(rxDevice)
	rxSink.In = rx.Out
	rx.Graph.Add(rxSink)

	runPipeline(t, rx.Graph, 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = rxDevice.ReadPacket(ctx)
	assert.Error(t, err, "expected no packet to be recovered from untagged noise")
}

// TestTransmitReceiveRoundTrip wires NewTransmit and NewReceive back to
// back exactly as cmd/pmodem-loopback does by hand, and asserts the
// decoder actually recovers the transmitted payloads (spec.md's
// Property 1, Scenario S3): it sends a batch of synthetic packets
// through the transmit chain into an in-memory sample buffer, replays
// that buffer through the receive chain, and checks the packets that
// come out the other end match what went in, byte for byte.
func TestTransmitReceiveRoundTrip(t *testing.T) {
	cfg := config.Default()

	const numPackets = 6
	const packetSize = 48

	sent := make([][]byte, numPackets)
	txDevice := tun.NewLoopback(numPackets + 1)
	for i := 0; i < numPackets; i++ {
		data := make([]byte, packetSize)
		for j := range data {
			data[j] = byte(i*31 + j)
		}
		sent[i] = data
		require.NoError(t, txDevice.WritePacket(data))
	}

	tx, err := pipeline.NewTransmit(cfg, message.NewBus(64))
	require.NoError(t, err)
	source := blocks.NewTunSource(txDevice)
	source.Out = tx.In
	tx.Graph.Add(source)

	sink := iosample.NewSink()
	fileSink := blocks.NewIQFileSink(sink)
	fileSink.In = tx.Out
	tx.Graph.Add(fileSink)

	runPipeline(t, tx.Graph, 3*time.Second)
	samples := sink.Samples()
	require.NotEmpty(t, samples, "expected the transmit chain to emit baseband samples")

	rx, err := pipeline.NewReceive(cfg)
	require.NoError(t, err)
	rxSource := blocks.NewIQFileSource(iosample.NewSource(samples))
	rxSource.Out = rx.In
	rx.Graph.Add(rxSource)

	rxDevice := tun.NewLoopback(numPackets + 1)
	rxSink := blocks.NewTunSink(rxDevice)
	rxSink.PacketLenKey = tag.KeyPayloadBits
	rxSink.In = rx.Out
	rx.Graph.Add(rxSink)

	runPipeline(t, rx.Graph, 3*time.Second)

	var received [][]byte
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		data, err := rxDevice.ReadPacket(ctx)
		cancel()
		if err != nil {
			break
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		received = append(received, cp)
	}

	require.Len(t, received, numPackets, "expected every transmitted packet to be recovered")
	for i := range sent {
		assert.Equal(t, sent[i], received[i], "packet %d should decode back to exactly what was sent", i)
	}
}
