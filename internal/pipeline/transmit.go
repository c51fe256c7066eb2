package pipeline

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/bits"
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/blocks"
	"github.com/kb9ops/gopacketmodem/internal/config"
	"github.com/kb9ops/gopacketmodem/internal/crc"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
	"github.com/kb9ops/gopacketmodem/internal/framing"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/scheduler"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/sync"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// rolloff, rampdownSymbols and flushSymbols are the wire-format
// constants spec.md §4.3/§6 fix independently of configuration.
const (
	rolloff         = 0.35
	rrcTapsPerSps   = 11
	rampdownSymbols = 9
	flushSymbols    = 11
)

// Transmit is the packet-bytes-to-baseband-samples chain spec.md §4.3
// describes: packet ingress, the header/payload fan-out, scrambling
// and QPSK mapping, syncword and (in bursty mode) trailer framing, RRC
// interpolation, and either packet-to-stream idle fill or burst
// shaping, depending on cfg.StreamMode.
type Transmit struct {
	In       stream.Port[byte]
	Out      stream.Port[complex64]
	Graph    *scheduler.Graph
	Metadata *message.Bus
	Counter  *blocks.PacketCounter
}

// NewTransmit wires a complete transmit chain for cfg.
func NewTransmit(cfg config.Pipeline, telemetry *message.Bus) (*Transmit, error) {
	sps := cfg.SamplesPerSymbol

	metadata := message.NewBus(64)
	crcEngine, err := crc.New(crc.CRC32MPEG2)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transmit: %w", err)
	}

	ingress := framing.NewPacketIngress(metadata)

	headerFormatter := framing.NewHeaderFormatter(metadata)
	headerFecEnc := framing.NewHeaderFecEncoder()
	headerFecEnc.In = headerFormatter.Out

	crcAppend := framing.NewCrcAppend(crcEngine)
	crcAppend.In = ingress.Out

	counter := blocks.NewPacketCounter(telemetry, tag.KeyPacketLen)
	counter.In = crcAppend.Out

	frameMux := framing.NewPacketMux[byte](2)
	frameMux.In[0] = headerFecEnc.Out
	frameMux.In[1] = counter.Out

	unpack, err := blocks.NewUnpackBits[byte, byte](8, 1, blocks.MSB, tag.KeyPacketLen)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transmit: %w", err)
	}
	unpack.In = frameMux.Out

	scrambler := bits.NewScramblerBlock(bits.CCSDS131(), tag.KeyPacketLen)
	scrambler.In = unpack.Out

	pack, err := blocks.NewPackBits[byte, byte](2, 1, blocks.MSB, tag.KeyPacketLen)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transmit: %w", err)
	}
	pack.In = scrambler.Out

	mapper, err := blocks.NewMapper[byte, complex64](bits.QPSKTable)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transmit: %w", err)
	}
	mapper.In = pack.Out

	syncwordSource := sync.NewSyncwordSource()

	ntaps := rrcTapsPerSps * sps
	taps := dsp.RootRaisedCosine(float64(sps), float64(sps), 1.0, rolloff, ntaps)
	groupDelay := len(taps) / 2

	var frameInputs []stream.Port[complex64]
	nodes := []block.Block{ingress, headerFormatter, headerFecEnc, crcAppend, counter, frameMux, unpack, scrambler, pack, mapper, syncwordSource}

	if cfg.StreamMode {
		frameInputs = []stream.Port[complex64]{syncwordSource.Out, mapper.Out}
	} else {
		rampdown := framing.NewRampdownSource(rampdownSymbols, bits.QPSKTable, 0x1)
		flush := framing.NewFlushSource(flushSymbols)
		frameInputs = []stream.Port[complex64]{syncwordSource.Out, mapper.Out, rampdown.Out, flush.Out}
		nodes = append(nodes, rampdown, flush)
	}

	frameSymbolMux := framing.NewPacketMux[complex64](len(frameInputs))
	for i, p := range frameInputs {
		frameSymbolMux.In[i] = p
	}
	nodes = append(nodes, frameSymbolMux)

	interp := dsp.NewInterpolator(sps, taps, tag.KeyPacketLen)
	interp.In = frameSymbolMux.Out
	nodes = append(nodes, interp)

	var out stream.Port[complex64]
	if cfg.StreamMode {
		toStream := blocks.NewPacketToStream()
		toStream.In = interp.Out
		nodes = append(nodes, toStream)
		out = toStream.Out
	} else {
		rampLen := 4*sps + groupDelay
		leading := halfSineUp(rampLen)
		trailing := halfSineDown(rampLen)
		shaper := framing.NewBurstShaper(leading, trailing)
		shaper.In = interp.Out
		nodes = append(nodes, shaper)
		out = shaper.Out
	}

	return &Transmit{
		In:       ingress.In,
		Out:      out,
		Graph:    scheduler.NewGraph(nodes...),
		Metadata: metadata,
		Counter:  counter,
	}, nil
}
