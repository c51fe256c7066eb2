package framing

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// rampdownMask is the degree-9 maximal-length Galois LFSR used for the
// bursty-mode ramp-down sequence (spec.md §4.3 step 7, "9 ramp-down
// pseudo-random symbols"), the same feedback-mask table blocks.GlfsrSource
// draws from.
const rampdownMask = 0x00000108

// RampdownSource free-runs a degree-9 GLFSR, QPSK-mapping every two
// bits and emitting one packet_len-tagged 9-symbol burst after
// another, the bursty transmit chain's trailer ahead of the RRC-flush
// zeros (spec.md §6, "9 ramp-down symbols from a GLFSR, QPSK-mapped").
type RampdownSource struct {
	block.Base
	Out          stream.Port[complex64]
	PacketLenKey string
	Symbols      int
	Table        []complex64

	reg uint64
}

func NewRampdownSource(symbols int, table []complex64, seed uint64) *RampdownSource {
	return &RampdownSource{
		Base:         block.Base{BlockName: "rampdown_source"},
		Out:          stream.NewPort[complex64](1 << 12),
		PacketLenKey: tag.KeyPacketLen,
		Symbols:      symbols,
		Table:        table,
		reg:          seed,
	}
}

func (b *RampdownSource) nextDibit() byte {
	var v byte
	for i := 0; i < 2; i++ {
		bit := byte(b.reg & 1)
		b.reg >>= 1
		if bit != 0 {
			b.reg ^= rampdownMask
		}
		v = (v << 1) | bit
	}
	return v
}

func (b *RampdownSource) ProcessBulk() (block.Status, error) {
	outSpan := b.Out.OutSpan(1 << 12)
	n := outSpan.Size() / b.Symbols
	if n == 0 {
		outSpan.Publish(0)
		return block.InsufficientOutput, nil
	}

	out := outSpan.Items()
	for p := 0; p < n; p++ {
		outSpan.PublishTag(p*b.Symbols, tag.Map{b.PacketLenKey: tag.Int64(int64(b.Symbols))})
		for i := 0; i < b.Symbols; i++ {
			out[p*b.Symbols+i] = b.Table[b.nextDibit()&byte(len(b.Table)-1)]
		}
	}

	outSpan.Publish(n * b.Symbols)
	return block.OK, nil
}

// FlushSource free-runs a constant zero-sample packet_len-tagged
// stream, the RRC-flush tail that lets the transmit interpolator's
// filter settle at the end of a burst (spec.md §4.3 step 7, "11 zero
// symbols for RRC flush").
type FlushSource struct {
	block.Base
	Out          stream.Port[complex64]
	PacketLenKey string
	Symbols      int
}

func NewFlushSource(symbols int) *FlushSource {
	return &FlushSource{
		Base:         block.Base{BlockName: "flush_source"},
		Out:          stream.NewPort[complex64](1 << 12),
		PacketLenKey: tag.KeyPacketLen,
		Symbols:      symbols,
	}
}

func (b *FlushSource) ProcessBulk() (block.Status, error) {
	outSpan := b.Out.OutSpan(1 << 12)
	n := outSpan.Size() / b.Symbols
	if n == 0 {
		outSpan.Publish(0)
		return block.InsufficientOutput, nil
	}

	out := outSpan.Items()
	for p := 0; p < n; p++ {
		outSpan.PublishTag(p*b.Symbols, tag.Map{b.PacketLenKey: tag.Int64(int64(b.Symbols))})
		for i := 0; i < b.Symbols; i++ {
			out[p*b.Symbols+i] = 0
		}
	}

	outSpan.Publish(n * b.Symbols)
	return block.OK, nil
}
