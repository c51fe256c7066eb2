package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// SyncwordSource free-runs, repeatedly emitting the SyncwordBits
// bipolar BPSK symbols as one packet_len-tagged mini-packet after
// another (spec.md §4.3, "Syncword"). It never blocks on anything
// upstream; PacketMux only consumes a packet once every other input's
// packet is also ready, so a free-running source paces itself against
// the frames it is prepended to.
type SyncwordSource struct {
	block.Base
	Out          stream.Port[complex64]
	PacketLenKey string

	bipolar []float32
}

func NewSyncwordSource() *SyncwordSource {
	return &SyncwordSource{
		Base:         block.Base{BlockName: "syncword_source"},
		Out:          stream.NewPort[complex64](1 << 12),
		PacketLenKey: tag.KeyPacketLen,
		bipolar:      SyncwordBipolar(),
	}
}

func (b *SyncwordSource) ProcessBulk() (block.Status, error) {
	outSpan := b.Out.OutSpan(1 << 12)
	n := outSpan.Size() / SyncwordBits
	if n == 0 {
		outSpan.Publish(0)
		return block.InsufficientOutput, nil
	}

	out := outSpan.Items()
	for p := 0; p < n; p++ {
		outSpan.PublishTag(p*SyncwordBits, tag.Map{b.PacketLenKey: tag.Int64(SyncwordBits)})
		for i, v := range b.bipolar {
			out[p*SyncwordBits+i] = complex(v, 0)
		}
	}

	outSpan.Publish(n * SyncwordBits)
	return block.OK, nil
}
