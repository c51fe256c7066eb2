package bits

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// ScramblerBlock streams one unpacked bit per byte through a Scrambler,
// resetting the LFSR to its seed at the start of every packet (spec.md
// §3, "the scrambler resets at the start of every frame") rather than
// relying on Scrambler.Count, since packet lengths vary call to call.
type ScramblerBlock struct {
	block.Base
	In           stream.Port[byte]
	Out          stream.Port[byte]
	Scrambler    *Scrambler
	PacketLenKey string
}

func NewScramblerBlock(s *Scrambler, packetLenKey string) *ScramblerBlock {
	return &ScramblerBlock{
		Base:         block.Base{BlockName: "scrambler"},
		In:           stream.NewPort[byte](1 << 16),
		Out:          stream.NewPort[byte](1 << 16),
		Scrambler:    s,
		PacketLenKey: packetLenKey,
	}
}

func (b *ScramblerBlock) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			if _, present := m[b.PacketLenKey]; present {
				b.Scrambler.Reset()
			}
			outSpan.PublishTag(i, m)
		}
		out[i] = b.Scrambler.ScrambleByte(in[i])
	}

	inSpan.Consume(n)
	outSpan.Publish(n)
	if n == 0 {
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}

// SoftDescramblerBlock is the receive-side counterpart: it descrambles
// LLRs in place, resetting whenever a header_start tag (the frame's
// known scrambler restart point, spec.md §4.5) arrives.
type SoftDescramblerBlock struct {
	block.Base
	In          stream.Port[float32]
	Out         stream.Port[float32]
	Scrambler   *Scrambler
	ResetTagKey string
}

func NewSoftDescramblerBlock(s *Scrambler, resetTagKey string) *SoftDescramblerBlock {
	return &SoftDescramblerBlock{
		Base:        block.Base{BlockName: "soft_descrambler"},
		In:          stream.NewPort[float32](1 << 16),
		Out:         stream.NewPort[float32](1 << 16),
		Scrambler:   s,
		ResetTagKey: resetTagKey,
	}
}

func (b *SoftDescramblerBlock) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			if _, present := m[b.ResetTagKey]; present {
				b.Scrambler.Reset()
			}
			outSpan.PublishTag(i, m)
		}
		out[i] = b.Scrambler.ScrambleSoft(in[i])
	}

	inSpan.Consume(n)
	outSpan.Publish(n)
	if n == 0 {
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
