package framing

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// BurstShaper multiplies the first len(LeadingShape) and last
// len(TrailingShape) samples of each packet by the given envelopes,
// ramping a burst's edges up and down to limit spectral splatter
// (spec.md §4.2, "Burst Shaper").
type BurstShaper struct {
	block.Base
	In             stream.Port[complex64]
	Out            stream.Port[complex64]
	LeadingShape   []complex64
	TrailingShape  []complex64
	PacketLenKey   string

	remaining int64
	packetLen int64
}

func NewBurstShaper(leading, trailing []complex64) *BurstShaper {
	return &BurstShaper{
		Base:          block.Base{BlockName: "burst_shaper"},
		In:            stream.NewPort[complex64](1 << 16),
		Out:           stream.NewPort[complex64](1 << 16),
		LeadingShape:  leading,
		TrailingShape: trailing,
		PacketLenKey:  tag.KeyPacketLen,
	}
}

func (b *BurstShaper) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	if inSpan.Size() == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		return block.InsufficientInput, nil
	}

	if b.remaining == 0 {
		m, ok := inSpan.TagAt(0)
		if !ok {
			return block.Error, fmt.Errorf("framing: burst_shaper: expected packet-length tag not found")
		}
		v, ok := m[b.PacketLenKey]
		if !ok {
			return block.Error, fmt.Errorf("framing: burst_shaper: expected packet-length tag not found")
		}
		n, _ := v.Int64()
		if n == 0 {
			return block.Error, fmt.Errorf("framing: burst_shaper: received packet-length equal to zero")
		}
		b.remaining = n
		b.packetLen = n
		outSpan.PublishTag(0, m)
	}

	in := inSpan.Items()
	out := outSpan.Items()
	n := 0

	position := b.packetLen - b.remaining
	leadLen := int64(len(b.LeadingShape))
	trailLen := int64(len(b.TrailingShape))

	if position < leadLen {
		count := min64(leadLen-position, int64(len(in)-n), int64(len(out)-n))
		for j := int64(0); j < count; j++ {
			out[int64(n)+j] = in[int64(n)+j] * b.LeadingShape[position+j]
		}
		n += int(count)
		b.remaining -= count
	}

	if b.remaining > trailLen {
		count := min64(b.remaining-trailLen, int64(len(in)-n), int64(len(out)-n))
		copy(out[n:n+int(count)], in[n:n+int(count)])
		n += int(count)
		b.remaining -= count
	}

	count := min64(b.remaining, int64(len(in)-n), int64(len(out)-n))
	if count > 0 {
		start := trailLen - b.remaining
		for j := int64(0); j < count; j++ {
			out[int64(n)+j] = in[int64(n)+j] * b.TrailingShape[start+j]
		}
		n += int(count)
		b.remaining -= count
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

func min64(a, b, c int64) int64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
