package blocks

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// UnpackBits is PackBits's inverse: splits each input item's low
// BitsPerOutput*OutputsPerInput bits into OutputsPerInput output items
// of BitsPerOutput bits each (spec.md §4.2, "Bit pack / unpack").
type UnpackBits[TIn, TOut bitWord] struct {
	block.Base
	In               stream.Port[TIn]
	Out              stream.Port[TOut]
	OutputsPerInput  int
	BitsPerOutput     TIn
	PacketLenTagKey   string
	endianness        Endianness
}

func NewUnpackBits[TIn, TOut bitWord](outputsPerInput int, bitsPerOutput TIn, endianness Endianness, packetLenTagKey string) (*UnpackBits[TIn, TOut], error) {
	if bitsPerOutput <= 0 {
		return nil, fmt.Errorf("blocks: unpack_bits: bits_per_output must be positive")
	}
	return &UnpackBits[TIn, TOut]{
		Base:            block.Base{BlockName: "unpack_bits"},
		In:              stream.NewPort[TIn](1 << 16),
		Out:             stream.NewPort[TOut](1 << 16),
		OutputsPerInput: outputsPerInput,
		BitsPerOutput:   bitsPerOutput,
		PacketLenTagKey: packetLenTagKey,
		endianness:      endianness,
	}, nil
}

func (b *UnpackBits[TIn, TOut]) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	toConsume := min(inSpan.Size(), outSpan.Size()/b.OutputsPerInput)
	if toConsume == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}

	if b.PacketLenTagKey != "" {
		if m, ok := inSpan.TagAt(0); ok {
			if v, ok := m[b.PacketLenTagKey]; ok {
				n, _ := v.Int64()
				outSpan.PublishTag(0, tag.Map{b.PacketLenTagKey: tag.Int64(n * int64(b.OutputsPerInput))})
			}
		}
	}

	mask := TIn(1<<b.BitsPerOutput) - 1
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < toConsume; i++ {
		word := in[i]
		base := i * b.OutputsPerInput
		if b.endianness == MSB {
			shift := b.BitsPerOutput * TIn(b.OutputsPerInput-1)
			for j := 0; j < b.OutputsPerInput; j++ {
				out[base+j] = TOut((word >> shift) & mask)
				shift -= b.BitsPerOutput
			}
		} else {
			item := word
			for j := 0; j < b.OutputsPerInput; j++ {
				out[base+j] = TOut(item & mask)
				item >>= b.BitsPerOutput
			}
		}
	}

	inSpan.Consume(toConsume)
	outSpan.Publish(toConsume * b.OutputsPerInput)
	return block.OK, nil
}
