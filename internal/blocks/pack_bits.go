package blocks

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// bitWord is the constraint on PackBits/UnpackBits element types: wide
// enough to hold bitsPerInput*inputsPerOutput bits.
type bitWord interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Endianness chooses which input nibble lands in the packed word's high
// bits (spec.md §4.2, "Bit pack / unpack").
type Endianness int

const (
	MSB Endianness = iota
	LSB
)

// PackBits joins InputsPerOutput consecutive nibbles of BitsPerInput
// bits (held in each input item's low bits) into one output item,
// optionally rescaling a packet-length tag by 1/InputsPerOutput
// (ported from the reference pack_bits block; generalizes
// internal/bits.Pack to the tagged-stream block interface).
type PackBits[TIn, TOut bitWord] struct {
	block.Base
	In               stream.Port[TIn]
	Out              stream.Port[TOut]
	InputsPerOutput  int
	BitsPerInput      TIn
	PacketLenTagKey   string
	endianness        Endianness
}

func NewPackBits[TIn, TOut bitWord](inputsPerOutput int, bitsPerInput TIn, endianness Endianness, packetLenTagKey string) (*PackBits[TIn, TOut], error) {
	if bitsPerInput <= 0 {
		return nil, fmt.Errorf("blocks: pack_bits: bits_per_input must be positive")
	}
	return &PackBits[TIn, TOut]{
		Base:            block.Base{BlockName: "pack_bits"},
		In:              stream.NewPort[TIn](1 << 16),
		Out:             stream.NewPort[TOut](1 << 16),
		InputsPerOutput: inputsPerOutput,
		BitsPerInput:    bitsPerInput,
		PacketLenTagKey: packetLenTagKey,
		endianness:      endianness,
	}, nil
}

func (b *PackBits[TIn, TOut]) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	toPublish := min(inSpan.Size()/b.InputsPerOutput, outSpan.Size())
	if toPublish == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		if outSpan.Size() == 0 {
			return block.InsufficientOutput, nil
		}
		return block.InsufficientInput, nil
	}

	if b.PacketLenTagKey != "" {
		if m, ok := inSpan.TagAt(0); ok {
			if v, ok := m[b.PacketLenTagKey]; ok {
				n, _ := v.Int64()
				outSpan.PublishTag(0, tag.Map{b.PacketLenTagKey: tag.Int64(n / int64(b.InputsPerOutput))})
			}
		}
	}

	mask := TIn(1<<b.BitsPerInput) - 1
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < toPublish; i++ {
		var join TOut
		var shift TOut
		for j := 0; j < b.InputsPerOutput; j++ {
			chunk := TOut(in[i*b.InputsPerOutput+j] & mask)
			if b.endianness == MSB {
				join = (join << TOut(b.BitsPerInput)) | chunk
			} else {
				join |= chunk << shift
				shift += TOut(b.BitsPerInput)
			}
		}
		out[i] = join
	}

	inSpan.Consume(toPublish * b.InputsPerOutput)
	outSpan.Publish(toPublish)
	return block.OK, nil
}
