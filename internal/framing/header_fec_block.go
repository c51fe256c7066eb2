package framing

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// HeaderFecEncoder is a streaming wrapper around EncodeHeader: it reads
// 4-byte headers and writes 32-byte codewords, an 8x resampling block.
type HeaderFecEncoder struct {
	block.Base
	In  stream.Port[byte]
	Out stream.Port[byte]
}

func NewHeaderFecEncoder() *HeaderFecEncoder {
	return &HeaderFecEncoder{
		Base: block.Base{BlockName: "header_fec_encoder"},
		In:   stream.NewPort[byte](4 * 64),
		Out:  stream.NewPort[byte](HeaderCodewordLen * 64),
	}
}

func (b *HeaderFecEncoder) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	codewords := min(inSpan.Size()/4, outSpan.Size()/HeaderCodewordLen)
	if codewords == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		if inSpan.Size() < 4 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}

	if m, ok := inSpan.TagAt(0); ok {
		if v, ok := m[tag.KeyPacketLen]; ok {
			n, _ := v.Int64()
			outSpan.PublishTag(0, tag.Map{tag.KeyPacketLen: tag.Int64(n * 8)})
		}
	}

	in := inSpan.Items()
	out := outSpan.Items()
	for j := 0; j < codewords; j++ {
		var header [4]byte
		copy(header[:], in[j*4:j*4+4])
		codeword := EncodeHeader(header)
		copy(out[j*HeaderCodewordLen:], codeword[:])
	}

	inSpan.Consume(codewords * 4)
	outSpan.Publish(codewords * HeaderCodewordLen)
	return block.OK, nil
}

// HeaderFecDecoder is a streaming wrapper around DecodeHeader: it reads
// blocks of 256 LLRs and writes 4-byte headers, tagging invalid_header
// on decode failure (spec.md §4.2, "Header FEC").
type HeaderFecDecoder struct {
	block.Base
	In  stream.Port[float32]
	Out stream.Port[byte]
}

func NewHeaderFecDecoder() *HeaderFecDecoder {
	return &HeaderFecDecoder{
		Base: block.Base{BlockName: "header_fec_decoder"},
		In:   stream.NewPort[float32](HeaderLLRLen * 8),
		Out:  stream.NewPort[byte](4 * 8),
	}
}

func (b *HeaderFecDecoder) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	codewords := min(inSpan.Size()/HeaderLLRLen, outSpan.Size()/4)
	if codewords == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		if inSpan.Size() < HeaderLLRLen {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}

	in := inSpan.Items()
	out := outSpan.Items()
	for j := 0; j < codewords; j++ {
		header, ok := DecodeHeader(in[j*HeaderLLRLen : (j+1)*HeaderLLRLen])
		if !ok {
			outSpan.PublishTag(j*4, tag.Map{tag.KeyInvalidHeader: tag.Null()})
		}
		copy(out[j*4:j*4+4], header[:])
	}

	inSpan.Consume(codewords * HeaderLLRLen)
	outSpan.Publish(codewords * 4)
	return block.OK, nil
}
