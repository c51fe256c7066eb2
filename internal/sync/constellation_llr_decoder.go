package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// ConstellationLLRDecoder converts derotated complex symbols to soft
// bit log-likelihood ratios, positive meaning bit 0 is more likely. A
// BPSK symbol yields one LLR (its real part, scaled); a QPSK symbol
// yields two, real then imaginary, since the in-phase and quadrature
// rails carry independent bits. It switches between the two per the
// constellation tag the rest of the receive chain already threads
// through every segment of the frame, so the same decoder instance
// serves the syncword, header and payload without being split into
// per-segment copies (spec.md §4.5, "Constellation LLR decoder").
type ConstellationLLRDecoder struct {
	block.Base
	In  stream.Port[complex64]
	Out stream.Port[float32]

	NoiseSigma float64

	constel Constellation
}

func NewConstellationLLRDecoder(noiseSigma float64) *ConstellationLLRDecoder {
	return &ConstellationLLRDecoder{
		Base:       block.Base{BlockName: "constellation_llr_decoder"},
		In:         stream.NewPort[complex64](1 << 16),
		Out:        stream.NewPort[float32](1 << 17),
		NoiseSigma: noiseSigma,
		constel:    ConstellationQPSK,
	}
}

func (b *ConstellationLLRDecoder) scale() float32 {
	return float32(2 / (b.NoiseSigma * b.NoiseSigma))
}

func (b *ConstellationLLRDecoder) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 17)

	in := inSpan.Items()
	out := outSpan.Items()
	scale := b.scale()

	consumed, published := 0, 0
	for consumed < len(in) {
		llrsPerSymbol := 2
		if b.constel == ConstellationBPSK {
			llrsPerSymbol = 1
		}
		if published+llrsPerSymbol > len(out) {
			break
		}

		if m, ok := inSpan.TagAt(int64(consumed)); ok {
			if v, ok := m[tag.KeyConstellation]; ok {
				if s, ok := v.StringVal(); ok && s == "BPSK" {
					b.constel = ConstellationBPSK
				} else {
					b.constel = ConstellationQPSK
				}
			}
			outSpan.PublishTag(published, m)
		}

		s := in[consumed]
		if b.constel == ConstellationBPSK {
			out[published] = real(s) * scale
			published++
		} else {
			out[published] = real(s) * scale
			out[published+1] = imag(s) * scale
			published += 2
		}
		consumed++
	}

	inSpan.Consume(consumed)
	outSpan.Publish(published)
	if consumed == 0 {
		return block.InsufficientInput, nil
	}
	if published == 0 {
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
