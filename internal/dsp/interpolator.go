package dsp

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// Interpolator is the transmit RRC pulse-shaping filter: it expands
// each input symbol into Sps output samples by zero-stuffing ahead of
// an FIR convolution with Taps, rescaling any packet-length tag by Sps
// in lock-step (spec.md §4.3 step 8, "Interpolating FIR filter";
// §8 property 5, tag rescaling under a p/q ratio).
type Interpolator struct {
	block.Base
	In             stream.Port[complex64]
	Out            stream.Port[complex64]
	Sps            int
	PacketLenKey   string

	taps    []float32
	history []complex64
	phase   int
}

// NewInterpolator builds an Interpolator with sps output samples per
// input symbol, convolving with taps (typically RootRaisedCosine's
// output, gain = sps).
func NewInterpolator(sps int, taps []float32, packetLenKey string) *Interpolator {
	return &Interpolator{
		Base:         block.Base{BlockName: "rrc_interpolator"},
		In:           stream.NewPort[complex64](1 << 16),
		Out:          stream.NewPort[complex64](1 << 18),
		Sps:          sps,
		PacketLenKey: packetLenKey,
		taps:         taps,
		history:      make([]complex64, len(taps)),
	}
}

func (b *Interpolator) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 18)

	maxIn := inSpan.Size()
	maxOutSymbols := outSpan.Size() / b.Sps
	n := maxIn
	if maxOutSymbols < n {
		n = maxOutSymbols
	}
	if n == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}

	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if b.PacketLenKey != "" {
			if m, ok := inSpan.TagAt(int64(i)); ok {
				if v, ok := m[b.PacketLenKey]; ok {
					if l, ok := v.Int64(); ok {
						outSpan.PublishTag(i*b.Sps, tag.Map{b.PacketLenKey: tag.Int64(l * int64(b.Sps))})
					}
				}
			}
		}
		for s := 0; s < b.Sps; s++ {
			copy(b.history, b.history[1:])
			if s == 0 {
				b.history[len(b.history)-1] = in[i]
			} else {
				b.history[len(b.history)-1] = 0
			}
			var acc complex64
			for k, t := range b.taps {
				acc += complex64(complex(float64(t), 0)) * b.history[k]
			}
			out[i*b.Sps+s] = acc
		}
	}

	inSpan.Consume(n)
	outSpan.Publish(n * b.Sps)
	return block.OK, nil
}
