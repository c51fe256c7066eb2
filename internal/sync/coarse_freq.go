package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// CoarseFrequencyCorrection derotates the incoming stream by the
// negative of the detector's syncword_freq estimate, applying the new
// estimate Delay samples after the tag that carried it so any
// in-flight samples finish with the old correction (spec.md §4.5,
// "Coarse frequency correction").
type CoarseFrequencyCorrection struct {
	block.Base
	In    stream.Port[complex64]
	Out   stream.Port[complex64]
	Delay int

	rot          *dsp.Rotator
	pendingFreq  float64
	countdown    int
	havePending  bool
}

func NewCoarseFrequencyCorrection(delay int) *CoarseFrequencyCorrection {
	return &CoarseFrequencyCorrection{
		Base:  block.Base{BlockName: "coarse_frequency_correction"},
		In:    stream.NewPort[complex64](1 << 16),
		Out:   stream.NewPort[complex64](1 << 16),
		Delay: delay,
		rot:   dsp.NewRotator(0),
	}
}

func (b *CoarseFrequencyCorrection) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			if v, ok := m[tag.KeySyncwordFreq]; ok {
				f, _ := v.Float64()
				b.pendingFreq = f
				b.countdown = b.Delay
				b.havePending = true
			}
		}
		out[i] = b.rot.Next(in[i])
		if b.havePending {
			if b.countdown == 0 {
				b.rot.SetPhaseIncr(-b.pendingFreq)
				b.havePending = false
			} else {
				b.countdown--
			}
		}
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
