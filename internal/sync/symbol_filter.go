package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// SymbolFilter is the receive matched filter: a polyphase RRC bank
// that also performs symbol-clock timing recovery, re-synchronizing
// its phase and arm whenever a syncword_amplitude tag arrives (spec.md
// §4.5, "Symbol filter (matched RRC + timing)").
//
// The reference derives the initial arm from a fractional time
// estimate produced alongside the syncword detection; this detector
// does not expose sub-sample timing, so the arm is always reset to
// arm 0 (the prototype filter's nominal, zero-offset phase) on a
// syncword tag. ResetClockPhase still re-aligns the sample-clock
// counter to the RRC group delay, including the boundary cases where
// the free-running and reset phases disagree by exactly one sample on
// whether the tagged sample itself closes out a symbol (ProcessBulk's
// oldDue/newDue handling), so the reset never silently skips or
// duplicates an output symbol.
type SymbolFilter struct {
	block.Base
	In  stream.Port[complex64]
	Out stream.Port[complex64]

	Sps             int
	NumArms         int
	ResetClockPhase int

	arms    [][]float32
	history []complex64
	phase   int
	arm     int
	sigma   float32

	pendingTags []pendingTag
}

type pendingTag struct {
	samplesUntil int
	m            tag.Map
}

// NewSymbolFilter builds the polyphase bank from prototype taps split
// into numArms arms (arm 0 is the unshifted RRC response).
func NewSymbolFilter(sps, numArms, resetClockPhase int, prototype []float32) *SymbolFilter {
	arms := dsp.Polyphase(prototype, numArms)
	armLen := 0
	for _, a := range arms {
		if len(a) > armLen {
			armLen = len(a)
		}
	}
	return &SymbolFilter{
		Base:            block.Base{BlockName: "symbol_filter"},
		In:              stream.NewPort[complex64](1 << 16),
		Out:             stream.NewPort[complex64](1 << 16),
		Sps:             sps,
		NumArms:         numArms,
		ResetClockPhase: resetClockPhase,
		arms:            arms,
		history:         make([]complex64, armLen),
		sigma:           1,
	}
}

func (b *SymbolFilter) dot() complex64 {
	taps := b.arms[b.arm]
	var acc complex64
	offset := len(b.history) - len(taps)
	for i, t := range taps {
		acc += complex64(complex(float64(t), 0)) * b.history[offset+i]
	}
	return complex64(complex(float64(real(acc))*float64(b.sigma), float64(imag(acc))*float64(b.sigma)))
}

// pushSample advances the history buffer, consumes one input sample and
// age the pending-tag countdowns. Callers decide separately whether the
// resulting phase also closes out a symbol.
func (b *SymbolFilter) pushSample(s complex64) {
	copy(b.history, b.history[1:])
	b.history[len(b.history)-1] = s
	for i := range b.pendingTags {
		b.pendingTags[i].samplesUntil--
	}
}

// emitSymbol writes the current arm's matched-filter output and releases
// any pending tags whose delay has elapsed.
func (b *SymbolFilter) emitSymbol(outSpan stream.OutSpan[complex64], out []complex64, published int) {
	out[published] = b.dot()
	for _, pt := range b.pendingTags {
		if pt.samplesUntil >= 0 && pt.samplesUntil < b.Sps/2 {
			outSpan.PublishTag(published, pt.m)
		}
	}
	filtered := b.pendingTags[:0]
	for _, pt := range b.pendingTags {
		if pt.samplesUntil >= 0 {
			filtered = append(filtered, pt)
		}
	}
	b.pendingTags = filtered
}

func (b *SymbolFilter) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	consumed := 0
	published := 0
	in := inSpan.Items()
	out := outSpan.Items()

loop:
	for consumed < len(in) && published < len(out) {
		if m, ok := inSpan.TagAt(int64(consumed)); ok {
			if v, ok := m[tag.KeySyncwordAmplitude]; ok {
				amp, _ := v.Float64()
				if amp != 0 {
					b.sigma = float32(1 / amp)
				}

				// The free-running clock and the reset clock agree on
				// whether this sample closes out a symbol unless their
				// phases land exactly one sample apart (spec.md §4.5).
				// Disagreement either drops an output the free-running
				// clock was due to produce right here, or manufactures
				// one the reset clock wasn't due to produce yet; both
				// are corrected by handling this one sample specially
				// before the phase actually resets.
				oldDue := b.phase == b.Sps-1
				newPhase := b.ResetClockPhase
				newDue := newPhase == b.Sps-1

				switch {
				case oldDue && !newDue:
					if published >= len(out) {
						break loop
					}
					b.pushSample(in[consumed])
					consumed++
					b.emitSymbol(outSpan, out, published)
					published++
					newPhase++
					b.phase = newPhase
					b.arm = 0
					b.pendingTags = append(b.pendingTags, pendingTag{samplesUntil: 0, m: m})
					continue loop
				case !oldDue && newDue:
					b.pushSample(in[consumed])
					consumed++
					newPhase++
					b.phase = newPhase
					b.arm = 0
					b.pendingTags = append(b.pendingTags, pendingTag{samplesUntil: 0, m: m})
					continue loop
				}

				b.phase = newPhase
				b.arm = 0
			}
			b.pendingTags = append(b.pendingTags, pendingTag{samplesUntil: 0, m: m})
		}

		b.pushSample(in[consumed])
		consumed++
		b.phase++

		if b.phase >= b.Sps {
			b.phase -= b.Sps
			b.emitSymbol(outSpan, out, published)
			published++
		}
	}

	inSpan.Consume(consumed)
	outSpan.Publish(published)
	if published == 0 {
		if consumed == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
