package dsp

import (
	"math"
	"math/cmplx"
)

// Rotator multiplies each input sample by a complex exponential whose
// phase advances by PhaseIncr radians every sample, periodically
// renormalizing to unit modulus so rounding error cannot accumulate
// into a gain drift (spec.md §4.5, "Coarse frequency correction").
type Rotator struct {
	PhaseIncr float64

	exp     complex128
	expIncr complex128
	counter uint
}

// NewRotator builds a Rotator already primed with phaseIncr.
func NewRotator(phaseIncr float64) *Rotator {
	r := &Rotator{PhaseIncr: phaseIncr}
	r.Reset()
	return r
}

// Reset restores unit phase and the zero sample counter, matching the
// reference's start() hook.
func (r *Rotator) Reset() {
	r.exp = complex(1, 0)
	r.expIncr = complex(math.Cos(r.PhaseIncr), math.Sin(r.PhaseIncr))
	r.counter = 0
}

// SetPhaseIncr changes the rotation rate without touching the current
// phase, mirroring settingsChanged in the reference.
func (r *Rotator) SetPhaseIncr(phaseIncr float64) {
	r.PhaseIncr = phaseIncr
	r.expIncr = complex(math.Cos(phaseIncr), math.Sin(phaseIncr))
}

// SetPhase forces the current phase angle (radians), used when the
// Costas/coarse-correction loops latch a detector-supplied estimate.
func (r *Rotator) SetPhase(phase float64) {
	r.exp = complex(math.Cos(phase), math.Sin(phase))
}

// Next derotates one sample and advances the internal phase.
func (r *Rotator) Next(a complex64) complex64 {
	z := complex64(complex128(a) * r.exp)
	r.exp *= r.expIncr
	r.counter++
	if r.counter%512 == 0 {
		r.exp /= complex(cmplx.Abs(r.exp), 0)
	}
	return z
}
