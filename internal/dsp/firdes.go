// Package dsp collects the signal-processing primitives shared by the
// transmit shaping filter and the receive synchronization chain: RRC
// filter design, a complex rotator, and a generic (possibly polyphase)
// FIR filter kernel (spec.md §4.1 dependency order: "FIR filter
// kernels ... then the synchronization blocks").
package dsp

import "math"

// RootRaisedCosine computes ntaps|1 (forced odd) root-raised-cosine
// filter taps, numerically equivalent to GNU Radio's
// firdes::root_raised_cosine. gain scales the passband; for the
// transmit interpolator gain is the samples-per-symbol count so the
// filter also supplies the interpolation's amplitude compensation.
func RootRaisedCosine(gain, samplingFreq, symbolRate, alpha float64, ntaps int) []float32 {
	if ntaps%2 == 0 {
		ntaps++
	}

	spb := samplingFreq / symbolRate
	taps := make([]float64, ntaps)
	scale := 0.0
	half := ntaps / 2

	for i := 0; i < ntaps; i++ {
		xindx := float64(i - half)
		x1 := math.Pi * xindx / spb
		x2 := 4.0 * alpha * xindx / spb
		x3 := x2*x2 - 1.0

		var num, den, tap float64
		if math.Abs(x3) >= 0.000001 {
			if i != half {
				num = math.Cos((1.0+alpha)*x1) + math.Sin((1.0-alpha)*x1)/(4.0*alpha*xindx/spb)
			} else {
				num = math.Cos((1.0+alpha)*x1) + (1.0-alpha)*math.Pi/(4.0*alpha)
			}
			den = x3 * math.Pi
			tap = 4.0 * alpha * num / den
		} else if alpha == 1.0 {
			tap = -1.0
		} else {
			x3 = (1.0 - alpha) * x1
			x2 = (1.0 + alpha) * x1
			num = math.Sin(x2)*(1.0+alpha)*math.Pi -
				math.Cos(x3)*((1.0-alpha)*math.Pi*spb)/(4.0*alpha*xindx) +
				math.Sin(x3)*spb*spb/(4.0*alpha*xindx*xindx)
			den = -32.0 * math.Pi * alpha * alpha * xindx / spb
			tap = 4.0 * alpha * num / den
		}
		taps[i] = tap
		scale += tap
	}

	out := make([]float32, ntaps)
	for i, tap := range taps {
		out[i] = float32(tap * gain / scale)
	}
	return out
}
