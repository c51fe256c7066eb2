package dsp

// FIR is a direct-form finite impulse response filter over complex
// samples, fed one input at a time and keeping its own tap-delay
// history. It backs both the transmit interpolating RRC filter and,
// through Polyphase, the receive matched filter's 32 arms (spec.md
// §4.3 "Interpolating FIR filter", §4.5 "Symbol filter").
type FIR struct {
	taps    []float32
	history []complex64
}

// NewFIR builds a FIR with the given taps (oldest-sample-first
// convolution order) and zeroed history.
func NewFIR(taps []float32) *FIR {
	return &FIR{taps: taps, history: make([]complex64, len(taps))}
}

// Push shifts x into the history and returns dot(taps, history) with
// history's newest sample aligned to taps[len-1].
func (f *FIR) Push(x complex64) complex64 {
	copy(f.history, f.history[1:])
	f.history[len(f.history)-1] = x
	return f.Dot()
}

// Dot evaluates the filter against the current history without
// shifting it in, used by the polyphase timing-recovery filter which
// shares one sample history across many arms.
func (f *FIR) Dot() complex64 {
	var acc complex64
	for i, t := range f.taps {
		acc += complex64(complex(float32(t), 0)) * f.history[i]
	}
	return acc
}

// Polyphase splits a prototype filter's taps into numArms
// interleaved sub-filters ("arms"), arm i taking every numArms-th tap
// starting at offset i. Arm 0 is the identity decimation used as the
// nominal (zero time-offset) matched filter (spec.md §4.5, "Symbol
// filter").
func Polyphase(taps []float32, numArms int) [][]float32 {
	arms := make([][]float32, numArms)
	for a := 0; a < numArms; a++ {
		for i := a; i < len(taps); i += numArms {
			arms[a] = append(arms[a], taps[i])
		}
	}
	return arms
}
