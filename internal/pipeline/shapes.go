// Package pipeline wires the framing, dsp and sync blocks together into
// the two runnable signal chains spec.md §4.3 and §4.5 describe: a
// transmit chain from packet bytes to baseband samples, and a receive
// chain from baseband samples back to packet bytes.
package pipeline

import "math"

// halfSineUp returns a length-n envelope rising from 0 to 1 along a
// quarter sine, the transmit burst shaper's leading ramp (spec.md
// §4.2, "Burst shaper"; §4.3 step 10).
func halfSineUp(n int) []complex64 {
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		v := math.Sin(math.Pi / 2 * float64(i+1) / float64(n))
		out[i] = complex(float32(v), 0)
	}
	return out
}

// halfSineDown is halfSineUp reversed: falls from 1 to 0.
func halfSineDown(n int) []complex64 {
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		v := math.Sin(math.Pi / 2 * float64(n-i) / float64(n))
		out[i] = complex(float32(v), 0)
	}
	return out
}
