package bits

import "math/bits"

// Scrambler is a Fibonacci LFSR additive scrambler, ported from the
// GNU Radio 3.10 additive scrambler block: the LFSR bit is the
// register's LSB; the feedback bit is the XOR-parity of reg&Mask; each
// step shifts the register right by one and inserts the feedback bit at
// position Length.
//
// Two specializations are exposed as methods: ScrambleByte XORs a
// hard bit, ScrambleSoft negates a soft LLR when the LFSR bit is 1.
type Scrambler struct {
	Mask   uint64
	Seed   uint64
	Length uint64
	// Count resets the LFSR every Count scrambled symbols (0 disables).
	Count uint64

	reg     uint64
	current uint64
}

// CCSDS131 is the CCSDS-131.0-B-5 §10.4 scrambler the transmit and
// receive chains use: mask 0x4001, seed 0x18E38, length 16.
func CCSDS131() *Scrambler {
	s := &Scrambler{Mask: 0x4001, Seed: 0x18E38, Length: 16}
	s.Reset()
	return s
}

// Reset reinitializes the register to Seed, as happens at the start of
// every frame (spec.md §3, "Invariants").
func (s *Scrambler) Reset() {
	s.reg = s.Seed
	s.current = 0
}

func (s *Scrambler) step() uint8 {
	if s.Count != 0 && s.current == s.Count {
		s.Reset()
	}
	lfsrBit := uint8(s.reg & 1)
	shiftIn := uint64(bits.OnesCount64(s.reg&s.Mask) & 1)
	s.reg = (shiftIn << s.Length) | (s.reg >> 1)
	s.current++
	return lfsrBit
}

// ScrambleByte XORs one hard bit (stored in a byte's LSB, matching the
// unpacked 1-bit-per-byte stream the spec's transmit chain uses between
// unpack and pack).
func (s *Scrambler) ScrambleByte(b byte) byte {
	return b ^ s.step()
}

// ScrambleBytes scrambles a whole unpacked-bit byte slice in place and
// returns it.
func (s *Scrambler) ScrambleBytes(data []byte) []byte {
	for i, b := range data {
		data[i] = s.ScrambleByte(b)
	}
	return data
}

// ScrambleSoft inverts the sign of an LLR when the LFSR bit is 1
// (receive-side soft descrambling).
func (s *Scrambler) ScrambleSoft(llr float32) float32 {
	if s.step() == 1 {
		return -llr
	}
	return llr
}

// ScrambleSoftSlice scrambles a whole LLR slice in place and returns it.
func (s *Scrambler) ScrambleSoftSlice(llrs []float32) []float32 {
	for i, v := range llrs {
		llrs[i] = s.ScrambleSoft(v)
	}
	return llrs
}
