package framing

// HeaderCodewordLen is the encoded length of a 4-byte header: 12 parity
// bytes from the LDPC outer code, then the whole 16-byte systematic+parity
// codeword is repeated once (rate 1/8 overall).
const HeaderCodewordLen = 32

// HeaderLLRLen is the number of soft symbols (LLRs) a decoder consumes
// per header: 128 coded bits (32 systematic + 96 parity) times the
// repetition factor of 2.
const HeaderLLRLen = 256

// EncodeHeader applies the header FEC to a 4-byte header, returning the
// 32-byte codeword: 4 systematic bytes, 12 parity bytes, then that
// 16-byte block repeated once.
func EncodeHeader(header [4]byte) [HeaderCodewordLen]byte {
	info := uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	parityBytes := encodeParity(info)

	var out [HeaderCodewordLen]byte
	copy(out[0:4], header[:])
	copy(out[4:16], parityBytes[:])
	copy(out[16:32], out[0:16])
	return out
}

// bitAt returns bit n (MSB-first, 0 = most significant) of an 8-bit byte.
func bitAt(b byte, n int) byte { return (b >> (7 - n)) & 1 }

func packBits(bits []byte) byte {
	var b byte
	for _, v := range bits {
		b = (b << 1) | (v & 1)
	}
	return b
}

// DecodeHeader decodes 256 LLRs (positive = bit 0 more likely) back to
// the 4-byte header. It combines the repetition code by addition, then
// hard-slices the 128 combined LLRs into a 32-bit systematic word and 96
// parity bits. Since the pack carries no min-sum LDPC decoder library,
// this uses a bounded single-bit-flip search against the generator
// instead of belief propagation: it re-encodes the hard-sliced
// information word, counts parity mismatches against the received
// parity bits, and accepts the single flip (if any) of an information
// bit that reduces the mismatch count, iterating until no flip helps or
// a handful of rounds have passed. ok is false when, after that search,
// any parity mismatch remains, signalling an uncorrectable/invalid
// header the way the reference decoder's failed-LDPC-decode path does.
func DecodeHeader(llrs []float32) (header [4]byte, ok bool) {
	if len(llrs) != HeaderLLRLen {
		return header, false
	}

	const n = 128
	combined := make([]float32, n)
	for k := 0; k < n; k++ {
		combined[k] = llrs[k] + llrs[k+n]
	}

	hard := make([]byte, n)
	for k, v := range combined {
		if v < 0 {
			hard[k] = 1
		}
	}

	info := func() uint32 {
		var v uint32
		for k := 0; k < 32; k++ {
			v = (v << 1) | uint32(hard[k])
		}
		return v
	}
	receivedParity := hard[32:128]

	mismatches := func(infoWord uint32) int {
		got := encodeParity(infoWord)
		count := 0
		for k := 0; k < 12; k++ {
			diff := got[k] ^ packBits(receivedParity[8*k : 8*k+8])
			count += popcount8(diff)
		}
		return count
	}

	current := info()
	best := mismatches(current)
	for round := 0; round < 32 && best > 0; round++ {
		improved := false
		for bit := 0; bit < 32; bit++ {
			candidate := current ^ (1 << uint(31-bit))
			if m := mismatches(candidate); m < best {
				current, best, improved = candidate, m, true
			}
		}
		if !improved {
			break
		}
	}

	header[0] = byte(current >> 24)
	header[1] = byte(current >> 16)
	header[2] = byte(current >> 8)
	header[3] = byte(current)
	return header, best == 0
}

func popcount8(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}
