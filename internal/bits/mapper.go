package bits

import (
	"fmt"
	"math"
)

// Mapper is a lookup block with a table of 2^k output values, selected
// by the low k bits of each input byte (spec.md §4.2, "Mapper").
type Mapper struct {
	table []complex64
	k     int
}

// NewMapper validates that len(table) is a power of two and returns a
// Mapper using it.
func NewMapper(table []complex64) (*Mapper, error) {
	n := len(table)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("bits: mapper table length %d is not a power of two", n)
	}
	k := 0
	for 1<<k < n {
		k++
	}
	cp := make([]complex64, n)
	copy(cp, table)
	return &Mapper{table: cp, k: k}, nil
}

// BitsPerSymbol returns k, the log2 of the table size.
func (m *Mapper) BitsPerSymbol() int { return m.k }

// Map looks up in's low k bits in the table.
func (m *Mapper) Map(in byte) complex64 {
	mask := byte(len(m.table) - 1)
	return m.table[in&mask]
}

// MapAll maps a whole slice of input bytes to symbols.
func (m *Mapper) MapAll(in []byte) []complex64 {
	out := make([]complex64, len(in))
	for i, v := range in {
		out[i] = m.Map(v)
	}
	return out
}

// BPSKTable is the {+1, -1} constellation the spec uses for the
// syncword (spec.md §6): bit 0 -> +1, bit 1 -> -1.
var BPSKTable = []complex64{complex(1, 0), complex(-1, 0)}

// QPSKTable is the Gray-coded QPSK constellation the spec's header
// codeword and payload use (spec.md §6): 00->(+a,+a), 01->(+a,-a),
// 10->(-a,+a), 11->(-a,-a), a = sqrt(2)/2.
var QPSKTable = func() []complex64 {
	a := float32(1 / math.Sqrt2)
	return []complex64{
		complex(a, a),
		complex(a, -a),
		complex(-a, a),
		complex(-a, -a),
	}
}()

// NewBPSKMapper returns the fixed BPSK mapper.
func NewBPSKMapper() *Mapper {
	m, _ := NewMapper(BPSKTable)
	return m
}

// NewQPSKMapper returns the fixed Gray-coded QPSK mapper.
func NewQPSKMapper() *Mapper {
	m, _ := NewMapper(QPSKTable)
	return m
}
