// Package iosample implements the file-backed complex-sample
// source/sink the out-of-scope "SoapySDR radio binding" is specified
// to stand behind (spec.md §1, §6): raw interleaved float32 I/Q, the
// same layout the teacher's gen_packets/atest golden-file round trip
// uses for audio samples (src/scripts_test.go), generalized from 16-bit
// PCM mono to float32 complex baseband.
package iosample

import (
	"encoding/binary"
	"io"
	"math"
)

// WriteComplex64 appends samples to w as interleaved little-endian
// float32 (I, Q, I, Q, ...).
func WriteComplex64(w io.Writer, samples []complex64) error {
	buf := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(imag(s)))
	}
	_, err := w.Write(buf)
	return err
}

// ReadAllComplex64 reads r to EOF, decoding interleaved little-endian
// float32 I/Q pairs.
func ReadAllComplex64(r io.Reader) ([]complex64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	n := len(raw) / 8
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8+4:]))
		out[i] = complex(re, im)
	}
	return out, nil
}

// Source reads a fixed slice of samples in FIFO chunks, the file-backed
// counterpart to a live SDR source for offline loopback runs.
type Source struct {
	samples []complex64
	pos     int
}

// NewSource wraps an already-decoded sample slice (see ReadAllComplex64).
func NewSource(samples []complex64) *Source {
	return &Source{samples: samples}
}

// Read copies up to len(dst) unread samples into dst and returns the
// count copied; 0 means exhausted.
func (s *Source) Read(dst []complex64) int {
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n
}

// Remaining reports how many samples are left to read.
func (s *Source) Remaining() int { return len(s.samples) - s.pos }

// Sink accumulates written samples in memory; Flush hands them to an
// io.Writer in iosample's wire format.
type Sink struct {
	samples []complex64
}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) Write(samples []complex64) {
	s.samples = append(s.samples, samples...)
}

func (s *Sink) Samples() []complex64 { return s.samples }

func (s *Sink) Flush(w io.Writer) error {
	return WriteComplex64(w, s.samples)
}
