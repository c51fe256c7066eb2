package blocks

import (
	"time"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// Throttle limits the rate samples flow through it to SampleRate,
// sleeping in ProcessBulk until enough wall-clock time has elapsed
// (spec.md §4.6, "Throttle") — used by file-backed I/Q sources so a
// loopback run proceeds at real time instead of as fast as the CPU
// allows. MaxItemsPerChunk, if non-zero, caps how many samples one call
// copies, bounding the sleep-induced latency at low sample rates.
type Throttle struct {
	block.Base
	In                stream.Port[complex64]
	Out               stream.Port[complex64]
	SampleRate        float64
	MaxItemsPerChunk  int

	totalItems uint64
	start      time.Time
	now        func() time.Time
	sleep      func(time.Duration)
}

func NewThrottle(sampleRate float64, maxItemsPerChunk int) *Throttle {
	return &Throttle{
		Base:             block.Base{BlockName: "throttle"},
		In:               stream.NewPort[complex64](1 << 16),
		Out:              stream.NewPort[complex64](1 << 16),
		SampleRate:       sampleRate,
		MaxItemsPerChunk: maxItemsPerChunk,
		now:              time.Now,
		sleep:            time.Sleep,
	}
}

// SetClockForTest overrides the wall clock and sleep function; tests use
// it to make throttling deterministic without real delays.
func (b *Throttle) SetClockForTest(now func() time.Time, sleep func(time.Duration)) {
	b.now, b.sleep = now, sleep
}

func (b *Throttle) Start() error {
	b.totalItems = 0
	b.start = b.now()
	return b.Base.Start()
}

func (b *Throttle) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	n := inSpan.Size()
	if outSpan.Size() < n {
		n = outSpan.Size()
	}
	if b.MaxItemsPerChunk > 0 && n > b.MaxItemsPerChunk {
		n = b.MaxItemsPerChunk
	}

	copy(outSpan.Items(), inSpan.Items()[:n])

	period := time.Duration(float64(time.Second) / b.SampleRate)
	expected := b.start.Add(period * time.Duration(b.totalItems+uint64(n)))
	if now := b.now(); expected.After(now) {
		b.sleep(expected.Sub(now))
	}

	b.totalItems += uint64(n)
	inSpan.Consume(n)
	outSpan.Publish(n)
	return block.OK, nil
}
