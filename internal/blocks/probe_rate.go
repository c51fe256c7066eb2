package blocks

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// ProbeRate is a sink that counts consumed items and periodically
// publishes a "rate_now"/"rate_avg" message on Rate, the instantaneous
// and 1-pole-IIR-smoothed item rate (spec.md §4.6, "Probe Rate") — the
// receiver uses it to report decode throughput without adding backpressure
// to the data path.
type ProbeRate struct {
	block.Base
	In             stream.Port[complex64]
	Rate           *message.Bus
	MinUpdatePeriod time.Duration
	Alpha          float64

	consumed atomic.Uint64
	stopCh   chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewProbeRate(rate *message.Bus, minUpdatePeriod time.Duration, alpha float64) *ProbeRate {
	return &ProbeRate{
		Base:            block.Base{BlockName: "probe_rate"},
		In:              stream.NewPort[complex64](1 << 16),
		Rate:            rate,
		MinUpdatePeriod: minUpdatePeriod,
		Alpha:           alpha,
		now:             time.Now,
	}
}

func (b *ProbeRate) Start() error {
	b.stopCh = make(chan struct{})
	b.wg.Add(1)
	go b.loop()
	return b.Base.Start()
}

func (b *ProbeRate) Stop() error {
	close(b.stopCh)
	b.wg.Wait()
	return b.Base.Stop()
}

func (b *ProbeRate) loop() {
	defer b.wg.Done()
	start := b.now()
	countStart := b.consumed.Load()
	var rateAvg float64
	haveAvg := false

	ticker := time.NewTicker(b.MinUpdatePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			end := b.now()
			countEnd := b.consumed.Load()
			elapsed := end.Sub(start).Seconds()
			rateNow := float64(countEnd-countStart) / elapsed
			if haveAvg {
				rateAvg = (1-b.Alpha)*rateAvg + b.Alpha*rateNow
			} else {
				rateAvg = rateNow
				haveAvg = true
			}
			b.Rate.Publish(message.Message{Data: tag.Map{
				"rate_now": tag.Float64(rateNow),
				"rate_avg": tag.Float64(rateAvg),
			}})
			start, countStart = end, countEnd
		}
	}
}

func (b *ProbeRate) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	n := inSpan.Size()
	b.consumed.Add(uint64(n))
	inSpan.Consume(n)
	return block.OK, nil
}
