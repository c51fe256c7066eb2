package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/scheduler"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// copyBlock is a minimal test fixture: copies bytes from In to Out
// until In is exhausted and its producer reports Done.
type copyBlock struct {
	block.Base
	In  stream.Port[byte]
	Out stream.Port[byte]
}

func (c *copyBlock) ProcessBulk() (block.Status, error) {
	in := c.In.InSpan(1 << 10)
	out := c.Out.OutSpan(1 << 10)
	n := min(in.Size(), out.Size())
	copy(out.Items(), in.Items()[:n])
	in.Consume(n)
	out.Publish(n)
	if n == 0 {
		if c.In.Buf.ProducerDone() && c.In.Buf.Available() == 0 {
			return block.Done, nil
		}
		return block.InsufficientInput, nil
	}
	return block.OK, nil
}

func TestCooperativeSchedulerRunsUntilDone(t *testing.T) {
	src := stream.NewPort[byte](16)
	dst := stream.NewPort[byte](16)
	cb := &copyBlock{Base: block.Base{BlockName: "copy"}, In: src, Out: dst}

	in := src.OutSpan(4)
	copy(in.Items(), []byte{1, 2, 3, 4})
	in.Publish(4)
	src.Buf.MarkDone()

	g := scheduler.NewGraph(cb)
	s := scheduler.NewCooperativeScheduler(g)
	require.NoError(t, s.Run())

	out := dst.InSpan(4)
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Items())
}

func TestThreadedSchedulerStopsOnContextCancel(t *testing.T) {
	src := stream.NewPort[byte](16)
	dst := stream.NewPort[byte](16)
	cb := &copyBlock{Base: block.Base{BlockName: "copy"}, In: src, Out: dst}

	g := scheduler.NewGraph(cb)
	s := scheduler.NewThreadedScheduler(g)
	s.ShutdownTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ThreadedScheduler.Run did not return after cancel")
	}
}
