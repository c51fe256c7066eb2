package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kb9ops/gopacketmodem/internal/block"
)

// ThreadedScheduler runs one goroutine per block; the ring buffers are
// the only synchronization between them (a goroutine whose block makes
// no progress sleeps for idleSleep before calling it again), matching the teacher's one-goroutine-per-channel
// pattern (src/kissnet.go's connect_listen_thread, one goroutine per
// TCP listener with a shared shutdown signal) generalized from network
// channels to streaming blocks.
type ThreadedScheduler struct {
	Graph  *Graph
	Logger *log.Logger

	// ShutdownTimeout bounds how long Run waits for every goroutine to
	// exit after ctx is canceled or a block fails (spec.md §5, "threads must exit within
	// a configurable shutdown interval").
	ShutdownTimeout time.Duration
}

func NewThreadedScheduler(g *Graph) *ThreadedScheduler {
	return &ThreadedScheduler{Graph: g, Logger: log.Default(), ShutdownTimeout: time.Second}
}

// idleSleep is polled between ProcessBulk calls when a block makes no
// progress, so a goroutine backing off INSUFFICIENT_* doesn't spin.
const idleSleep = time.Millisecond

// Run starts every block's goroutine and blocks until ctx is canceled,
// a block returns an error or Error, or every block has returned Done;
// a block that returns Done only ends its own goroutine. Run then waits
// up to ShutdownTimeout for the goroutines to exit and stops every block.
func (s *ThreadedScheduler) Run(ctx context.Context) error {
	if err := startAll(s.Graph, s.Logger); err != nil {
		return err
	}
	defer stopAll(s.Graph, s.Logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(s.Graph.Nodes))
	var wg sync.WaitGroup
	for _, n := range s.Graph.Nodes {
		wg.Add(1)
		go func(n *Node) {
			defer wg.Done()
			errCh <- s.runNode(runCtx, n)
		}(n)
	}

	var firstErr error
	for pending := len(s.Graph.Nodes); pending > 0 && runCtx.Err() == nil; pending-- {
		var err error
		select {
		case err = <-errCh:
		case <-runCtx.Done():
		}
		if err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.ShutdownTimeout):
		s.Logger.Error("scheduler: shutdown timeout exceeded waiting for blocks to exit")
	}

	return firstErr
}

func (s *ThreadedScheduler) runNode(ctx context.Context, n *Node) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		status, err := n.Block.ProcessBulk()
		if err != nil {
			s.Logger.Error("block returned error", "block", n.Block.Name(), "err", err)
			return fmt.Errorf("scheduler: %s: %w", n.Block.Name(), err)
		}
		n.lastStatus = status

		switch status {
		case block.Error:
			return fmt.Errorf("scheduler: %s returned ERROR", n.Block.Name())
		case block.Done:
			return nil
		case block.InsufficientInput, block.InsufficientOutput:
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(idleSleep):
			}
		}
	}
}
