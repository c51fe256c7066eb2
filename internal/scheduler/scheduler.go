// Package scheduler drives a graph of block.Block values to
// completion using one of two execution policies (spec.md §4.1,
// §5): a single-threaded cooperative scheduler that visits blocks in
// topological order, and a task-per-block threaded scheduler where
// each block runs on its own goroutine and the ring buffers alone
// provide cross-block synchronization. Grounded on the teacher's
// listener-goroutine pattern (src/kissnet.go's connect_listen_thread):
// one goroutine per long-lived channel, a shared stop signal, and a
// bounded shutdown wait.
package scheduler

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kb9ops/gopacketmodem/internal/block"
)

// Node is one block in the graph plus the bookkeeping the scheduler
// needs: whether its last call made progress, for the cooperative
// scheduler's idle-pass termination check.
type Node struct {
	Block      block.Block
	lastStatus block.Status
}

// Graph is an ordered list of blocks to run; order matters for the
// cooperative scheduler (spec.md §4.1, "visits blocks in topological
// order") and is irrelevant, but still required for bookkeeping, for
// the threaded scheduler.
type Graph struct {
	Nodes []*Node
}

// NewGraph wraps blocks in visitation order.
func NewGraph(blocks ...block.Block) *Graph {
	g := &Graph{}
	for _, b := range blocks {
		g.Nodes = append(g.Nodes, &Node{Block: b})
	}
	return g
}

// Add appends blocks to the graph, for wiring a device or file adapter
// onto a pipeline's already-built graph without rebuilding it.
func (g *Graph) Add(blocks ...block.Block) {
	for _, b := range blocks {
		g.Nodes = append(g.Nodes, &Node{Block: b})
	}
}

// startAll calls Start on every node, tearing down (Stop) any
// already-started block if one fails (spec.md §5, "OS resources ...
// released in stop on every path, including error returns").
func startAll(g *Graph, logger *log.Logger) error {
	started := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if err := n.Block.Start(); err != nil {
			logger.Error("block failed to start", "block", n.Block.Name(), "err", err)
			for _, s := range started {
				_ = s.Block.Stop()
			}
			return fmt.Errorf("scheduler: starting %s: %w", n.Block.Name(), err)
		}
		started = append(started, n)
	}
	return nil
}

func stopAll(g *Graph, logger *log.Logger) {
	for _, n := range g.Nodes {
		if err := n.Block.Stop(); err != nil {
			logger.Error("block failed to stop cleanly", "block", n.Block.Name(), "err", err)
		}
	}
}
