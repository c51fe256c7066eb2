package scheduler

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kb9ops/gopacketmodem/internal/block"
)

// CooperativeScheduler is the single-threaded policy: one goroutine
// visits every node once per pass, in the order the graph was built,
// calling ProcessBulk exactly once per visit (spec.md §4.1,
// "Single-threaded cooperative").
type CooperativeScheduler struct {
	Graph  *Graph
	Logger *log.Logger
}

func NewCooperativeScheduler(g *Graph) *CooperativeScheduler {
	return &CooperativeScheduler{Graph: g, Logger: log.Default()}
}

// Run drives the graph until every node reports InsufficientInput with
// no progress made during a full pass, or a node reaches Done/Error.
func (s *CooperativeScheduler) Run() error {
	if err := startAll(s.Graph, s.Logger); err != nil {
		return err
	}
	defer stopAll(s.Graph, s.Logger)

	for {
		progressed := false
		doneCount := 0

		for _, n := range s.Graph.Nodes {
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
				doneCount++
			case block.OK:
				progressed = true
			}
		}

		if doneCount == len(s.Graph.Nodes) {
			return nil
		}
		if !progressed {
			return nil
		}
	}
}
