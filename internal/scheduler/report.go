package scheduler

import (
	"time"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/nodestore"
)

// Report summarizes a finished run, successful or not.
type Report struct {
	RunID string
	// States holds each node's final status, indexed by node.
	States []nodestore.Status
	// Errors holds the failure of every Failed node.
	Errors map[int]error
	// FailedNode is the node whose failure halted the run, or flowerr.NoNode.
	FailedNode int
	Started    time.Time
	Finished   time.Time
}

func newReport(runID string, n int) *Report {
	return &Report{
		RunID:      runID,
		States:     make([]nodestore.Status, n),
		Errors:     make(map[int]error),
		FailedNode: flowerr.NoNode,
		Started:    time.Now(),
	}
}

// Duration is the run's wall time.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Count returns how many nodes ended in status s.
func (r *Report) Count(s nodestore.Status) int {
	var n int
	for _, st := range r.States {
		if st == s {
			n++
		}
	}
	return n
}

// Succeeded reports whether every node completed.
func (r *Report) Succeeded() bool {
	return r.Count(nodestore.StatusCompleted) == len(r.States)
}
