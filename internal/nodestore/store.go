// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of nodes during one scheduler run.
//
// The store isolates run state (status, error) from the immutable network
// topology, so a finished run can be inspected after the fact without
// touching the network itself.
//
// Nodes follow this lifecycle:
//
//	Blocked → Ready → Submitted → Completed | Failed
//
// Blocked and Ready nodes that never ran because the run halted end as Skipped.
package nodestore

import (
	"context"
	"fmt"
)

// Status is a node's position in the readiness protocol.
type Status int

const (
	// StatusBlocked means at least one parent has not completed.
	StatusBlocked Status = iota
	// StatusReady means every parent completed and the node awaits admission.
	StatusReady
	// StatusSubmitted means the node was handed to the worker pool.
	StatusSubmitted
	// StatusCompleted means the operator succeeded and outputs are published.
	StatusCompleted
	// StatusFailed means the operator, or its submission, failed.
	StatusFailed
	// StatusSkipped means the run halted before the node could execute.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusBlocked:
		return "blocked"
	case StatusReady:
		return "ready"
	case StatusSubmitted:
		return "submitted"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Allowed reports whether from → to is a legal transition.
func Allowed(from, to Status) bool {
	switch from {
	case StatusBlocked:
		return to == StatusReady || to == StatusSkipped
	case StatusReady:
		return to == StatusSubmitted || to == StatusSkipped || to == StatusFailed
	case StatusSubmitted:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Store manages the per-node state of a run.
//
// Implementations MUST be safe for concurrent use; the scheduler loop and
// observers read while results are being recorded.
type Store interface {
	// Transition moves index from one status to another. It fails when the
	// current status is not from or the move is not Allowed, which makes
	// races and protocol violations observable.
	Transition(ctx context.Context, index int, from, to Status) error

	// GetStatus returns the current status. Unknown nodes are Blocked.
	GetStatus(ctx context.Context, index int) (Status, error)

	// SetError records why a node failed.
	SetError(ctx context.Context, index int, nodeErr error) error

	// GetError returns the recorded failure, or nil.
	GetError(ctx context.Context, index int) (error, error)
}
