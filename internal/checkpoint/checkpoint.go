// Package checkpoint records the progress of a scheduler run after every node
// completion, so an external observer can see how far a run got and what each
// finished node produced.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a run has no recorded checkpoints.
var ErrNotFound = errors.New("checkpoint not found")

// PortValue is one published output, serialized as JSON.
type PortValue struct {
	Port  int             `json:"port"`
	Value json.RawMessage `json:"value"`
}

// Checkpoint captures the run state right after Node completed.
type Checkpoint struct {
	RunID     string      `json:"run_id"`
	Node      int         `json:"node"`
	Completed []int       `json:"completed"`
	Total     int         `json:"total"`
	Outputs   []PortValue `json:"outputs,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Done reports whether every node of the run had completed.
func (c *Checkpoint) Done() bool { return len(c.Completed) == c.Total }

// Store persists checkpoints in the order they are saved.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Latest(ctx context.Context, runID string) (*Checkpoint, error)
	List(ctx context.Context, runID string) ([]*Checkpoint, error)
}

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]*Checkpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]*Checkpoint)}
}

// Save appends a copy of cp.
func (s *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	clone := *cp
	clone.Completed = append([]int(nil), cp.Completed...)
	clone.Outputs = append([]PortValue(nil), cp.Outputs...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[cp.RunID] = append(s.runs[cp.RunID], &clone)
	return nil
}

// Latest returns the most recent checkpoint of runID.
func (s *MemoryStore) Latest(ctx context.Context, runID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cps := s.runs[runID]
	if len(cps) == 0 {
		return nil, ErrNotFound
	}
	return cps[len(cps)-1], nil
}

// List returns every checkpoint of runID, oldest first.
func (s *MemoryStore) List(ctx context.Context, runID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Checkpoint(nil), s.runs[runID]...), nil
}

var _ Store = (*MemoryStore)(nil)
