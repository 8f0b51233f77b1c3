// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface.
//
// It uses sync.Map because every node's state is independent and written
// often while the key space (all node indices) is fixed for the run.
package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/burstflow/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states sync.Map // Key: node index, Value: nodestore.Status
	errors sync.Map // Key: node index, Value: error
}

// New creates a new, empty in-memory node state store.
func New() *Store {
	return &Store{}
}

// Transition atomically moves index from one status to another.
func (s *Store) Transition(ctx context.Context, index int, from, to nodestore.Status) error {
	if !nodestore.Allowed(from, to) {
		return fmt.Errorf("node %d: disallowed transition %s -> %s", index, from, to)
	}
	cur, _ := s.states.LoadOrStore(index, nodestore.StatusBlocked)
	if cur.(nodestore.Status) != from {
		return fmt.Errorf("node %d: expected %s, got %s", index, from, cur)
	}
	if !s.states.CompareAndSwap(index, from, to) {
		cur, _ := s.states.Load(index)
		return fmt.Errorf("node %d: concurrent transition, now %s", index, cur)
	}
	return nil
}

// GetStatus retrieves the execution status of a node.
// If a status has not been set, it returns StatusBlocked.
func (s *Store) GetStatus(ctx context.Context, index int) (nodestore.Status, error) {
	status, ok := s.states.Load(index)
	if !ok {
		return nodestore.StatusBlocked, nil
	}
	return status.(nodestore.Status), nil
}

// SetError records the failure error of a node.
func (s *Store) SetError(ctx context.Context, index int, nodeErr error) error {
	s.errors.Store(index, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed node.
func (s *Store) GetError(ctx context.Context, index int) (error, error) {
	err, ok := s.errors.Load(index)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

var _ nodestore.Store = (*Store)(nil)
