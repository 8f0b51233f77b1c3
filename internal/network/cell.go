// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package network

import "sync"

// Cell is the shared storage behind one output port. The producing node takes
// the write lock exactly once to publish its value; every consumer wired to
// the port takes read locks. A Cell starts empty.
type Cell[W any] struct {
	mu  sync.RWMutex
	val *W
}

// NewCell allocates an empty cell.
func NewCell[W any]() *Cell[W] {
	return &Cell[W]{}
}

// Load returns the published value, if any.
func (c *Cell[W]) Load() (W, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.val == nil {
		var zero W
		return zero, false
	}
	return *c.val, true
}

// IsSet reports whether a value has been published.
func (c *Cell[W]) IsSet() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val != nil
}
