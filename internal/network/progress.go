// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package network

import (
	"fmt"
	"sync"
)

// Progress tracks the mutable readiness state of one run: the number of
// unsatisfied incoming edges per node and which nodes have completed.
type Progress struct {
	mu        sync.Mutex
	inDegree  []int
	completed []bool
	done      int
}

func newProgress(inDegree []int) *Progress {
	return &Progress{
		inDegree:  append([]int(nil), inDegree...),
		completed: make([]bool, len(inDegree)),
	}
}

// Remaining returns how many parent edges of index are still unsatisfied.
func (p *Progress) Remaining(index int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inDegree[index]
}

// Complete marks parent as finished and decrements one in-degree per
// outgoing edge. It returns the children whose count reached zero, in edge
// order, each exactly once.
func (p *Progress) Complete(parent int, children []int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.completed[parent] {
		return nil, fmt.Errorf("node %d completed twice", parent)
	}
	p.completed[parent] = true
	p.done++

	var freed []int
	for _, child := range children {
		p.inDegree[child]--
		switch {
		case p.inDegree[child] < 0:
			return freed, fmt.Errorf("node %d in-degree went negative after parent %d", child, parent)
		case p.inDegree[child] == 0:
			freed = append(freed, child)
		}
	}
	return freed, nil
}

// Completed reports whether index has finished.
func (p *Progress) Completed(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed[index]
}

// CompletedCount returns the number of finished nodes.
func (p *Progress) CompletedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Snapshot returns the indices of finished nodes in ascending order.
func (p *Progress) Snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, p.done)
	for i, ok := range p.completed {
		if ok {
			out = append(out, i)
		}
	}
	return out
}
