// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Network, the immutable topology a scheduler run
// executes, and the Edge wiring directive used to assemble it.

package network

import (
	"fmt"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/operator"
)

// Edge wires the output port of one node to the input port of another.
type Edge struct {
	Src     int
	SrcPort int
	Dst     int
	DstPort int
}

func (e Edge) String() string {
	return fmt.Sprintf("%d:%d->%d:%d", e.Src, e.SrcPort, e.Dst, e.DstPort)
}

// NodeSpec pairs a node index with the operator instance it will own.
type NodeSpec[W any] struct {
	Index    int
	Operator operator.Operator[W]
}

// Network is a built, validated, acyclic graph of nodes.
//
// The topology never changes after Build returns, so it is safe to read from
// any goroutine without locking. Mutable run progress lives in Progress.
type Network[W any] struct {
	nodes    []*Node[W]
	edges    []Edge
	children [][]int
	inDegree []int
}

// Len returns the number of nodes.
func (n *Network[W]) Len() int { return len(n.nodes) }

// Node returns the node at index.
func (n *Network[W]) Node(index int) (*Node[W], error) {
	if index < 0 || index >= len(n.nodes) {
		return nil, flowerr.New(flowerr.ErrInvalidNode, index, flowerr.NoPort, "network has %d nodes", len(n.nodes))
	}
	return n.nodes[index], nil
}

// Nodes returns all nodes ordered by index. Callers must not modify the slice.
func (n *Network[W]) Nodes() []*Node[W] { return n.nodes }

// Edges returns the wiring in the order it was supplied.
func (n *Network[W]) Edges() []Edge { return n.edges }

// Children returns one entry per outgoing edge of index, so a child wired
// twice appears twice. Callers must not modify the slice.
func (n *Network[W]) Children(index int) []int { return n.children[index] }

// InDegree returns the number of incoming edges of index.
func (n *Network[W]) InDegree(index int) int { return n.inDegree[index] }

// Sources returns the nodes that are ready before anything has run.
func (n *Network[W]) Sources() []int {
	var out []int
	for i, d := range n.inDegree {
		if d == 0 {
			out = append(out, i)
		}
	}
	return out
}

// IsLeaf reports whether no edge leaves index.
func (n *Network[W]) IsLeaf(index int) bool { return len(n.children[index]) == 0 }

// Output returns the value a node published on one of its output ports.
// It is usable after a run, including a failed one, for inspection.
func (n *Network[W]) Output(index, port int) (W, bool, error) {
	var zero W
	node, err := n.Node(index)
	if err != nil {
		return zero, false, err
	}
	if port < 0 || port >= node.Operator.Arity().Out {
		return zero, false, flowerr.InvalidPin(index, port, "%s declares %d outputs", node.Operator.Name(), node.Operator.Arity().Out)
	}
	v, ok := node.Output(port)
	return v, ok, nil
}

// NewProgress returns a fresh, independently locked copy of the in-degree
// counters for one scheduler run.
func (n *Network[W]) NewProgress() *Progress {
	return newProgress(n.inDegree)
}
