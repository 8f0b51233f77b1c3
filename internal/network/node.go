// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package network

import (
	"context"
	"errors"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/operator"
)

// Node is a single vertex of the network: one operator instance plus its
// fixed input and output slots. Input slots point at the producing node's
// output cell; output slots own the cells they publish into.
type Node[W any] struct {
	// Index is the graph-assigned, dense node identifier.
	Index int
	// Operator is the computation run by Execute.
	Operator operator.Operator[W]
	// Inputs holds the cells this node reads. nil means unconnected.
	Inputs [operator.MaxPorts]*Cell[W]
	// Outputs holds the cells this node writes. Every declared output has one.
	Outputs [operator.MaxPorts]*Cell[W]
}

// Execute runs the operator once against the node's current inputs.
//
// Input cells are held under read locks while the operator runs. Results are
// gathered into a local buffer first and only then published under the output
// cells' write locks, so no consumer can observe a half-written output and no
// write lock is held across operator logic.
func (n *Node[W]) Execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var in operator.Inputs[W]
	held := make([]*Cell[W], 0, operator.MaxPorts)
	for port, cell := range n.Inputs {
		if cell == nil {
			continue
		}
		cell.mu.RLock()
		held = append(held, cell)
		in[port] = cell.val
	}

	var out operator.Outputs[W]
	err := n.Operator.Execute(ctx, in, &out)
	for _, cell := range held {
		cell.mu.RUnlock()
	}
	if err != nil {
		return n.classify(err)
	}

	arity := n.Operator.Arity()
	for port, v := range out {
		if v != nil && port >= arity.Out {
			return flowerr.InvalidPin(n.Index, port, "%s wrote undeclared output", n.Operator.Name())
		}
	}

	locked := make([]*Cell[W], 0, operator.MaxPorts)
	for _, cell := range n.Outputs {
		if cell != nil {
			cell.mu.Lock()
			locked = append(locked, cell)
		}
	}
	for port, v := range out {
		if v == nil || n.Outputs[port] == nil {
			continue
		}
		val := *v
		n.Outputs[port].val = &val
	}
	for _, cell := range locked {
		cell.mu.Unlock()
	}

	logger.Debug("Node outputs published.", "nodeIndex", n.Index, "operator", n.Operator.Name())
	return nil
}

// classify attaches this node's index to an operator error. Errors already
// carrying a flowerr kind keep it; anything else is reported as ErrOperator.
func (n *Node[W]) classify(err error) error {
	var fe *flowerr.Error
	if errors.As(err, &fe) {
		if fe.Node != flowerr.NoNode {
			return err
		}
		clone := *fe
		clone.Node = n.Index
		return &clone
	}
	return flowerr.Wrap(flowerr.ErrOperator, n.Index, err)
}

// Output returns the value published on port, if any.
func (n *Node[W]) Output(port int) (W, bool) {
	var zero W
	if port < 0 || port >= operator.MaxPorts || n.Outputs[port] == nil {
		return zero, false
	}
	return n.Outputs[port].Load()
}
