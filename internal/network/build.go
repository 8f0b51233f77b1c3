// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package network

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/operator"
)

// Build constructs a complete, validated network. Every problem with the
// input is reported here, before anything runs:
//   - node indices must be unique and dense from zero;
//   - edge endpoints must exist and ports must be within the declared arity;
//   - an input port may be wired at most once;
//   - typed operators must agree on the port type of every edge;
//   - the graph must be acyclic.
//
// An output port may feed any number of input ports; all of them share the
// producer's single cell.
func Build[W any](ctx context.Context, specs []NodeSpec[W], edges []Edge) (*Network[W], error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting network construction.", "nodes", len(specs), "edges", len(edges))

	// First pass: create nodes and their output cells.
	nodes, err := createNodes(specs)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(nodes))

	net := &Network[W]{
		nodes:    nodes,
		edges:    append([]Edge(nil), edges...),
		children: make([][]int, len(nodes)),
		inDegree: make([]int, len(nodes)),
	}

	// Second pass: install shared cells into the consumer slots.
	for _, e := range edges {
		if err := net.link(e); err != nil {
			return nil, err
		}
		logger.Debug("Build: Linked edge.", "edge", e.String())
	}

	// Third pass: reject cycles.
	if err := net.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating network: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	for _, node := range nodes {
		for port := range node.Operator.Arity().In {
			if node.Inputs[port] == nil {
				logger.Warn("Input port is not wired; the operator will see it unpopulated.",
					"nodeIndex", node.Index, "operator", node.Operator.Name(), "port", port)
			}
		}
	}

	logger.Debug("Build: Network construction successful.")
	return net, nil
}

func createNodes[W any](specs []NodeSpec[W]) ([]*Node[W], error) {
	nodes := make([]*Node[W], len(specs))
	for _, spec := range specs {
		if spec.Index < 0 || spec.Index >= len(specs) {
			return nil, flowerr.New(flowerr.ErrInvalidNode, spec.Index, flowerr.NoPort,
				"indices must be dense in [0,%d)", len(specs))
		}
		if nodes[spec.Index] != nil {
			return nil, flowerr.New(flowerr.ErrInvalidNode, spec.Index, flowerr.NoPort, "index assigned twice")
		}
		if spec.Operator == nil {
			return nil, flowerr.New(flowerr.ErrInvalidNode, spec.Index, flowerr.NoPort, "nil operator")
		}
		arity := spec.Operator.Arity()
		if err := arity.Validate(); err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", spec.Index, spec.Operator.Name(), err)
		}

		node := &Node[W]{Index: spec.Index, Operator: spec.Operator}
		for port := range arity.Out {
			node.Outputs[port] = NewCell[W]()
		}
		nodes[spec.Index] = node
	}
	return nodes, nil
}

// link validates one edge and wires the producer's cell into the consumer.
func (n *Network[W]) link(e Edge) error {
	src, err := n.Node(e.Src)
	if err != nil {
		return fmt.Errorf("edge %s: %w", e, err)
	}
	dst, err := n.Node(e.Dst)
	if err != nil {
		return fmt.Errorf("edge %s: %w", e, err)
	}
	if e.Src == e.Dst {
		return flowerr.New(flowerr.ErrCycle, e.Src, flowerr.NoPort, "self-referential edge %s", e)
	}
	if out := src.Operator.Arity().Out; e.SrcPort < 0 || e.SrcPort >= out {
		return flowerr.InvalidPin(e.Src, e.SrcPort, "edge %s: %s declares %d outputs", e, src.Operator.Name(), out)
	}
	if in := dst.Operator.Arity().In; e.DstPort < 0 || e.DstPort >= in {
		return flowerr.InvalidPin(e.Dst, e.DstPort, "edge %s: %s declares %d inputs", e, dst.Operator.Name(), in)
	}
	if dst.Inputs[e.DstPort] != nil {
		return flowerr.New(flowerr.ErrDuplicateWiring, e.Dst, e.DstPort, "edge %s: input already connected", e)
	}
	if err := checkTypes(src, dst, e); err != nil {
		return err
	}

	dst.Inputs[e.DstPort] = src.Outputs[e.SrcPort]
	n.children[e.Src] = append(n.children[e.Src], e.Dst)
	n.inDegree[e.Dst]++
	return nil
}

func checkTypes[W any](src, dst *Node[W], e Edge) error {
	srcTyped, ok := src.Operator.(operator.Typed)
	if !ok {
		return nil
	}
	dstTyped, ok := dst.Operator.(operator.Typed)
	if !ok {
		return nil
	}
	from, err := srcTyped.Signature().Port(operator.Out, e.SrcPort)
	if err != nil {
		return err
	}
	to, err := dstTyped.Signature().Port(operator.In, e.DstPort)
	if err != nil {
		return err
	}
	if !operator.Compatible(from, to) {
		return flowerr.InvalidPin(e.Dst, e.DstPort, "edge %s: %s output %q is %s but %s input %q is %s", e,
			src.Operator.Name(), from.Name, from.Type.FriendlyName(),
			dst.Operator.Name(), to.Name, to.Type.FriendlyName())
	}
	return nil
}

// detectCycles checks for circular dependencies using a depth-first search
// with temporary and permanent marks. The reported path starts and ends on
// the node that closes the cycle.
func (n *Network[W]) detectCycles() error {
	permanent := make([]bool, len(n.nodes))
	temporary := make([]bool, len(n.nodes))
	var stack []int

	var visit func(i int) error
	visit = func(i int) error {
		if permanent[i] {
			return nil
		}
		if temporary[i] {
			return cycleError(stack, i)
		}
		temporary[i] = true
		stack = append(stack, i)
		for _, child := range n.children[i] {
			if err := visit(child); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		temporary[i] = false
		permanent[i] = true
		return nil
	}

	for i := range n.nodes {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

func cycleError(stack []int, closing int) error {
	start := 0
	for j, v := range stack {
		if v == closing {
			start = j
			break
		}
	}
	parts := make([]string, 0, len(stack)-start+1)
	for _, v := range stack[start:] {
		parts = append(parts, fmt.Sprint(v))
	}
	parts = append(parts, fmt.Sprint(closing))
	return flowerr.New(flowerr.ErrCycle, closing, flowerr.NoPort, "%s", strings.Join(parts, " -> "))
}

// Builder accumulates nodes and edges for Build.
type Builder[W any] struct {
	specs []NodeSpec[W]
	edges []Edge
}

// NewBuilder returns an empty builder.
func NewBuilder[W any]() *Builder[W] {
	return &Builder[W]{}
}

// Add appends a node and returns its index.
func (b *Builder[W]) Add(op operator.Operator[W]) int {
	idx := len(b.specs)
	b.specs = append(b.specs, NodeSpec[W]{Index: idx, Operator: op})
	return idx
}

// Connect records an edge from src:srcPort to dst:dstPort.
func (b *Builder[W]) Connect(src, srcPort, dst, dstPort int) *Builder[W] {
	b.edges = append(b.edges, Edge{Src: src, SrcPort: srcPort, Dst: dst, DstPort: dstPort})
	return b
}

// Build validates and assembles the network.
func (b *Builder[W]) Build(ctx context.Context) (*Network[W], error) {
	return Build(ctx, b.specs, b.edges)
}

// TopologicalOrder returns one valid execution order, lowest index first
// among nodes that are ready at the same time. Useful for diagnostics and tests.
func (n *Network[W]) TopologicalOrder() []int {
	remaining := append([]int(nil), n.inDegree...)
	ready := n.Sources()
	order := make([]int, 0, len(n.nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, child := range n.children[next] {
			remaining[child]--
			if remaining[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return order
}
