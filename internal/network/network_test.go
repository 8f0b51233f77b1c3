package network

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func constant(v int) operator.Operator[int] {
	return operator.Lift0x1("constant", "Constant", func(context.Context) (int, error) { return v, nil })
}

func add(n int) operator.Operator[int] {
	return operator.Lift1x1("add", "Add", func(_ context.Context, a int) (int, error) { return a + n, nil })
}

func sum() operator.Operator[int] {
	return operator.Lift2x1("sum", "Sum", func(_ context.Context, a, b int) (int, error) { return a + b, nil })
}

func split() operator.Operator[int] {
	return operator.Lift1x2("split", "Split", func(_ context.Context, a int) (int, int, error) { return a, a * 2, nil })
}

func discard() operator.Operator[int] {
	return operator.Lift1x0("noop", "NoOp", func(context.Context, int) error { return nil })
}

func TestBuild_Topology(t *testing.T) {
	b := NewBuilder[int]()
	n0 := b.Add(constant(1))
	n1 := b.Add(split())
	n2 := b.Add(sum())
	n3 := b.Add(discard())
	b.Connect(n0, 0, n1, 0).
		Connect(n1, 0, n2, 0).
		Connect(n1, 1, n2, 1).
		Connect(n2, 0, n3, 0)

	net, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, net.Len())
	assert.Equal(t, []int{n0}, net.Sources())
	assert.Equal(t, []int{n2, n2}, net.Children(n1), "one child entry per edge")
	assert.Equal(t, 2, net.InDegree(n2))
	assert.True(t, net.IsLeaf(n3))
	assert.False(t, net.IsLeaf(n0))
	assert.Equal(t, []int{0, 1, 2, 3}, net.TopologicalOrder())
	assert.Len(t, net.Edges(), 4)
}

func TestBuild_OutputFanOutSharesCell(t *testing.T) {
	b := NewBuilder[int]()
	src := b.Add(constant(7))
	a := b.Add(add(1))
	c := b.Add(add(2))
	b.Connect(src, 0, a, 0).Connect(src, 0, c, 0)

	net, err := b.Build(context.Background())
	require.NoError(t, err)

	nodes := net.Nodes()
	assert.Same(t, nodes[src].Outputs[0], nodes[a].Inputs[0])
	assert.Same(t, nodes[src].Outputs[0], nodes[c].Inputs[0])
}

func TestBuild_AllocatesEveryDeclaredOutput(t *testing.T) {
	b := NewBuilder[int]()
	b.Add(split())
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	node := net.Nodes()[0]
	assert.NotNil(t, node.Outputs[0])
	assert.NotNil(t, node.Outputs[1])
	assert.Nil(t, node.Outputs[2])
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		specs []NodeSpec[int]
		edges []Edge
		want  error
	}{
		{
			name:  "sparse indices",
			specs: []NodeSpec[int]{{Index: 0, Operator: constant(1)}, {Index: 5, Operator: add(1)}},
			want:  flowerr.ErrInvalidNode,
		},
		{
			name:  "duplicate index",
			specs: []NodeSpec[int]{{Index: 0, Operator: constant(1)}, {Index: 0, Operator: add(1)}},
			want:  flowerr.ErrInvalidNode,
		},
		{
			name:  "nil operator",
			specs: []NodeSpec[int]{{Index: 0}},
			want:  flowerr.ErrInvalidNode,
		},
		{
			name:  "edge to missing node",
			specs: []NodeSpec[int]{{Index: 0, Operator: constant(1)}},
			edges: []Edge{{Src: 0, Dst: 3}},
			want:  flowerr.ErrInvalidNode,
		},
		{
			name:  "source port beyond arity",
			specs: []NodeSpec[int]{{Index: 0, Operator: constant(1)}, {Index: 1, Operator: add(1)}},
			edges: []Edge{{Src: 0, SrcPort: 1, Dst: 1}},
			want:  flowerr.ErrInvalidPinAssignment,
		},
		{
			name:  "destination port beyond arity",
			specs: []NodeSpec[int]{{Index: 0, Operator: constant(1)}, {Index: 1, Operator: add(1)}},
			edges: []Edge{{Src: 0, Dst: 1, DstPort: 4}},
			want:  flowerr.ErrInvalidPinAssignment,
		},
		{
			name: "input wired twice",
			specs: []NodeSpec[int]{
				{Index: 0, Operator: constant(1)},
				{Index: 1, Operator: constant(2)},
				{Index: 2, Operator: add(1)},
			},
			edges: []Edge{{Src: 0, Dst: 2}, {Src: 1, Dst: 2}},
			want:  flowerr.ErrDuplicateWiring,
		},
		{
			name:  "self loop",
			specs: []NodeSpec[int]{{Index: 0, Operator: add(1)}},
			edges: []Edge{{Src: 0, Dst: 0}},
			want:  flowerr.ErrCycle,
		},
		{
			name: "cycle",
			specs: []NodeSpec[int]{
				{Index: 0, Operator: sum()},
				{Index: 1, Operator: add(1)},
				{Index: 2, Operator: add(1)},
			},
			edges: []Edge{{Src: 0, Dst: 1}, {Src: 1, Dst: 2}, {Src: 2, Dst: 0}},
			want:  flowerr.ErrCycle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.specs, tt.edges)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuild_CycleReportsPath(t *testing.T) {
	b := NewBuilder[int]()
	b.Add(constant(1))
	b.Add(sum())
	b.Add(add(1))
	b.Connect(0, 0, 1, 0).Connect(1, 0, 2, 0).Connect(2, 0, 1, 1)

	_, err := b.Build(context.Background())
	require.ErrorIs(t, err, flowerr.ErrCycle)
	assert.ErrorContains(t, err, "1 -> 2 -> 1")
}

func TestBuild_TypeMismatch(t *testing.T) {
	str := operator.MustWithSignature(constant(1), operator.Signature{
		Outputs: []operator.Port{{Name: "out", Type: cty.String}},
	})
	num := operator.MustWithSignature(add(1), operator.Signature{
		Inputs:  []operator.Port{{Name: "a", Type: cty.Number}},
		Outputs: []operator.Port{{Name: "out", Type: cty.Number}},
	})

	b := NewBuilder[int]()
	b.Add(str)
	b.Add(num)
	b.Connect(0, 0, 1, 0)

	_, err := b.Build(context.Background())
	require.ErrorIs(t, err, flowerr.ErrInvalidPinAssignment)
	node, ok := flowerr.NodeOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, node)
}

func TestNetwork_NodeAndOutputLookups(t *testing.T) {
	b := NewBuilder[int]()
	b.Add(constant(3))
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	_, err = net.Node(1)
	assert.ErrorIs(t, err, flowerr.ErrInvalidNode)
	_, err = net.Node(-1)
	assert.ErrorIs(t, err, flowerr.ErrInvalidNode)

	_, _, err = net.Output(0, 1)
	assert.ErrorIs(t, err, flowerr.ErrInvalidPinAssignment)

	_, ok, err := net.Output(0, 0)
	require.NoError(t, err)
	assert.False(t, ok, "nothing has run yet")

	require.NoError(t, net.Nodes()[0].Execute(context.Background()))
	v, ok, err := net.Output(0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestNode_ExecuteChain(t *testing.T) {
	b := NewBuilder[int]()
	b.Add(constant(10))
	b.Add(split())
	b.Connect(0, 0, 1, 0)
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	for _, i := range net.TopologicalOrder() {
		require.NoError(t, net.Nodes()[i].Execute(context.Background()))
	}
	x, _ := net.Nodes()[1].Output(0)
	y, _ := net.Nodes()[1].Output(1)
	assert.Equal(t, 10, x)
	assert.Equal(t, 20, y)
}

func TestNode_ExecuteUnwiredInput(t *testing.T) {
	b := NewBuilder[int]()
	b.Add(add(1))
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	err = net.Nodes()[0].Execute(context.Background())
	require.ErrorIs(t, err, flowerr.ErrInvalidPinAssignment)
	node, ok := flowerr.NodeOf(err)
	require.True(t, ok)
	assert.Equal(t, 0, node)
}

func TestNode_ExecuteOperatorError(t *testing.T) {
	boom := errors.New("boom")
	op := operator.Lift0x1("fail", "Fail", func(context.Context) (int, error) { return 0, boom })
	b := NewBuilder[int]()
	b.Add(op)
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	err = net.Nodes()[0].Execute(context.Background())
	assert.ErrorIs(t, err, flowerr.ErrOperator)
	assert.ErrorIs(t, err, boom)
	assert.False(t, net.Nodes()[0].Outputs[0].IsSet())
}

func TestProgress(t *testing.T) {
	b := NewBuilder[int]()
	b.Add(constant(1))
	b.Add(split())
	b.Add(sum())
	b.Connect(0, 0, 1, 0).Connect(1, 0, 2, 0).Connect(1, 1, 2, 1)
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	p := net.NewProgress()
	assert.Equal(t, 2, p.Remaining(2))

	freed, err := p.Complete(0, net.Children(0))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, freed)

	freed, err = p.Complete(1, net.Children(1))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, freed, "child freed once even with two edges")

	_, err = p.Complete(1, net.Children(1))
	assert.Error(t, err)

	assert.Equal(t, 2, p.CompletedCount())
	assert.Equal(t, []int{0, 1}, p.Snapshot())
	assert.True(t, p.Completed(1))
	assert.False(t, p.Completed(2))

	fresh := net.NewProgress()
	assert.Equal(t, 2, fresh.Remaining(2), "progress is per run")
}
