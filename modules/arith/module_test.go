package arith

import (
	"context"
	"testing"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/network"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/scheduler"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func execute(t *testing.T, op operator.Operator[wire.Value], in ...wire.Value) []wire.Value {
	t.Helper()
	var inputs operator.Inputs[wire.Value]
	for i := range in {
		inputs[i] = &in[i]
	}
	var out operator.Outputs[wire.Value]
	require.NoError(t, op.Execute(context.Background(), inputs, &out))

	res := make([]wire.Value, op.Arity().Out)
	for i := range res {
		require.NotNil(t, out[i], "output %d not populated", i)
		res[i] = *out[i]
	}
	return res
}

func assertNumber(t *testing.T, want int64, got wire.Value) {
	t.Helper()
	n, err := got.AsInt()
	require.NoError(t, err, "got %s", got)
	assert.Equal(t, want, n)
}

func TestOperators(t *testing.T) {
	assertNumber(t, 10, execute(t, Constant(wire.Int(10)))[0])
	assertNumber(t, 15, execute(t, Add(wire.Int(5)), wire.Int(10))[0])
	assertNumber(t, 45, execute(t, Multiply(wire.Int(3)), wire.Int(15))[0])
	assertNumber(t, 7, execute(t, Sum(), wire.Int(3), wire.Int(4))[0])

	split := execute(t, SplitAndDouble(), wire.Int(45))
	assertNumber(t, 45, split[0])
	assertNumber(t, 90, split[1])

	assert.Empty(t, execute(t, NoOp(), wire.Str("anything")))
}

func TestOperators_RejectNonNumbers(t *testing.T) {
	s := wire.Str("x")
	var out operator.Outputs[wire.Value]
	err := Add(wire.Int(1)).Execute(context.Background(), operator.Inputs[wire.Value]{&s}, &out)
	assert.ErrorIs(t, err, flowerr.ErrInvalidPinAssignment)

	err = SplitAndDouble().Execute(context.Background(), operator.Inputs[wire.Value]{&s}, &out)
	assert.ErrorIs(t, err, flowerr.ErrInvalidPinAssignment)
}

func TestBuild_RejectsMismatchedPorts(t *testing.T) {
	b := network.NewBuilder[wire.Value]()
	src := b.Add(Constant(wire.Str("ten")))
	dst := b.Add(Add(wire.Int(1)))
	b.Connect(src, 0, dst, 0)

	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, flowerr.ErrInvalidPinAssignment)
}

func TestScenario(t *testing.T) {
	b := network.NewBuilder[wire.Value]()
	n0 := b.Add(Constant(wire.Int(10)))
	n1 := b.Add(Add(wire.Int(5)))
	n2 := b.Add(Multiply(wire.Int(3)))
	n3 := b.Add(NoOp())
	n4 := b.Add(SplitAndDouble())
	n5 := b.Add(Add(wire.Int(100)))
	n6 := b.Add(Multiply(wire.Int(-1)))
	b.Connect(n0, 0, n1, 0).
		Connect(n1, 0, n2, 0).
		Connect(n2, 0, n3, 0).
		Connect(n2, 0, n4, 0).
		Connect(n4, 0, n5, 0).
		Connect(n4, 1, n6, 0)
	net, err := b.Build(context.Background())
	require.NoError(t, err)

	report, err := scheduler.Run(context.Background(), net, scheduler.Options[wire.Value]{Workers: 3, Concurrency: 2})
	require.NoError(t, err)
	assert.True(t, report.Succeeded())

	expect := []struct {
		node, port int
		want       int64
	}{
		{n1, 0, 15}, {n2, 0, 45}, {n4, 0, 45}, {n4, 1, 90}, {n5, 0, 145}, {n6, 0, -90},
	}
	for _, e := range expect {
		v, ok, err := net.Output(e.node, e.port)
		require.NoError(t, err)
		require.True(t, ok)
		assertNumber(t, e.want, v)
	}
}

func TestRegister(t *testing.T) {
	reg := registry.New()
	(&Module{}).Register(reg)
	require.NoError(t, reg.Validate(context.Background()))

	assert.Equal(t, []operator.Opcode{"add", "constant", "multiply", "noop", "split_and_double", "sum"}, reg.Opcodes())

	op, err := reg.Instantiate(context.Background(), "add", cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(5)}))
	require.NoError(t, err)
	assertNumber(t, 7, execute(t, op, wire.Int(2))[0])

	op, err = reg.Instantiate(context.Background(), "constant", cty.ObjectVal(map[string]cty.Value{"value": cty.StringVal("hi")}))
	require.NoError(t, err)
	s, err := execute(t, op)[0].AsString()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	// "5" converts to a number.
	_, err = reg.Instantiate(context.Background(), "multiply", cty.ObjectVal(map[string]cty.Value{"n": cty.StringVal("5")}))
	assert.NoError(t, err)

	_, err = reg.Instantiate(context.Background(), "multiply", cty.ObjectVal(map[string]cty.Value{"n": cty.StringVal("five")}))
	assert.ErrorContains(t, err, `argument "n"`)

	_, err = reg.Instantiate(context.Background(), "add", cty.EmptyObjectVal)
	assert.ErrorContains(t, err, `missing required argument "n"`)
}

func TestOperators_ExactBeyondFloatPrecision(t *testing.T) {
	const big = int64(1)<<53 + 1

	assertNumber(t, 2*big, execute(t, Sum(), wire.Int(big), wire.Int(big))[0])

	split := execute(t, SplitAndDouble(), wire.Int(big))
	assertNumber(t, big, split[0])
	assertNumber(t, 2*big, split[1])
}
