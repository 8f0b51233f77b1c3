package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.New()
	(&Module{Out: &buf}).Register(reg)

	op, err := reg.Instantiate(context.Background(), "print", cty.ObjectVal(map[string]cty.Value{
		"label": cty.StringVal("n5"),
	}))
	require.NoError(t, err)
	assert.Equal(t, operator.Arity{In: 1}, op.Arity())

	v := wire.Int(145)
	var out operator.Outputs[wire.Value]
	require.NoError(t, op.Execute(context.Background(), operator.Inputs[wire.Value]{&v}, &out))

	l := wire.ListOf(wire.Str("a"), wire.Boolean(true))
	require.NoError(t, New(&buf, "pair").Execute(context.Background(), operator.Inputs[wire.Value]{&l}, &out))

	assert.Equal(t, "      n5 = 145\n      pair = [\"a\", true]\n", buf.String())
}

func TestPrint_DefaultLabel(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.New()
	(&Module{Out: &buf}).Register(reg)

	op, err := reg.Instantiate(context.Background(), "print", cty.NilVal)
	require.NoError(t, err)

	v := wire.Str("hi")
	var out operator.Outputs[wire.Value]
	require.NoError(t, op.Execute(context.Background(), operator.Inputs[wire.Value]{&v}, &out))
	assert.Equal(t, "      value = \"hi\"\n", buf.String())
}
