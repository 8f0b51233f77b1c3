package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type echoModule struct{}

func (echoModule) Register(r *Registry) {
	r.Register(&Definition{
		Opcode:   "echo",
		Args:     map[string]cty.Type{"label": cty.String, "times": cty.Number, "loud": cty.Bool},
		Optional: map[string]cty.Value{"times": cty.NumberIntVal(1), "loud": cty.False},
		New: func(args Args) (operator.Operator[wire.Value], error) {
			label, err := args.String("label")
			if err != nil {
				return nil, err
			}
			return operator.Lift1x1("echo", label, func(_ context.Context, v wire.Value) (wire.Value, error) {
				return v, nil
			}), nil
		},
	})
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	r.RegisterModules(context.Background(), echoModule{})
	require.NoError(t, r.Validate(context.Background()))
	return r
}

func TestRegister_Duplicate(t *testing.T) {
	r := newRegistry(t)
	assert.Panics(t, func() { echoModule{}.Register(r) })
}

func TestInstantiate(t *testing.T) {
	r := newRegistry(t)
	op, err := r.Instantiate(context.Background(), "echo", cty.ObjectVal(map[string]cty.Value{
		"label": cty.StringVal("hello"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "hello", op.Name())

	_, err = r.Instantiate(context.Background(), "missing", cty.NilVal)
	assert.ErrorContains(t, err, `unknown operator "missing"`)

	_, err = r.Instantiate(context.Background(), "echo", cty.ObjectVal(map[string]cty.Value{
		"label": cty.StringVal("x"),
		"extra": cty.True,
	}))
	assert.ErrorContains(t, err, `unsupported argument "extra"`)

	_, err = r.Instantiate(context.Background(), "echo", cty.StringVal("label"))
	assert.ErrorContains(t, err, "args must be an object")
}

func TestParseArgs_DefaultsAndConversion(t *testing.T) {
	r := newRegistry(t)
	def, ok := r.Lookup("echo")
	require.True(t, ok)

	args, err := def.parseArgs(cty.ObjectVal(map[string]cty.Value{
		"label": cty.NumberIntVal(7),
		"loud":  cty.StringVal("true"),
	}))
	require.NoError(t, err)

	label, err := args.String("label")
	require.NoError(t, err)
	assert.Equal(t, "7", label)

	times, err := args.Int("times")
	require.NoError(t, err)
	assert.Equal(t, int64(1), times)

	loud, err := args.Bool("loud")
	require.NoError(t, err)
	assert.True(t, loud)

	f, err := args.Float("times")
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	_, err = args.String("nope")
	assert.ErrorContains(t, err, `argument "nope" is not set`)
}

func TestValidate(t *testing.T) {
	r := New()
	r.Register(&Definition{Opcode: "broken"})
	r.Register(&Definition{
		Opcode:   "bad_default",
		Args:     map[string]cty.Type{"n": cty.Number},
		Optional: map[string]cty.Value{"n": cty.StringVal("abc"), "ghost": cty.True},
		New:      func(Args) (operator.Operator[wire.Value], error) { return nil, nil },
	})

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "operator 'broken': no factory")
	assert.ErrorContains(t, err, "default for undeclared argument 'ghost'")
	assert.ErrorContains(t, err, "argument 'n': default is not a number")
}
