// Package env provides a source operator reading an environment variable.
package env

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var sig = operator.Signature{
	Outputs: []operator.Port{{Name: "value", Type: cty.String}},
}

// New returns a source emitting the value of name. An unset variable falls
// back to def when required is false, and fails the node otherwise.
func New(name, def string, required bool) operator.Operator[wire.Value] {
	op := operator.Lift0x1("env", "Env("+name+")", func(ctx context.Context) (wire.Value, error) {
		v, ok := os.LookupEnv(name)
		if !ok {
			if required {
				return wire.Value{}, fmt.Errorf("environment variable %q is not set", name)
			}
			ctxlog.FromContext(ctx).Debug("Environment variable not set, using default", "name", name)
			v = def
		}
		return wire.Str(v), nil
	})
	return operator.MustWithSignature(op, sig)
}

// Register registers the env operator with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Opcode:      "env",
		Description: "Reads an environment variable.",
		Args: map[string]cty.Type{
			"name":     cty.String,
			"default":  cty.String,
			"required": cty.Bool,
		},
		Optional: map[string]cty.Value{
			"default":  cty.StringVal(""),
			"required": cty.False,
		},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			name, err := args.String("name")
			if err != nil {
				return nil, err
			}
			def, err := args.String("default")
			if err != nil {
				return nil, err
			}
			required, err := args.Bool("required")
			if err != nil {
				return nil, err
			}
			return New(name, def, required), nil
		},
	})
}
