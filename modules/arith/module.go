// Package arith provides the numeric operator family: sources, unary
// transforms, a splitter, a binary combiner and a discarding sink.
package arith

import (
	"context"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var (
	unarySig = operator.Signature{
		Inputs:  []operator.Port{{Name: "x", Type: cty.Number}},
		Outputs: []operator.Port{{Name: "result", Type: cty.Number}},
	}
	splitSig = operator.Signature{
		Inputs:  []operator.Port{{Name: "x", Type: cty.Number}},
		Outputs: []operator.Port{{Name: "x", Type: cty.Number}, {Name: "double", Type: cty.Number}},
	}
	sumSig = operator.Signature{
		Inputs:  []operator.Port{{Name: "a", Type: cty.Number}, {Name: "b", Type: cty.Number}},
		Outputs: []operator.Port{{Name: "sum", Type: cty.Number}},
	}
	noopSig = operator.Signature{
		Inputs: []operator.Port{{Name: "in", Type: cty.DynamicPseudoType}},
	}
)

func number(port int, v wire.Value) error {
	if v.Kind() != wire.Number {
		return flowerr.InvalidPin(flowerr.NoNode, port, "expected number, got %s", v.Kind())
	}
	return nil
}

// Constant emits v every time it runs.
func Constant(v wire.Value) operator.Operator[wire.Value] {
	op := operator.Lift0x1("constant", "Constant", func(context.Context) (wire.Value, error) { return v, nil })
	return operator.MustWithSignature(op, operator.Signature{
		Outputs: []operator.Port{{Name: "value", Type: v.Type()}},
	})
}

// Add emits x + n.
func Add(n wire.Value) operator.Operator[wire.Value] {
	op := operator.Lift1x1("add", "Add", func(_ context.Context, x wire.Value) (wire.Value, error) {
		if err := number(0, x); err != nil {
			return wire.Value{}, err
		}
		return wire.FromCty(x.Cty().Add(n.Cty()))
	})
	return operator.MustWithSignature(op, unarySig)
}

// Multiply emits x * n.
func Multiply(n wire.Value) operator.Operator[wire.Value] {
	op := operator.Lift1x1("multiply", "Multiply", func(_ context.Context, x wire.Value) (wire.Value, error) {
		if err := number(0, x); err != nil {
			return wire.Value{}, err
		}
		return wire.FromCty(x.Cty().Multiply(n.Cty()))
	})
	return operator.MustWithSignature(op, unarySig)
}

// SplitAndDouble emits (x, 2x) on two independent outputs.
func SplitAndDouble() operator.Operator[wire.Value] {
	op := operator.Lift1x2("split_and_double", "SplitAndDouble", func(_ context.Context, x wire.Value) (wire.Value, wire.Value, error) {
		if _, err := operator.FromWire[float64](splitSig, operator.In, 0, x); err != nil {
			return wire.Value{}, wire.Value{}, err
		}
		double, err := wire.FromCty(x.Cty().Multiply(cty.NumberIntVal(2)))
		if err != nil {
			return wire.Value{}, wire.Value{}, err
		}
		return x, double, nil
	})
	return operator.MustWithSignature(op, splitSig)
}

// Sum emits a + b.
func Sum() operator.Operator[wire.Value] {
	op := operator.Lift2x1("sum", "Sum", func(_ context.Context, a, b wire.Value) (wire.Value, error) {
		if _, err := operator.FromWire[float64](sumSig, operator.In, 0, a); err != nil {
			return wire.Value{}, err
		}
		if _, err := operator.FromWire[float64](sumSig, operator.In, 1, b); err != nil {
			return wire.Value{}, err
		}
		return wire.FromCty(a.Cty().Add(b.Cty()))
	})
	return operator.MustWithSignature(op, sumSig)
}

// NoOp consumes one value of any kind and produces nothing.
func NoOp() operator.Operator[wire.Value] {
	op := operator.Lift1x0("noop", "NoOp", func(context.Context, wire.Value) error { return nil })
	return operator.MustWithSignature(op, noopSig)
}

func numberArg(args registry.Args, name string) (wire.Value, error) {
	return wire.FromCty(args.Value(name))
}

// Register registers the arith operators with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Opcode:      "constant",
		Description: "Emits a fixed value.",
		Args:        map[string]cty.Type{"value": cty.DynamicPseudoType},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			v, err := wire.FromCty(args.Value("value"))
			if err != nil {
				return nil, err
			}
			return Constant(v), nil
		},
	})
	r.Register(&registry.Definition{
		Opcode:      "add",
		Description: "Adds n to its input.",
		Args:        map[string]cty.Type{"n": cty.Number},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			n, err := numberArg(args, "n")
			if err != nil {
				return nil, err
			}
			return Add(n), nil
		},
	})
	r.Register(&registry.Definition{
		Opcode:      "multiply",
		Description: "Multiplies its input by n.",
		Args:        map[string]cty.Type{"n": cty.Number},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			n, err := numberArg(args, "n")
			if err != nil {
				return nil, err
			}
			return Multiply(n), nil
		},
	})
	r.Register(&registry.Definition{
		Opcode:      "split_and_double",
		Description: "Emits its input and twice its input.",
		New: func(registry.Args) (operator.Operator[wire.Value], error) {
			return SplitAndDouble(), nil
		},
	})
	r.Register(&registry.Definition{
		Opcode:      "sum",
		Description: "Adds its two inputs.",
		New: func(registry.Args) (operator.Operator[wire.Value], error) {
			return Sum(), nil
		},
	})
	r.Register(&registry.Definition{
		Opcode:      "noop",
		Description: "Discards its input.",
		New: func(registry.Args) (operator.Operator[wire.Value], error) {
			return NoOp(), nil
		},
	})
}
