package operator

import (
	"context"

	"github.com/specialistvlad/burstflow/internal/flowerr"
)

// Kernel is the arity-agnostic body of a lifted operator: it receives exactly
// Arity.In populated inputs and must return exactly Arity.Out outputs.
type Kernel[W any] func(ctx context.Context, in []W) ([]W, error)

type lifted[W any] struct {
	opcode Opcode
	name   string
	arity  Arity
	kernel Kernel[W]
}

// Lift adapts a kernel of the given arity into the uniform Operator shape.
func Lift[W any](opcode Opcode, name string, arity Arity, kernel Kernel[W]) (Operator[W], error) {
	if err := arity.Validate(); err != nil {
		return nil, err
	}
	return &lifted[W]{opcode: opcode, name: name, arity: arity, kernel: kernel}, nil
}

func (l *lifted[W]) Opcode() Opcode { return l.opcode }
func (l *lifted[W]) Name() string   { return l.name }
func (l *lifted[W]) Arity() Arity   { return l.arity }

func (l *lifted[W]) Execute(ctx context.Context, in Inputs[W], out *Outputs[W]) error {
	for port := l.arity.In; port < MaxPorts; port++ {
		if in[port] != nil {
			return flowerr.InvalidPin(flowerr.NoNode, port, "%s has %d inputs but slot %d is populated", l.name, l.arity.In, port)
		}
	}

	args := make([]W, l.arity.In)
	for port := range l.arity.In {
		if in[port] == nil {
			return flowerr.InvalidPin(flowerr.NoNode, port, "%s: input not populated", l.name)
		}
		args[port] = *in[port]
	}

	results, err := l.kernel(ctx, args)
	if err != nil {
		return err
	}
	if len(results) != l.arity.Out {
		return flowerr.InvalidPin(flowerr.NoNode, flowerr.NoPort, "%s returned %d outputs, declared %d", l.name, len(results), l.arity.Out)
	}
	for port := range results {
		v := results[port]
		out[port] = &v
	}
	return nil
}

func mustLift[W any](opcode Opcode, name string, arity Arity, kernel Kernel[W]) Operator[W] {
	op, err := Lift(opcode, name, arity, kernel)
	if err != nil {
		panic(err)
	}
	return op
}

// Lift0x0 lifts an operator with no ports, e.g. a side-effecting trigger.
func Lift0x0[W any](opcode Opcode, name string, fn func(ctx context.Context) error) Operator[W] {
	return mustLift(opcode, name, Arity{}, func(ctx context.Context, _ []W) ([]W, error) {
		return nil, fn(ctx)
	})
}

// Lift0x1 lifts a source.
func Lift0x1[W any](opcode Opcode, name string, fn func(ctx context.Context) (W, error)) Operator[W] {
	return mustLift(opcode, name, Arity{Out: 1}, func(ctx context.Context, _ []W) ([]W, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return []W{v}, nil
	})
}

// Lift1x0 lifts a sink.
func Lift1x0[W any](opcode Opcode, name string, fn func(ctx context.Context, a W) error) Operator[W] {
	return mustLift(opcode, name, Arity{In: 1}, func(ctx context.Context, in []W) ([]W, error) {
		return nil, fn(ctx, in[0])
	})
}

// Lift1x1 lifts a unary transform.
func Lift1x1[W any](opcode Opcode, name string, fn func(ctx context.Context, a W) (W, error)) Operator[W] {
	return mustLift(opcode, name, Arity{In: 1, Out: 1}, func(ctx context.Context, in []W) ([]W, error) {
		v, err := fn(ctx, in[0])
		if err != nil {
			return nil, err
		}
		return []W{v}, nil
	})
}

// Lift1x2 lifts a splitter.
func Lift1x2[W any](opcode Opcode, name string, fn func(ctx context.Context, a W) (W, W, error)) Operator[W] {
	return mustLift(opcode, name, Arity{In: 1, Out: 2}, func(ctx context.Context, in []W) ([]W, error) {
		x, y, err := fn(ctx, in[0])
		if err != nil {
			return nil, err
		}
		return []W{x, y}, nil
	})
}

// Lift2x1 lifts a binary combiner.
func Lift2x1[W any](opcode Opcode, name string, fn func(ctx context.Context, a, b W) (W, error)) Operator[W] {
	return mustLift(opcode, name, Arity{In: 2, Out: 1}, func(ctx context.Context, in []W) ([]W, error) {
		v, err := fn(ctx, in[0], in[1])
		if err != nil {
			return nil, err
		}
		return []W{v}, nil
	})
}

// Lift0x2 lifts a source with two outputs.
func Lift0x2[W any](opcode Opcode, name string, fn func(ctx context.Context) (W, W, error)) Operator[W] {
	return mustLift(opcode, name, Arity{Out: 2}, func(ctx context.Context, _ []W) ([]W, error) {
		x, y, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return []W{x, y}, nil
	})
}

// Lift2x2 lifts a binary operator with two outputs.
func Lift2x2[W any](opcode Opcode, name string, fn func(ctx context.Context, a, b W) (W, W, error)) Operator[W] {
	return mustLift(opcode, name, Arity{In: 2, Out: 2}, func(ctx context.Context, in []W) ([]W, error) {
		x, y, err := fn(ctx, in[0], in[1])
		if err != nil {
			return nil, err
		}
		return []W{x, y}, nil
	})
}
