// Package operator defines the unit of computation that runs inside a network
// node.
//
// Every operator, whatever its declared arity, is seen by the rest of the
// engine through one uniform shape: up to MaxPorts optional input views and up
// to MaxPorts optional output slots. Operators with a specific arity are
// written as plain functions and lifted into that shape by the Lift* helpers,
// which place the logical ports in the leading slots and reject any traffic on
// the slots beyond the declared arity.
package operator

import (
	"context"
	"fmt"

	"github.com/specialistvlad/burstflow/internal/flowerr"
)

// MaxPorts is the fixed number of input and output slots on every node.
const MaxPorts = 4

// Opcode identifies an operator family, e.g. "add" or "constant".
type Opcode string

// Inputs is the read-only view an operator receives. A nil slot is unconnected
// or unpopulated; operators must not retain the pointers after Execute returns.
type Inputs[W any] [MaxPorts]*W

// Outputs is the local buffer an operator fills. Slots left nil produce nothing.
type Outputs[W any] [MaxPorts]*W

// Arity is the declared number of logical inputs and outputs.
type Arity struct {
	In  int
	Out int
}

// Validate checks that both counts are within [0, MaxPorts].
func (a Arity) Validate() error {
	if a.In < 0 || a.In > MaxPorts || a.Out < 0 || a.Out > MaxPorts {
		return flowerr.New(flowerr.ErrInvalidPinAssignment, flowerr.NoNode, flowerr.NoPort,
			"arity (%d,%d) outside [0,%d]", a.In, a.Out, MaxPorts)
	}
	return nil
}

func (a Arity) String() string { return fmt.Sprintf("(%d,%d)", a.In, a.Out) }

// Operator is the uniform 4-in/4-out computation contract.
//
// Execute must only read inputs below Arity().In and only write outputs below
// Arity().Out. It may block on I/O but should honour ctx cancellation, since it
// occupies a worker for as long as it runs.
type Operator[W any] interface {
	Opcode() Opcode
	Name() string
	Arity() Arity
	Execute(ctx context.Context, in Inputs[W], out *Outputs[W]) error
}

// Typed is implemented by operators that publish per-port type information.
// The network builder uses it to reject edges between incompatible ports.
type Typed interface {
	Signature() Signature
}

type typedOperator[W any] struct {
	Operator[W]
	sig Signature
}

func (t typedOperator[W]) Signature() Signature { return t.sig }

// WithSignature attaches a port signature to op. The signature's arity must
// match the operator's.
func WithSignature[W any](op Operator[W], sig Signature) (Operator[W], error) {
	if got, want := sig.Arity(), op.Arity(); got != want {
		return nil, flowerr.New(flowerr.ErrInvalidPinAssignment, flowerr.NoNode, flowerr.NoPort,
			"signature arity %s does not match operator %q arity %s", got, op.Name(), want)
	}
	return typedOperator[W]{Operator: op, sig: sig}, nil
}

// MustWithSignature is WithSignature for statically known operators.
func MustWithSignature[W any](op Operator[W], sig Signature) Operator[W] {
	typed, err := WithSignature(op, sig)
	if err != nil {
		panic(err)
	}
	return typed
}
