package operator

import (
	"fmt"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Direction selects the input or output side of a signature.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "output"
	}
	return "input"
}

// Port describes one typed port. cty.DynamicPseudoType accepts any wire kind.
type Port struct {
	Name string
	Type cty.Type
}

// Signature lists an operator's typed ports in slot order.
type Signature struct {
	Inputs  []Port
	Outputs []Port
}

// Arity derives the declared arity from the port lists.
func (s Signature) Arity() Arity {
	return Arity{In: len(s.Inputs), Out: len(s.Outputs)}
}

// Port returns the port at index on the given side, failing with
// ErrInvalidPinAssignment when index is beyond the declared arity.
func (s Signature) Port(dir Direction, index int) (Port, error) {
	ports := s.Inputs
	if dir == Out {
		ports = s.Outputs
	}
	if index < 0 || index >= len(ports) {
		return Port{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s port out of range, arity is %d", dir, len(ports))
	}
	return ports[index], nil
}

// Compatible reports whether a value produced on from may be consumed by to.
func Compatible(from, to Port) bool {
	if from.Type.Equals(cty.DynamicPseudoType) || to.Type.Equals(cty.DynamicPseudoType) {
		return true
	}
	return from.Type.Equals(to.Type)
}

// ToWire converts a native Go value into a wire value at the given port.
func ToWire[T any](sig Signature, dir Direction, index int, native T) (wire.Value, error) {
	port, err := sig.Port(dir, index)
	if err != nil {
		return wire.Value{}, err
	}
	ty := port.Type
	if ty.Equals(cty.DynamicPseudoType) {
		if ty, err = gocty.ImpliedType(native); err != nil {
			return wire.Value{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: %v", dir, port.Name, err)
		}
	}
	cv, err := gocty.ToCtyValue(native, ty)
	if err != nil {
		return wire.Value{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: %v", dir, port.Name, err)
	}
	v, err := wire.FromCty(cv)
	if err != nil {
		return wire.Value{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: %v", dir, port.Name, err)
	}
	return v, nil
}

// FromWire extracts a native Go value from a wire value at the given port.
func FromWire[T any](sig Signature, dir Direction, index int, v wire.Value) (T, error) {
	var native T
	port, err := sig.Port(dir, index)
	if err != nil {
		return native, err
	}
	if !v.IsValid() {
		return native, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: invalid wire value", dir, port.Name)
	}
	if !port.Type.Equals(cty.DynamicPseudoType) && !v.Type().Equals(port.Type) {
		return native, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q expects %s, got %s",
			dir, port.Name, port.Type.FriendlyName(), v.Type().FriendlyName())
	}
	if err := gocty.FromCtyValue(v.Cty(), &native); err != nil {
		return native, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: %v", dir, port.Name, err)
	}
	return native, nil
}

// Erased is a type-erased native value together with its runtime type tag.
type Erased struct {
	Value any
	Kind  wire.Kind
	Type  cty.Type
}

func (e Erased) String() string { return fmt.Sprintf("%v (%s)", e.Value, e.Type.FriendlyName()) }

// FromWireErased extracts a value for dynamically typed consumers. Numbers
// become int64 when whole and float64 otherwise; lists become []any.
func FromWireErased(sig Signature, dir Direction, index int, v wire.Value) (Erased, error) {
	port, err := sig.Port(dir, index)
	if err != nil {
		return Erased{}, err
	}
	if !v.IsValid() {
		return Erased{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: invalid wire value", dir, port.Name)
	}
	if !port.Type.Equals(cty.DynamicPseudoType) && !v.Type().Equals(port.Type) {
		return Erased{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q expects %s", dir, port.Name, port.Type.FriendlyName())
	}
	native, err := Native(v)
	if err != nil {
		return Erased{}, flowerr.InvalidPin(flowerr.NoNode, index, "%s %q: %v", dir, port.Name, err)
	}
	return Erased{Value: native, Kind: v.Kind(), Type: v.Type()}, nil
}

// Native converts a wire value into its natural Go representation.
func Native(v wire.Value) (any, error) {
	switch v.Kind() {
	case wire.Number:
		if i, err := v.AsInt(); err == nil {
			return i, nil
		}
		return v.AsFloat()
	case wire.String:
		return v.AsString()
	case wire.Bool:
		return v.AsBool()
	case wire.List:
		elems, err := v.AsList()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			if out[i], err = Native(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid wire value")
	}
}
