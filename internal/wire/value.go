// Package wire defines Value, the closed set of values that can travel over
// an edge of a network assembled from this module's operator library.
//
// A Value is backed by a go-cty value so that HCL network definitions, port
// signatures and runtime values share one type system. The set of kinds is
// deliberately closed: numbers, strings, bools and lists of those. Anything
// else is rejected at the boundary by FromCty.
package wire

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Kind is the runtime tag of a Value.
type Kind uint8

const (
	Invalid Kind = iota
	Number
	String
	Bool
	List
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	case List:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a single wire value. The zero Value is Invalid.
type Value struct {
	v cty.Value
}

// Int returns a Number value holding i.
func Int(i int64) Value { return Value{v: cty.NumberIntVal(i)} }

// Float returns a Number value holding f.
func Float(f float64) Value { return Value{v: cty.NumberFloatVal(f)} }

// Str returns a String value.
func Str(s string) Value { return Value{v: cty.StringVal(s)} }

// Boolean returns a Bool value.
func Boolean(b bool) Value { return Value{v: cty.BoolVal(b)} }

// ListOf returns a List value holding vs in order. Elements may be of mixed kinds.
func ListOf(vs ...Value) Value {
	if len(vs) == 0 {
		return Value{v: cty.EmptyTupleVal}
	}
	elems := make([]cty.Value, len(vs))
	for i, e := range vs {
		elems[i] = e.v
	}
	return Value{v: cty.TupleVal(elems)}
}

// FromCty validates v against the closed kind set and wraps it.
func FromCty(v cty.Value) (Value, error) {
	if v == cty.NilVal {
		return Value{}, fmt.Errorf("wire: nil value")
	}
	if !v.IsWhollyKnown() {
		return Value{}, fmt.Errorf("wire: value is not known")
	}
	if v.IsNull() {
		return Value{}, fmt.Errorf("wire: value is null")
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number), ty.Equals(cty.String), ty.Equals(cty.Bool):
		return Value{v: v}, nil
	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if _, err := FromCty(elem); err != nil {
				return Value{}, err
			}
		}
		return Value{v: v}, nil
	default:
		return Value{}, fmt.Errorf("wire: unsupported type %s", ty.FriendlyName())
	}
}

// Kind reports the runtime tag of v.
func (v Value) Kind() Kind {
	if v.v == cty.NilVal {
		return Invalid
	}
	ty := v.v.Type()
	switch {
	case ty.Equals(cty.Number):
		return Number
	case ty.Equals(cty.String):
		return String
	case ty.Equals(cty.Bool):
		return Bool
	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		return List
	default:
		return Invalid
	}
}

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.Kind() != Invalid }

// Type returns the cty type of v, or cty.NilType for the zero Value.
func (v Value) Type() cty.Type {
	if v.v == cty.NilVal {
		return cty.NilType
	}
	return v.v.Type()
}

// Cty exposes the underlying cty value.
func (v Value) Cty() cty.Value { return v.v }

func (v Value) expect(k Kind) error {
	if got := v.Kind(); got != k {
		return fmt.Errorf("wire: expected %s, got %s", k, got)
	}
	return nil
}

// AsInt returns the value as an int64. Fractional numbers are an error.
func (v Value) AsInt() (int64, error) {
	if err := v.expect(Number); err != nil {
		return 0, err
	}
	var i int64
	if err := gocty.FromCtyValue(v.v, &i); err != nil {
		return 0, fmt.Errorf("wire: %w", err)
	}
	return i, nil
}

// AsFloat returns the value as a float64.
func (v Value) AsFloat() (float64, error) {
	if err := v.expect(Number); err != nil {
		return 0, err
	}
	f, _ := v.v.AsBigFloat().Float64()
	return f, nil
}

// AsBigFloat returns the exact numeric value.
func (v Value) AsBigFloat() (*big.Float, error) {
	if err := v.expect(Number); err != nil {
		return nil, err
	}
	return v.v.AsBigFloat(), nil
}

// AsString returns the value as a string.
func (v Value) AsString() (string, error) {
	if err := v.expect(String); err != nil {
		return "", err
	}
	return v.v.AsString(), nil
}

// AsBool returns the value as a bool.
func (v Value) AsBool() (bool, error) {
	if err := v.expect(Bool); err != nil {
		return false, err
	}
	return v.v.True(), nil
}

// AsList returns the elements of a List value.
func (v Value) AsList() ([]Value, error) {
	if err := v.expect(List); err != nil {
		return nil, err
	}
	out := make([]Value, 0, v.v.LengthInt())
	for it := v.v.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		out = append(out, Value{v: elem})
	}
	return out, nil
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind() == Invalid || o.Kind() == Invalid {
		return v.Kind() == o.Kind()
	}
	return v.v.RawEquals(o.v)
}

// String renders v for logs and terminal output.
func (v Value) String() string {
	switch v.Kind() {
	case Number:
		return v.v.AsBigFloat().Text('f', -1)
	case String:
		return fmt.Sprintf("%q", v.v.AsString())
	case Bool:
		if v.v.True() {
			return "true"
		}
		return "false"
	case List:
		elems, _ := v.AsList()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes v using cty's JSON mapping.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsValid() {
		return []byte("null"), nil
	}
	return ctyjson.Marshal(v.v, v.v.Type())
}

// UnmarshalJSON decodes a JSON document produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	cv, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	decoded, err := FromCty(cv)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

var (
	_ json.Marshaler   = Value{}
	_ json.Unmarshaler = (*Value)(nil)
)
