package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Args holds an operator's arguments after conversion to their declared types.
type Args map[string]cty.Value

// Value returns the raw argument, or cty.NilVal when absent.
func (a Args) Value(name string) cty.Value {
	if v, ok := a[name]; ok {
		return v
	}
	return cty.NilVal
}

// Int decodes a whole-number argument.
func (a Args) Int(name string) (int64, error) {
	var out int64
	return out, a.decode(name, &out)
}

// Float decodes a numeric argument.
func (a Args) Float(name string) (float64, error) {
	var out float64
	return out, a.decode(name, &out)
}

// String decodes a string argument.
func (a Args) String(name string) (string, error) {
	var out string
	return out, a.decode(name, &out)
}

// Bool decodes a bool argument.
func (a Args) Bool(name string) (bool, error) {
	var out bool
	return out, a.decode(name, &out)
}

func (a Args) decode(name string, target any) error {
	v, ok := a[name]
	if !ok || v.IsNull() {
		return fmt.Errorf("argument %q is not set", name)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return fmt.Errorf("argument %q: %w", name, err)
	}
	return nil
}

// parseArgs checks raw against the definition's schema: unknown names are
// rejected, required names must be present and every value is converted to
// its declared type.
func (d *Definition) parseArgs(raw cty.Value) (Args, error) {
	given := map[string]cty.Value{}
	if raw != cty.NilVal && !raw.IsNull() {
		ty := raw.Type()
		if !ty.IsObjectType() && !ty.IsMapType() {
			return nil, fmt.Errorf("args must be an object, got %s", ty.FriendlyName())
		}
		if !raw.IsWhollyKnown() {
			return nil, fmt.Errorf("args must be known before the network is built")
		}
		given = raw.AsValueMap()
	}

	var errs []string
	out := make(Args, len(d.Args))
	for name, v := range given {
		want, ok := d.Args[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("unsupported argument %q", name))
			continue
		}
		conv, err := convert.Convert(v, want)
		if err != nil {
			errs = append(errs, fmt.Sprintf("argument %q: %v", name, err))
			continue
		}
		out[name] = conv
	}
	for name := range d.Args {
		if _, ok := out[name]; ok {
			continue
		}
		if def, ok := d.Optional[name]; ok {
			out[name] = def
			continue
		}
		if _, ok := given[name]; !ok {
			errs = append(errs, fmt.Sprintf("missing required argument %q", name))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return nil, fmt.Errorf("invalid arguments:\n- %s", strings.Join(errs, "\n- "))
	}
	return out, nil
}
