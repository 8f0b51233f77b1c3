package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Validate performs a consistency check over every registered definition:
// a factory must exist, optional defaults must be declared arguments and must
// convert to the declared type.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for opcode, def := range r.defs {
		if opcode == "" {
			errs = append(errs, "definition with empty opcode")
		}
		if def.New == nil {
			errs = append(errs, fmt.Sprintf("operator '%s': no factory", opcode))
		}
		for name, ty := range def.Args {
			if ty.Equals(cty.DynamicPseudoType) {
				logger.Warn("Operator has argument with 'type = any', which disables static type checking.", "opcode", opcode, "argument", name)
			}
		}
		for name, val := range def.Optional {
			ty, ok := def.Args[name]
			if !ok {
				errs = append(errs, fmt.Sprintf("operator '%s': default for undeclared argument '%s'", opcode, name))
				continue
			}
			if _, err := convert.Convert(val, ty); err != nil {
				errs = append(errs, fmt.Sprintf("operator '%s', argument '%s': default is not a %s: %v", opcode, name, ty.FriendlyName(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
