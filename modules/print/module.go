package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
// Out defaults to os.Stdout.
type Module struct {
	Out io.Writer
}

var sig = operator.Signature{
	Inputs: []operator.Port{{Name: "value", Type: cty.DynamicPseudoType}},
}

// writers serializes output per destination so concurrent nodes never
// interleave within a line.
var writers sync.Map // io.Writer -> *sync.Mutex

func lockFor(w io.Writer) *sync.Mutex {
	mu, _ := writers.LoadOrStore(w, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// New returns an operator that prints its input, prefixed by label, to out.
func New(out io.Writer, label string) operator.Operator[wire.Value] {
	op := operator.Lift1x0("print", "Print", func(ctx context.Context, v wire.Value) error {
		ctxlog.FromContext(ctx).Info("Printing input", "label", label)

		mu := lockFor(out)
		mu.Lock()
		defer mu.Unlock()
		if !v.IsValid() {
			_, err := fmt.Fprintf(out, "      %s = (null)\n", label)
			return err
		}
		_, err := fmt.Fprintf(out, "      %s = %s\n", label, v)
		return err
	})
	return operator.MustWithSignature(op, sig)
}

// Register registers the print operator with the engine.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.Register(&registry.Definition{
		Opcode:      "print",
		Description: "Writes its input to the terminal.",
		Args:        map[string]cty.Type{"label": cty.String},
		Optional:    map[string]cty.Value{"label": cty.StringVal("value")},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			label, err := args.String("label")
			if err != nil {
				return nil, err
			}
			return New(out, label), nil
		},
	})
}
