package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all operator modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Factory builds a fresh operator instance from validated arguments.
type Factory func(args Args) (operator.Operator[wire.Value], error)

// Definition describes one registrable operator family.
type Definition struct {
	Opcode      operator.Opcode
	Description string
	// Args maps each argument name to its type. Arguments are required
	// unless listed in Optional.
	Args     map[string]cty.Type
	Optional map[string]cty.Value
	New      Factory
}

// Registry holds all operator definitions for a single application instance.
type Registry struct {
	mu   sync.RWMutex
	defs map[operator.Opcode]*Definition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{defs: make(map[operator.Opcode]*Definition)}
}

// Register adds def. Registering the same opcode twice is a programming
// error and panics.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Opcode]; exists {
		panic(fmt.Sprintf("operator with opcode '%s' already registered", def.Opcode))
	}
	r.defs[def.Opcode] = def
}

// RegisterModules registers every module in order.
func (r *Registry) RegisterModules(ctx context.Context, modules ...Module) {
	logger := ctxlog.FromContext(ctx)
	for _, m := range modules {
		m.Register(r)
		logger.Debug("Registered module.", "module", fmt.Sprintf("%T", m))
	}
}

// Lookup returns the definition for opcode.
func (r *Registry) Lookup(opcode operator.Opcode) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[opcode]
	return def, ok
}

// Opcodes lists every registered opcode in sorted order.
func (r *Registry) Opcodes() []operator.Opcode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]operator.Opcode, 0, len(r.defs))
	for op := range r.defs {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Instantiate validates args against the opcode's schema and builds an operator.
func (r *Registry) Instantiate(ctx context.Context, opcode operator.Opcode, args cty.Value) (operator.Operator[wire.Value], error) {
	def, ok := r.Lookup(opcode)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", opcode)
	}
	parsed, err := def.parseArgs(args)
	if err != nil {
		return nil, fmt.Errorf("operator %q: %w", opcode, err)
	}
	op, err := def.New(parsed)
	if err != nil {
		return nil, fmt.Errorf("operator %q: %w", opcode, err)
	}
	ctxlog.FromContext(ctx).Debug("Instantiated operator.", "opcode", opcode, "name", op.Name(), "arity", op.Arity().String())
	return op, nil
}
