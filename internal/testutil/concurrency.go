package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It registers the "sleeper" opcode, which sleeps, records its execution
// window under its id and outputs the id. The "inputs" argument sets how
// many upstream values it waits for; "fail" makes it return an error.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

// Record returns the execution window of id, if it ran.
func (m *MockSleeperModule) Record(id string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.ExecutionTimes[id]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Register registers the "sleeper" operator.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Opcode: "sleeper",
		Args:   map[string]cty.Type{"id": cty.String, "inputs": cty.Number, "fail": cty.Bool},
		Optional: map[string]cty.Value{
			"inputs": cty.NumberIntVal(0),
			"fail":   cty.False,
		},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			id, err := args.String("id")
			if err != nil {
				return nil, err
			}
			inputs, err := args.Int("inputs")
			if err != nil {
				return nil, err
			}
			fail, err := args.Bool("fail")
			if err != nil {
				return nil, err
			}
			return operator.Lift("sleeper", "Sleeper("+id+")", operator.Arity{In: int(inputs), Out: 1},
				func(ctx context.Context, _ []wire.Value) ([]wire.Value, error) {
					start := time.Now()
					select {
					case <-time.After(m.sleepDuration):
					case <-ctx.Done():
						return nil, ctx.Err()
					}
					end := time.Now()

					m.mu.Lock()
					m.ExecutionTimes[id] = &ExecutionRecord{Start: start, End: end}
					m.mu.Unlock()

					if fail {
						return nil, fmt.Errorf("sleeper %s failed on purpose", id)
					}
					return []wire.Value{wire.Str(id)}, nil
				})
		},
	})
}
