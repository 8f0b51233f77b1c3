package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/specialistvlad/burstflow/internal/checkpoint"
	"github.com/specialistvlad/burstflow/internal/nodestore"
)

// Emission is one value streamed to a Sink.
type Emission[W any] struct {
	RunID string
	Node  int
	Port  int
	Value W
}

// SinkFunc receives the outputs of leaf nodes as soon as they are published.
type SinkFunc[W any] func(ctx context.Context, e Emission[W]) error

// CheckpointFunc is invoked after every node completion.
type CheckpointFunc func(ctx context.Context, cp *checkpoint.Checkpoint) error

// Observer is notified of scheduling activity. metrics.Collector implements it.
type Observer interface {
	NodeSubmitted(node int)
	NodeRejected(node int)
	NodeFinished(node int, d time.Duration, err error)
	RunFinished(d time.Duration, err error)
}

// Options configures a Run. The zero value is usable.
type Options[W any] struct {
	// Workers is the number of pool threads. Defaults to runtime.NumCPU().
	Workers int
	// BufferSize bounds the pool's channels. Defaults to Workers.
	BufferSize int
	// Concurrency caps submitted-but-unfinished nodes. Defaults to Workers.
	Concurrency int
	// TaskTimeout bounds each node execution's context. Zero means no bound.
	TaskTimeout time.Duration
	// RetryInterval paces resubmission after the pool reports exhaustion.
	RetryInterval time.Duration

	// RunID labels logs, emissions and checkpoints. Defaults to a random UUID.
	RunID string
	// Store records node states. Defaults to an in-memory store.
	Store nodestore.Store
	// Sink receives leaf outputs. Sink errors are logged and do not affect the run.
	Sink SinkFunc[W]
	// Checkpoint receives progress after every completion. Errors are logged.
	Checkpoint CheckpointFunc
	// Encode serializes output values for checkpoints. Defaults to encoding/json.
	Encode func(W) (json.RawMessage, error)
	// Observer receives scheduling events, e.g. for metrics.
	Observer Observer
}

const defaultRetryInterval = 2 * time.Millisecond

func (o Options[W]) withDefaults() (Options[W], error) {
	if o.Workers < 0 || o.BufferSize < 0 || o.Concurrency < 0 || o.TaskTimeout < 0 || o.RetryInterval < 0 {
		return o, fmt.Errorf("scheduler options must not be negative: %+v", o)
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.BufferSize == 0 {
		o.BufferSize = o.Workers
	}
	if o.Concurrency == 0 {
		o.Concurrency = o.Workers
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.Encode == nil {
		o.Encode = func(v W) (json.RawMessage, error) { return json.Marshal(v) }
	}
	return o, nil
}
