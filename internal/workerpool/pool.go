// Package workerpool runs node executions on a fixed set of OS-thread-pinned
// workers fed through bounded channels.
//
// Submissions enter a single main channel. An aggregator goroutine hands them
// out round-robin to per-worker channels, and every worker reports back on a
// shared result channel. Nothing in the pool ever blocks the submitter: a full
// main channel is reported as flowerr.ErrResourceExhaustion and the caller
// decides when to retry.
//
// Shutdown closes the main channel. The aggregator forwards whatever is left
// and closes the worker channels; each worker drains its channel and exits.
// Once the pool's context is cancelled, queued tasks are still reported but
// no longer run: their results carry the context error.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/specialistvlad/burstflow/internal/workerpool"

// Task is one unit of work, normally the execution of a single node.
type Task struct {
	NodeIndex int
	Run       func(ctx context.Context) error
}

// Result reports how a Task ended.
type Result struct {
	NodeIndex int
	WorkerID  int
	Err       error
	Started   time.Time
	Finished  time.Time
}

// Duration is the wall time the task spent executing.
func (r Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Option configures a Pool.
type Option func(*Pool)

// WithTaskTimeout bounds every task's context. Zero disables the bound.
// Cancellation is cooperative: a task that ignores its context keeps its
// worker until it returns.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) { p.taskTimeout = d }
}

// WithTracer overrides the tracer used for per-task spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pool) { p.tracer = t }
}

// Pool owns threadCount workers plus one aggregator.
type Pool struct {
	ctx         context.Context
	group       errgroup.Group
	tasks       chan Task
	workers     []chan Task
	results     chan Result
	taskTimeout time.Duration
	tracer      trace.Tracer

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// New starts a pool. threadCount and bufferSize must both be positive;
// bufferSize bounds the main channel and every worker channel.
func New(ctx context.Context, threadCount, bufferSize int, opts ...Option) (*Pool, error) {
	if threadCount < 1 {
		return nil, fmt.Errorf("workerpool: thread count must be positive, got %d", threadCount)
	}
	if bufferSize < 1 {
		return nil, fmt.Errorf("workerpool: buffer size must be positive, got %d", bufferSize)
	}

	// Room for every task the channels can hold at once. A caller that keeps
	// more results than this unread makes workers block on the send until it
	// reads again.
	inFlight := bufferSize*(threadCount+1) + threadCount + 1

	p := &Pool{
		ctx:     ctx,
		tasks:   make(chan Task, bufferSize),
		workers: make([]chan Task, threadCount),
		results: make(chan Result, inFlight),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", threadCount, "bufferSize", bufferSize)

	for id := range p.workers {
		ch := make(chan Task, bufferSize)
		p.workers[id] = ch
		p.group.Go(func() error {
			p.worker(id, ch)
			return nil
		})
	}
	p.group.Go(func() error {
		p.aggregate()
		return nil
	})
	return p, nil
}

// Workers returns the number of worker threads.
func (p *Pool) Workers() int { return len(p.workers) }

// Submit enqueues t without blocking. It fails with ErrResourceExhaustion when
// the main channel is full and ErrPoolClosed after Shutdown.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return flowerr.New(flowerr.ErrPoolClosed, t.NodeIndex, flowerr.NoPort, "submit after shutdown")
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		return flowerr.New(flowerr.ErrResourceExhaustion, t.NodeIndex, flowerr.NoPort,
			"main channel full (capacity %d)", cap(p.tasks))
	}
}

// TryRecvResult returns a finished result if one is waiting.
func (p *Pool) TryRecvResult() (Result, bool) {
	select {
	case r, ok := <-p.results:
		return r, ok
	default:
		return Result{}, false
	}
}

// Results exposes the result channel for use in select loops. It is closed
// once Shutdown has drained every worker; results still buffered stay readable.
func (p *Pool) Results() <-chan Result { return p.results }

// Shutdown stops accepting work and waits until every queued task has been
// run and reported. If more than cap(Results()) results would be pending at
// once, the caller must keep reading Results() while Shutdown runs. It is
// safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		logger := ctxlog.FromContext(p.ctx)
		logger.Debug("Shutting down worker pool.")

		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()

		_ = p.group.Wait()
		close(p.results)
		logger.Debug("Worker pool stopped.")
	})
}

// aggregate forwards the main channel to the workers round-robin until it is
// closed, then closes the worker channels.
func (p *Pool) aggregate() {
	defer func() {
		for _, ch := range p.workers {
			close(ch)
		}
	}()

	next := 0
	for t := range p.tasks {
		p.workers[next] <- t
		next = (next + 1) % len(p.workers)
	}
}

func (p *Pool) worker(id int, ch <-chan Task) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	logger := ctxlog.FromContext(p.ctx).With("workerID", id)
	logger.Debug("Worker started.")
	defer logger.Debug("Worker finished.")

	for t := range ch {
		if err := p.ctx.Err(); err != nil {
			logger.Debug("Context done, reporting task without running it.", "nodeIndex", t.NodeIndex)
			now := time.Now()
			p.results <- Result{NodeIndex: t.NodeIndex, WorkerID: id, Err: err, Started: now, Finished: now}
			continue
		}
		p.results <- p.execute(id, t)
	}
}

func (p *Pool) execute(id int, t Task) (r Result) {
	ctx := p.ctx
	var cancel context.CancelFunc
	if p.taskTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	ctx, span := p.tracer.Start(ctx, "node.execute", trace.WithAttributes(
		attribute.Int("burstflow.node.index", t.NodeIndex),
		attribute.Int("burstflow.worker.id", id),
	))
	defer span.End()

	r = Result{NodeIndex: t.NodeIndex, WorkerID: id, Started: time.Now()}
	defer func() {
		if rec := recover(); rec != nil {
			r.Err = flowerr.New(flowerr.ErrOperator, t.NodeIndex, flowerr.NoPort, "panic: %v", rec)
		}
		r.Finished = time.Now()
		if r.Err != nil {
			span.RecordError(r.Err)
			span.SetStatus(codes.Error, r.Err.Error())
		}
	}()

	r.Err = t.Run(ctx)
	return r
}
