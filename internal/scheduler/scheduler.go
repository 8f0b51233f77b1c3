package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/burstflow/internal/checkpoint"
	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/inmemorystore"
	"github.com/specialistvlad/burstflow/internal/network"
	"github.com/specialistvlad/burstflow/internal/nodestore"
	"github.com/specialistvlad/burstflow/internal/workerpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/specialistvlad/burstflow/internal/scheduler"

// run holds the state of one Run. Everything except the pool is touched only
// by the loop goroutine.
type run[W any] struct {
	net      *network.Network[W]
	opts     Options[W]
	pool     *workerpool.Pool
	progress *network.Progress
	store    nodestore.Store
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	report   *Report
	logger   *slog.Logger

	ready    chan int
	freed    chan int
	enqueued int
	deferred []int
	inFlight int
	halt     error
}

// Run executes every node of net exactly once, honouring data dependencies,
// and returns when all nodes completed or the run halted. The returned Report
// is non-nil whenever the options are valid, including on failure.
func Run[W any](ctx context.Context, net *network.Network[W], opts Options[W]) (*Report, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Store == nil {
		opts.Store = inmemorystore.New()
	}

	ctx, logger := ctxlog.With(ctx, "runID", opts.RunID)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scheduler.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("burstflow.run.id", opts.RunID),
		attribute.Int("burstflow.run.nodes", net.Len()),
	)

	logger.Info("Starting run.", "nodes", net.Len(), "workers", opts.Workers, "concurrency", opts.Concurrency)

	pool, err := workerpool.New(ctx, opts.Workers, opts.BufferSize, workerpool.WithTaskTimeout(opts.TaskTimeout))
	if err != nil {
		return nil, err
	}
	defer pool.Shutdown()

	r := &run[W]{
		net:      net,
		opts:     opts,
		pool:     pool,
		progress: net.NewProgress(),
		store:    opts.Store,
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		limiter:  rate.NewLimiter(rate.Every(opts.RetryInterval), 1),
		report:   newReport(opts.RunID, net.Len()),
		logger:   logger,
		ready:    make(chan int, net.Len()),
		freed:    make(chan int, net.Len()),
	}

	err = r.loop(ctx)
	r.finish(ctx)

	if opts.Observer != nil {
		opts.Observer.RunFinished(r.report.Duration(), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Run halted.", "error", err, "completed", r.progress.CompletedCount(), "duration", r.report.Duration())
		return r.report, err
	}
	logger.Info("Run completed.", "completed", r.progress.CompletedCount(), "duration", r.report.Duration())
	return r.report, nil
}

func (r *run[W]) loop(ctx context.Context) error {
	for _, src := range r.net.Sources() {
		if err := r.markReady(ctx, src); err != nil {
			return err
		}
	}
	if r.net.Len() == 0 {
		close(r.ready)
	}

	readyC := r.ready
	done := ctx.Done()
	var retry <-chan time.Time

	for {
		if r.halt == nil && ctx.Err() != nil {
			r.stop(flowerr.NoNode, ctx.Err())
		}
		if r.halt == nil {
			exhausted, err := r.admit(ctx)
			if err != nil {
				r.stop(flowerr.NoNode, err)
			} else if exhausted && retry == nil {
				retry = time.After(r.limiter.Reserve().Delay())
			}
		}

		switch {
		case r.halt != nil && r.inFlight == 0:
			return r.halt
		case r.enqueued == r.net.Len() && len(r.ready) == 0 && len(r.deferred) == 0 && r.inFlight == 0:
			return nil
		case r.inFlight == 0 && len(r.deferred) == 0 && len(r.ready) == 0 && len(r.freed) == 0 && retry == nil:
			return flowerr.New(flowerr.ErrDeadlock, flowerr.NoNode, flowerr.NoPort,
				"%d of %d nodes completed and nothing is ready", r.progress.CompletedCount(), r.net.Len())
		}

		if r.halt != nil {
			readyC = nil
			done = nil
		}

		select {
		case idx, ok := <-readyC:
			if !ok {
				readyC = nil
				continue
			}
			r.deferred = append(r.deferred, idx)

		case idx := <-r.freed:
			if r.halt != nil {
				continue
			}
			if err := r.markReady(ctx, idx); err != nil {
				r.stop(idx, err)
			}

		case res, ok := <-r.pool.Results():
			if !ok {
				r.stop(flowerr.NoNode, flowerr.New(flowerr.ErrPoolClosed, flowerr.NoNode, flowerr.NoPort, "results closed mid-run"))
				r.inFlight = 0
				continue
			}
			r.complete(ctx, res)

		case <-retry:
			retry = nil

		case <-done:
			r.logger.Warn("Context canceled, halting run.", "inFlight", r.inFlight)
			r.stop(flowerr.NoNode, ctx.Err())
		}
	}
}

// markReady moves a node whose in-degree reached zero onto the ready channel.
func (r *run[W]) markReady(ctx context.Context, idx int) error {
	if err := r.store.Transition(ctx, idx, nodestore.StatusBlocked, nodestore.StatusReady); err != nil {
		return err
	}
	r.logger.Debug("Node ready.", "nodeIndex", idx)
	r.ready <- idx
	r.enqueued++
	if r.enqueued == r.net.Len() {
		close(r.ready)
	}
	return nil
}

// admit submits deferred ready nodes while concurrency slots and pool
// capacity last. exhausted reports that the pool refused a submission.
func (r *run[W]) admit(ctx context.Context) (exhausted bool, err error) {
	for len(r.deferred) > 0 {
		idx := r.deferred[0]
		if !r.sem.TryAcquire(1) {
			return false, nil
		}
		if remaining := r.progress.Remaining(idx); remaining != 0 {
			r.sem.Release(1)
			return false, flowerr.New(flowerr.ErrInvalidNode, idx, flowerr.NoPort,
				"admitted with %d unsatisfied inputs", remaining)
		}

		node, err := r.net.Node(idx)
		if err != nil {
			r.sem.Release(1)
			return false, err
		}
		err = r.pool.Submit(workerpool.Task{NodeIndex: idx, Run: node.Execute})
		if errors.Is(err, flowerr.ErrResourceExhaustion) {
			r.sem.Release(1)
			if r.opts.Observer != nil {
				r.opts.Observer.NodeRejected(idx)
			}
			r.logger.Debug("Pool full, deferring node.", "nodeIndex", idx, "deferred", len(r.deferred))
			return true, nil
		}
		if err != nil {
			r.sem.Release(1)
			return false, err
		}

		r.deferred = r.deferred[1:]
		r.inFlight++
		if err := r.store.Transition(ctx, idx, nodestore.StatusReady, nodestore.StatusSubmitted); err != nil {
			return false, err
		}
		if r.opts.Observer != nil {
			r.opts.Observer.NodeSubmitted(idx)
		}
		r.logger.Debug("Node submitted.", "nodeIndex", idx, "inFlight", r.inFlight)
	}
	return false, nil
}

// complete consumes one worker result.
func (r *run[W]) complete(ctx context.Context, res workerpool.Result) {
	r.inFlight--
	r.sem.Release(1)
	if r.opts.Observer != nil {
		r.opts.Observer.NodeFinished(res.NodeIndex, res.Duration(), res.Err)
	}
	logger := r.logger.With("nodeIndex", res.NodeIndex, "workerID", res.WorkerID)

	if res.Err != nil {
		logger.Error("Node execution failed.", "error", res.Err)
		r.report.Errors[res.NodeIndex] = res.Err
		_ = r.store.SetError(ctx, res.NodeIndex, res.Err)
		if err := r.store.Transition(ctx, res.NodeIndex, nodestore.StatusSubmitted, nodestore.StatusFailed); err != nil {
			logger.Error("Failed to record node failure.", "error", err)
		}
		r.stop(res.NodeIndex, res.Err)
		return
	}

	if err := r.store.Transition(ctx, res.NodeIndex, nodestore.StatusSubmitted, nodestore.StatusCompleted); err != nil {
		r.stop(res.NodeIndex, err)
		return
	}
	freed, err := r.progress.Complete(res.NodeIndex, r.net.Children(res.NodeIndex))
	if err != nil {
		r.stop(res.NodeIndex, err)
		return
	}
	logger.Debug("Node completed.", "duration", res.Duration(), "freed", len(freed))

	if r.halt == nil {
		for _, child := range freed {
			r.freed <- child
		}
	}

	if r.opts.Sink != nil && r.net.IsLeaf(res.NodeIndex) {
		r.emit(ctx, res.NodeIndex)
	}
	if r.opts.Checkpoint != nil {
		r.checkpoint(ctx, res.NodeIndex)
	}
}

// stop records the first halting error; later ones are only logged.
func (r *run[W]) stop(node int, err error) {
	if r.halt != nil {
		return
	}
	if node != flowerr.NoNode {
		r.report.FailedNode = node
		err = fmt.Errorf("execution failed at node %d: %w", node, err)
	}
	r.halt = err
}

func (r *run[W]) emit(ctx context.Context, idx int) {
	node, _ := r.net.Node(idx)
	for port := range node.Operator.Arity().Out {
		v, ok := node.Output(port)
		if !ok {
			continue
		}
		e := Emission[W]{RunID: r.opts.RunID, Node: idx, Port: port, Value: v}
		if err := r.opts.Sink(ctx, e); err != nil {
			r.logger.Warn("Sink rejected output.", "nodeIndex", idx, "port", port, "error", err)
		}
	}
}

func (r *run[W]) checkpoint(ctx context.Context, idx int) {
	node, _ := r.net.Node(idx)
	cp := &checkpoint.Checkpoint{
		RunID:     r.opts.RunID,
		Node:      idx,
		Completed: r.progress.Snapshot(),
		Total:     r.net.Len(),
		CreatedAt: time.Now(),
	}
	for port := range node.Operator.Arity().Out {
		v, ok := node.Output(port)
		if !ok {
			continue
		}
		raw, err := r.opts.Encode(v)
		if err != nil {
			r.logger.Warn("Cannot encode output for checkpoint.", "nodeIndex", idx, "port", port, "error", err)
			continue
		}
		cp.Outputs = append(cp.Outputs, checkpoint.PortValue{Port: port, Value: raw})
	}
	if err := r.opts.Checkpoint(ctx, cp); err != nil {
		r.logger.Warn("Checkpoint failed.", "nodeIndex", idx, "error", err)
	}
}

// finish marks every node that never ran as Skipped and fills the report.
func (r *run[W]) finish(ctx context.Context) {
	for i := range r.net.Len() {
		st, _ := r.store.GetStatus(ctx, i)
		if st == nodestore.StatusBlocked || st == nodestore.StatusReady {
			if err := r.store.Transition(ctx, i, st, nodestore.StatusSkipped); err == nil {
				st = nodestore.StatusSkipped
				r.logger.Debug("Node skipped.", "nodeIndex", i)
			}
		}
		r.report.States[i] = st
	}
	r.report.Finished = time.Now()
}
