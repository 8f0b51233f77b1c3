package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/burstflow/internal/checkpoint"
	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/netconfig"
	"github.com/specialistvlad/burstflow/internal/nodestore"
	"github.com/specialistvlad/burstflow/internal/scheduler"
	"github.com/specialistvlad/burstflow/internal/wire"
)

// Run loads the configured network, executes it and writes every leaf output
// to the app's writer as "<node>.out[<port>] = <value>".
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.startHealthCheckServer()
	defer a.closeHealthCheckServer()

	def, err := netconfig.LoadFiles(ctx, a.registry, a.config.NetworkPath)
	if err != nil {
		return fmt.Errorf("failed to load network: %w", err)
	}
	if def.Network.Len() == 0 {
		a.logger.Warn("No nodes found in network, execution not required.")
		return nil
	}

	opts := scheduler.Options[wire.Value]{
		Workers:     a.config.Workers,
		BufferSize:  a.config.BufferSize,
		Concurrency: a.config.Concurrency,
		TaskTimeout: a.config.TaskTimeout,
		Observer:    a.metrics,
		Sink: func(_ context.Context, e scheduler.Emission[wire.Value]) error {
			_, err := fmt.Fprintf(a.outW, "%s.out[%d] = %s\n", def.Name(e.Node), e.Port, e.Value)
			return err
		},
	}

	if a.config.Checkpoint != nil {
		store, err := checkpoint.NewRedisStore(ctx, *a.config.Checkpoint)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Checkpoint = store.Save
		a.logger.Info("Checkpointing to Redis.", "addr", a.config.Checkpoint.Addr)
	}

	a.logger.Info("🚀 Starting concurrent execution...", "nodes", def.Network.Len())
	report, err := scheduler.Run(ctx, def.Network, opts)
	if report != nil {
		a.logger.Info("🏁 Execution finished.",
			"runID", report.RunID,
			"duration", report.Duration(),
			"completed", report.Count(nodestore.StatusCompleted),
			"failed", report.Count(nodestore.StatusFailed),
			"skipped", report.Count(nodestore.StatusSkipped),
		)
		if report.FailedNode >= 0 {
			a.logger.Error("Node failed.", "node", def.Name(report.FailedNode), "error", report.Errors[report.FailedNode])
		}
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}
