package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/burstflow/internal/app"
	"github.com/specialistvlad/burstflow/internal/checkpoint"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Values come from the defaults, then the -config file, then any flag set
// explicitly on the command line.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("burstflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
BurstFlow - A concurrent dataflow network runner.

Usage:
  burstflow [options] [NETWORK_PATH]

Arguments:
  NETWORK_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	def := app.DefaultConfig()
	networkFlag := flagSet.String("network", "", "Path to the network file or directory.")
	nFlag := flagSet.String("n", "", "Path to the network file or directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to a YAML config file.")
	workersFlag := flagSet.Int("workers", def.Workers, "Number of worker threads in the pool.")
	bufferFlag := flagSet.Int("buffer", 0, "Capacity of the pool's channels. 0 uses the worker count.")
	concurrencyFlag := flagSet.Int("concurrency", 0, "Maximum nodes in flight. 0 uses the worker count.")
	timeoutFlag := flagSet.Duration("task-timeout", 0, "Per-node execution timeout. 0 is unbounded.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", def.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", def.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	redisFlag := flagSet.String("checkpoint-redis", "", "Redis address for run checkpoints. Empty disables checkpointing.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := def
	if *configFlag != "" {
		loaded, err := app.LoadConfigFile(*configFlag, def)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workersFlag
		case "buffer":
			cfg.BufferSize = *bufferFlag
		case "concurrency":
			cfg.Concurrency = *concurrencyFlag
		case "task-timeout":
			cfg.TaskTimeout = *timeoutFlag
		case "healthcheck-port":
			cfg.HealthcheckPort = *healthPortFlag
		case "log-format":
			cfg.LogFormat = strings.ToLower(*logFormatFlag)
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevelFlag)
		case "checkpoint-redis":
			if cfg.Checkpoint == nil {
				cfg.Checkpoint = &checkpoint.RedisConfig{}
			}
			cfg.Checkpoint.Addr = *redisFlag
		}
	})

	switch {
	case *networkFlag != "":
		cfg.NetworkPath = *networkFlag
	case *nFlag != "":
		cfg.NetworkPath = *nFlag
	case flagSet.NArg() > 0:
		cfg.NetworkPath = flagSet.Arg(0)
	}
	slog.Debug("Network path determined.", "path", cfg.NetworkPath)

	if cfg.NetworkPath == "" {
		slog.Debug("No network path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
