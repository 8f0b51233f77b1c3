// Package socketio provides an operator that forwards its input to a
// socket.io server and, optionally, waits for a reply event.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config holds the connection and event settings of one operator instance.
type Config struct {
	URL                string
	Namespace          string
	EmitEvent          string
	OnEvent            string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	value wire.Value
	err   error
}

// New returns an operator that emits its input as cfg.EmitEvent. With an
// OnEvent set it has one output carrying the first argument of the reply;
// otherwise it returns once the event has been sent.
func New(cfg Config) operator.Operator[wire.Value] {
	in := []operator.Port{{Name: "data", Type: cty.DynamicPseudoType}}
	if cfg.OnEvent == "" {
		op := operator.Lift1x0("socketio", "SocketIO", func(ctx context.Context, v wire.Value) error {
			_, err := exchange(ctx, cfg, v)
			return err
		})
		return operator.MustWithSignature(op, operator.Signature{Inputs: in})
	}
	op := operator.Lift1x1("socketio", "SocketIO", func(ctx context.Context, v wire.Value) (wire.Value, error) {
		return exchange(ctx, cfg, v)
	})
	return operator.MustWithSignature(op, operator.Signature{
		Inputs:  in,
		Outputs: []operator.Port{{Name: "response", Type: cty.DynamicPseudoType}},
	})
}

func exchange(ctx context.Context, cfg Config, v wire.Value) (wire.Value, error) {
	logger := ctxlog.FromContext(ctx).With("operator", "socketio", "url", cfg.URL, "onEvent", cfg.OnEvent, "emitEvent", cfg.EmitEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	var isConnected atomic.Bool

	payload, err := operator.Native(v)
	if err != nil {
		return wire.Value{}, fmt.Errorf("cannot encode payload: %w", err)
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return wire.Value{}, fmt.Errorf("failed to parse URL: %w", err)
	}

	done := make(chan opResult, 2)
	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetReconnection(false)

	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	// --- Event Listeners ---
	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", cfg.Namespace, "sid", io.Id())
		jsonData, _ := json.Marshal(payload)
		logger.Info("Emitting event", "event", cfg.EmitEvent, "data", string(jsonData))
		io.Emit(cfg.EmitEvent, payload)
		if cfg.OnEvent == "" {
			send(done, opResult{})
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connect error: %w", e)
			}
		}
		send(done, opResult{err: err})
	})

	if cfg.OnEvent != "" {
		io.On(types.EventName(cfg.OnEvent), func(data ...any) {
			var responseData any
			if len(data) > 0 {
				responseData = data[0]
			}
			value, err := toWire(responseData)
			send(done, opResult{value: value, err: err})
		})
	}

	// --- Execution Block ---
	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return wire.Value{}, fmt.Errorf("timed out after connecting while waiting for event '%s'", cfg.OnEvent)
		}
		return wire.Value{}, fmt.Errorf("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

func send(done chan<- opResult, r opResult) {
	select {
	case done <- r:
	default:
	}
}

// toWire maps a decoded socket.io payload onto the wire kinds via its JSON form.
func toWire(data any) (wire.Value, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return wire.Value{}, fmt.Errorf("cannot encode response: %w", err)
	}
	var v wire.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return wire.Value{}, fmt.Errorf("unsupported response: %w", err)
	}
	if !v.IsValid() {
		return wire.Value{}, fmt.Errorf("response for event carried no data")
	}
	return v, nil
}

// Register registers the socketio operator with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Opcode:      "socketio",
		Description: "Emits its input to a socket.io server and optionally waits for a reply.",
		Args: map[string]cty.Type{
			"url":                  cty.String,
			"namespace":            cty.String,
			"emit_event":           cty.String,
			"on_event":             cty.String,
			"timeout":              cty.String,
			"insecure_skip_verify": cty.Bool,
		},
		Optional: map[string]cty.Value{
			"namespace":            cty.StringVal("/"),
			"on_event":             cty.StringVal(""),
			"timeout":              cty.StringVal("10s"),
			"insecure_skip_verify": cty.False,
		},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			var cfg Config
			var err error
			if cfg.URL, err = args.String("url"); err != nil {
				return nil, err
			}
			if cfg.Namespace, err = args.String("namespace"); err != nil {
				return nil, err
			}
			if cfg.EmitEvent, err = args.String("emit_event"); err != nil {
				return nil, err
			}
			if cfg.OnEvent, err = args.String("on_event"); err != nil {
				return nil, err
			}
			if cfg.InsecureSkipVerify, err = args.Bool("insecure_skip_verify"); err != nil {
				return nil, err
			}
			timeout, err := args.String("timeout")
			if err != nil {
				return nil, err
			}
			if cfg.Timeout, err = time.ParseDuration(timeout); err != nil {
				return nil, fmt.Errorf("invalid timeout %q: %w", timeout, err)
			}
			return New(cfg), nil
		},
	})
}
