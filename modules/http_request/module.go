// Package http_request provides a source operator that performs an HTTP
// request and exposes the status code and body on its outputs.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
// Client defaults to a client with a 30s timeout, shared by every instance.
type Module struct {
	Client *http.Client
}

var sig = operator.Signature{
	Outputs: []operator.Port{
		{Name: "status_code", Type: cty.Number},
		{Name: "body", Type: cty.String},
	},
}

// New returns a 0-in/2-out operator issuing method against url.
func New(client *http.Client, method, url string) operator.Operator[wire.Value] {
	op := operator.Lift0x2("http_request", "HttpRequest", func(ctx context.Context) (wire.Value, wire.Value, error) {
		logger := ctxlog.FromContext(ctx)
		logger.Info("Making HTTP request", "method", method, "url", url)

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return wire.Value{}, wire.Value{}, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return wire.Value{}, wire.Value{}, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		logger.Info("Received HTTP response", "status", resp.Status)

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return wire.Value{}, wire.Value{}, fmt.Errorf("failed to read response body: %w", err)
		}
		return wire.Int(int64(resp.StatusCode)), wire.Str(string(bodyBytes)), nil
	})
	return operator.MustWithSignature(op, sig)
}

// Register registers the http_request operator with the engine.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r.Register(&registry.Definition{
		Opcode:      "http_request",
		Description: "Performs an HTTP request; outputs status code and body.",
		Args:        map[string]cty.Type{"url": cty.String, "method": cty.String},
		Optional:    map[string]cty.Value{"method": cty.StringVal(http.MethodGet)},
		New: func(args registry.Args) (operator.Operator[wire.Value], error) {
			url, err := args.String("url")
			if err != nil {
				return nil, err
			}
			method, err := args.String("method")
			if err != nil {
				return nil, err
			}
			return New(client, method, url), nil
		},
	})
}
