// Package testutil holds shared helpers for integration tests that drive the
// whole application from HCL files.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/burstflow/internal/app"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/modules/arith"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// RunIntegrationTest runs the application with a default background context.
func RunIntegrationTest(t *testing.T, cfg app.Config, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, cfg, files, modules...)
}

// RunIntegrationTestWithContext writes files (relative path -> HCL) into a
// temporary directory, points cfg at it and runs the app with the arith
// module plus modules registered.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, cfg app.Config, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	cfg.NetworkPath = dir

	all := append([]registry.Module{&arith.Module{}}, modules...)
	testApp, buf := app.SetupAppTest(t, &cfg, all...)

	err := testApp.Run(ctx)
	return &HarnessResult{Output: buf.String(), Err: err, App: testApp}
}
