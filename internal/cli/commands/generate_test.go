package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapschema/internal/cli/config"
	clitest "github.com/leapstack-labs/leapschema/internal/cli/testutil"
	"github.com/leapstack-labs/leapschema/internal/engine"
	"github.com/leapstack-labs/leapschema/internal/testutil"
	"github.com/leapstack-labs/leapschema/pkg/manifest"
)

// executeGenerate runs the generate command with cfg in its context.
func executeGenerate(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := NewGenerateCommand()
	ctx := config.WithLogger(context.Background(), testutil.NewTestLogger(t))
	cmd.SetContext(WithConfig(ctx, cfg))
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func loadProjectConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(dir, "leapschema.yaml"), "", nil)
	require.NoError(t, err)
	return cfg
}

func TestGenerate_WritesSchemas(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	cfg := loadProjectConfig(t, dir)
	cfg.OutputFormat = "json"

	out, err := executeGenerate(t, cfg)
	require.NoError(t, err)

	var summary engine.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Partial)
	assert.NotEmpty(t, summary.RunID, "run recorded in history")

	got := testutil.ReadFile(t, filepath.Join(dir, "schemas", "models", "marts", "orders_schema.yml"))
	assert.Contains(t, got, "- name: id\n        tests: [not_null, unique]\n      - name: order_total\n")
	assert.FileExists(t, filepath.Join(dir, "schemas", "models", "broken_schema.yml"))
	assert.FileExists(t, filepath.Join(dir, ".leapschema", "state.db"))
}

func TestGenerate_PositionalManifestAndNoState(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	other := testutil.WriteFile(t, t.TempDir(), "manifest.json", clitest.SampleManifest)

	cfg := loadProjectConfig(t, dir)
	cfg.NoState = true
	cfg.OutputFormat = "markdown"

	out, err := executeGenerate(t, cfg, other)
	require.NoError(t, err)

	clitest.AssertNoANSI(t, out)
	clitest.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Schema generation")
	assert.Contains(t, out, "| orders |")
	assert.NoFileExists(t, filepath.Join(dir, ".leapschema", "state.db"))
}

func TestGenerate_InputErrorFails(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	cfg := loadProjectConfig(t, dir)

	tests := []struct {
		name    string
		content string
	}{
		{name: "missing file"},
		{name: "malformed json", content: "{not json"},
		{name: "no nodes", content: `{"metadata": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.json")
			if tt.content != "" {
				testutil.WriteFile(t, filepath.Dir(path), "manifest.json", tt.content)
			}

			_, err := executeGenerate(t, cfg, path)
			var inputErr *manifest.InputError
			require.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestWatchFile_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "manifest.json", "{}")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 50*time.Millisecond, testutil.NewTestLogger(t), func() {
			calls.Add(1)
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte(`{"nodes": {}}`), 0o600))
	}
	testutil.WriteFile(t, dir, "other.json", "{}")

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst of writes triggers one run")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watchFile did not stop after cancel")
	}
}
