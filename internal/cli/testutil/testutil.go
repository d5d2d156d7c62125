// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapschema/internal/cli/output"
)

// SampleManifest is a small dbt manifest with one resolvable model, one
// model whose SQL does not parse, and one non-model node.
const SampleManifest = `{
  "metadata": {"adapter_type": "duckdb", "dbt_version": "1.8.0"},
  "nodes": {
    "model.shop.orders": {
      "resource_type": "model",
      "name": "orders",
      "database": "dev",
      "schema": "main",
      "original_file_path": "models/marts/orders.sql",
      "compiled_code": "SELECT id, total AS order_total FROM raw_orders",
      "columns": {"id": {"name": "id", "tags": []}}
    },
    "model.shop.broken": {
      "resource_type": "model",
      "name": "broken",
      "original_file_path": "models/broken.sql",
      "compiled_code": "SELECT a FROM t WHERE ("
    },
    "seed.shop.raw_orders": {"resource_type": "seed", "name": "raw_orders"}
  }
}`

// SetupTestProject creates a temporary project containing
// target/manifest.json and a leapschema.yaml with introspection disabled,
// and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "target"), 0o750); err != nil {
		t.Fatalf("failed to create target directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "target", "manifest.json"), []byte(SampleManifest), 0o600); err != nil {
		t.Fatalf("failed to write manifest.json: %v", err)
	}

	cfg := "output_dir: schemas\nintrospect: false\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "leapschema.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to write leapschema.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer is a Renderer writing into buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a TestRenderer in mode. isTTY simulates a terminal.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns what was written to stdout.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns what was written to stderr.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that s contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for balanced code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

// AssertOutputMode checks that what tr captured has the shape of mode:
// a single JSON document, plain markdown, or text with nothing on stdout
// that looks like markdown headers.
func AssertOutputMode(t *testing.T, tr *TestRenderer, mode output.OutputMode) {
	t.Helper()

	out := tr.Output()
	switch mode {
	case output.ModeJSON:
		if !json.Valid([]byte(out)) {
			t.Errorf("output is not a JSON document: %q", out)
		}
		AssertNoANSI(t, out+tr.ErrorOutput())
	case output.ModeMarkdown:
		AssertNoANSI(t, out+tr.ErrorOutput())
		AssertValidMarkdown(t, out)
		if !strings.HasPrefix(out, "# ") {
			t.Errorf("markdown output does not start with a header: %q", out)
		}
	case output.ModeText:
		if strings.HasPrefix(out, "# ") || json.Valid([]byte(out)) {
			t.Errorf("text output looks like another mode: %q", out)
		}
	}
}
