package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapschema/internal/state"
	"github.com/leapstack-labs/leapschema/internal/testutil"
	"github.com/leapstack-labs/leapschema/pkg/adapter"
	"github.com/leapstack-labs/leapschema/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapschema/pkg/core"
	"github.com/leapstack-labs/leapschema/pkg/manifest"
)

const ordersManifest = `{
  "metadata": {"adapter_type": "duckdb"},
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
      "database": "dev",
      "schema": "main",
      "original_file_path": "models/broken.sql",
      "compiled_code": "SELECT a FROM t WHERE ("
    },
    "test.shop.not_null_orders_id": {"resource_type": "test", "name": "not_null_orders_id"},
    "model.shop.malformed": {"resource_type": "model", "name": 42}
  }
}`

func decodeManifest(t *testing.T, doc string) *core.Manifest {
	t.Helper()
	m, err := manifest.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	m.Path = "target/manifest.json"
	return m
}

func resultFor(t *testing.T, s *Summary, nodeID string) ModelResult {
	t.Helper()
	for _, r := range s.Models {
		if r.NodeID == nodeID {
			return r
		}
	}
	t.Fatalf("no result for %s", nodeID)
	return ModelResult{}
}

func TestGenerate_NoDatabase(t *testing.T) {
	out := t.TempDir()
	m := decodeManifest(t, ordersManifest)

	e := New(Config{
		OutputDir:            out,
		Workers:              2,
		DisableIntrospection: true,
		Logger:               testutil.NewTestLogger(t),
	})

	summary, err := e.Generate(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.ModelsTotal)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Partial)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.ParseFailures)
	assert.Contains(t, summary.IntrospectionError, "disabled")

	orders := resultFor(t, summary, "model.shop.orders")
	assert.Equal(t, StatusResolved, orders.Status)
	assert.Equal(t, IntrospectionUnavailable, orders.Introspection)
	assert.Equal(t, 2, orders.Columns)

	got := testutil.ReadFile(t, filepath.Join(out, "models", "marts", "orders_schema.yml"))
	assert.Equal(t, `version: 2
models:
  - name: orders
    columns:
      - name: id
        tests: [not_null, unique]
      - name: order_total
`, got)

	broken := resultFor(t, summary, "model.shop.broken")
	assert.Equal(t, StatusPartial, broken.Status)
	assert.NotEmpty(t, broken.ParseError)
	assert.Equal(t, 0, broken.Columns)
	assert.Contains(t, testutil.ReadFile(t, filepath.Join(out, "models", "broken_schema.yml")), "columns: []")
}

func TestGenerate_DuckDB(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "dev.duckdb")

	setup := duckdb.New(nil)
	require.NoError(t, setup.Connect(ctx, core.AdapterConfig{Path: dbPath}))
	_, err := setup.DB.ExecContext(ctx, `CREATE TABLE orders (id INTEGER, order_total DECIMAL(10,2))`)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	out := t.TempDir()
	e := New(Config{
		OutputDir:       out,
		Workers:         4,
		IncludeMetadata: true,
		Target:          core.AdapterConfig{Path: dbPath},
		Logger:          testutil.NewTestLogger(t),
	})

	summary, err := e.Generate(ctx, decodeManifest(t, ordersManifest))
	require.NoError(t, err)
	assert.Empty(t, summary.IntrospectionError)

	orders := resultFor(t, summary, "model.shop.orders")
	assert.Equal(t, StatusResolved, orders.Status)
	assert.Equal(t, IntrospectionOK, orders.Introspection)
	assert.Equal(t, 2, orders.Introspected)

	got := testutil.ReadFile(t, filepath.Join(out, "models", "marts", "orders_schema.yml"))
	assert.Contains(t, got, "      - name: id\n        data_type: INTEGER\n        tests: [not_null, unique]\n")
	assert.Contains(t, got, `      - name: order_total
        data_type: DECIMAL
        meta:
          numeric_precision: 10
          numeric_scale: 2
`)
	assert.Less(t, strings.Index(got, "name: id"), strings.Index(got, "name: order_total"))

	broken := resultFor(t, summary, "model.shop.broken")
	assert.Equal(t, StatusPartial, broken.Status)
	assert.Equal(t, IntrospectionNotFound, broken.Introspection)
}

func TestGenerate_RerunIsByteIdentical(t *testing.T) {
	out := t.TempDir()
	m := decodeManifest(t, ordersManifest)
	e := New(Config{OutputDir: out, DisableIntrospection: true})

	_, err := e.Generate(context.Background(), m)
	require.NoError(t, err)
	path := filepath.Join(out, "models", "marts", "orders_schema.yml")
	first := testutil.ReadFile(t, path)

	_, err = e.Generate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, first, testutil.ReadFile(t, path))
}

type stubAdapter struct {
	connectErr error
	fetchErr   error
	cols       []core.ColumnMetadata
}

func (s *stubAdapter) Connect(context.Context, core.AdapterConfig) error { return s.connectErr }

func (s *stubAdapter) FetchColumns(_ context.Context, loc core.TableLocation) ([]core.ColumnMetadata, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if loc.Table != "orders" {
		return nil, adapter.ErrTableNotFound
	}
	return s.cols, nil
}

func (s *stubAdapter) Close() error { return nil }

func TestGenerate_IntrospectionOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		stub       stubAdapter
		wantStatus ModelStatus
		wantIntro  IntrospectionStatus
		wantRunErr bool
	}{
		{
			name:       "relation found",
			stub:       stubAdapter{cols: []core.ColumnMetadata{{Name: "id", DataType: "INTEGER"}}},
			wantStatus: StatusResolved,
			wantIntro:  IntrospectionOK,
		},
		{
			name:       "connect failure is run level",
			stub:       stubAdapter{connectErr: errors.New("connection refused")},
			wantStatus: StatusResolved,
			wantIntro:  IntrospectionUnavailable,
			wantRunErr: true,
		},
		{
			name:       "query failure makes model partial",
			stub:       stubAdapter{fetchErr: errors.New("permission denied")},
			wantStatus: StatusPartial,
			wantIntro:  IntrospectionError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decodeManifest(t, ordersManifest)
			delete(m.Nodes, "model.shop.broken")

			stub := tt.stub
			e := New(Config{OutputDir: t.TempDir(), Workers: 2, Logger: testutil.NewTestLogger(t)})
			e.cfg.introspectorFactory = func(*slog.Logger) adapter.Adapter { return &stub }

			summary, err := e.Generate(context.Background(), m)
			require.NoError(t, err)

			orders := resultFor(t, summary, "model.shop.orders")
			assert.Equal(t, tt.wantStatus, orders.Status)
			assert.Equal(t, tt.wantIntro, orders.Introspection)
			if tt.wantRunErr {
				assert.Contains(t, summary.IntrospectionError, "connection refused")
			} else {
				assert.Empty(t, summary.IntrospectionError)
			}
		})
	}
}

func TestGenerate_DuplicateOutputPathWarns(t *testing.T) {
	const doc = `{
  "metadata": {"adapter_type": "duckdb"},
  "nodes": {
    "model.a.orders": {"resource_type": "model", "name": "orders", "original_file_path": "models/orders.sql", "compiled_code": "SELECT 1 AS a"},
    "model.b.orders": {"resource_type": "model", "name": "orders", "original_file_path": "models/orders.sql", "compiled_code": "SELECT 1 AS b"}
  }
}`
	logger, logs := testutil.NewBufferLogger()
	e := New(Config{OutputDir: t.TempDir(), DisableIntrospection: true, Logger: logger})

	summary, err := e.Generate(context.Background(), decodeManifest(t, doc))
	require.NoError(t, err)

	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "model.a.orders")
	assert.Contains(t, summary.Warnings[0], "model.b.orders")
	assert.Contains(t, logs.String(), "share output path")
	assert.Equal(t, 2, summary.Processed)
}

func TestGenerate_OutputFailureIsPerModel(t *testing.T) {
	out := t.TempDir()
	// A regular file where the marts directory should be blocks one model.
	testutil.WriteFile(t, out, filepath.Join("models", "marts"), "not a directory")

	e := New(Config{OutputDir: out, DisableIntrospection: true, Logger: testutil.NewTestLogger(t)})
	summary, err := e.Generate(context.Background(), decodeManifest(t, ordersManifest))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	orders := resultFor(t, summary, "model.shop.orders")
	assert.Equal(t, StatusFailed, orders.Status)
	assert.NotEmpty(t, orders.OutputError)

	_, statErr := os.Stat(filepath.Join(out, "models", "broken_schema.yml"))
	assert.NoError(t, statErr)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(Config{OutputDir: t.TempDir(), DisableIntrospection: true})
	summary, err := e.Generate(ctx, decodeManifest(t, ordersManifest))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 3, summary.Skipped)
}

func TestGenerate_RecordsRunHistory(t *testing.T) {
	store, err := state.Open(":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	e := New(Config{OutputDir: t.TempDir(), DisableIntrospection: true, Store: store})
	summary, err := e.Generate(context.Background(), decodeManifest(t, ordersManifest))
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)

	run, err := store.GetRun(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, "duckdb", run.Adapter)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 1, run.Partial)

	results, err := store.ListModelResults(summary.RunID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "model.shop.broken", results[0].NodeID)
	assert.Equal(t, state.ModelStatusPartial, results[0].Status)
}
