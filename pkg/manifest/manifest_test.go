package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapschema/pkg/core"
	"github.com/leapstack-labs/leapschema/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
  "metadata": {
    "dbt_version": "1.7.4",
    "generated_at": "2024-03-01T12:00:00Z",
    "adapter_type": "duckdb",
    "invocation_id": "abc"
  },
  "nodes": {
    "model.shop.orders": {
      "resource_type": "model",
      "name": "orders",
      "database": "dev",
      "schema": "main",
      "original_file_path": "models/marts/orders.sql",
      "compiled_code": "SELECT id, total AS order_total FROM raw_orders",
      "columns": {
        "zeta": {"name": "zeta", "tags": ["pii"]},
        "id": {"name": "id", "description": "Primary key", "data_type": "integer", "tags": []},
        "alpha": {"tags": null}
      }
    },
    "model.shop.customers": {
      "resource_type": "model",
      "name": "customers",
      "alias": "dim_customers",
      "original_file_path": "models/customers.sql",
      "compiled_sql": "SELECT 1 AS one"
    },
    "test.shop.not_null_orders_id": {
      "resource_type": "test",
      "name": "not_null_orders_id"
    },
    "seed.shop.raw": {"resource_type": "seed", "name": "raw"},
    "model.shop.broken": {"resource_type": "model", "name": 42},
    "model.shop.nameless": {"resource_type": "model"},
    "model.shop.bad_columns": {"resource_type": "model", "name": "bad", "columns": ["id"]},
    "model.shop.scalar": 7,
    "model.shop.legacy": {"name": "legacy", "original_file_path": "models/legacy.sql"}
  },
  "sources": {"source.shop.raw": {}}
}`

func TestDecode(t *testing.T) {
	m, err := manifest.Decode(strings.NewReader(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, core.ManifestMetadata{
		AdapterType: "duckdb",
		DbtVersion:  "1.7.4",
		GeneratedAt: "2024-03-01T12:00:00Z",
	}, m.Metadata)
	assert.Equal(t, core.AdapterDuckDB, m.Adapter())

	assert.Equal(t, []string{"model.shop.customers", "model.shop.legacy", "model.shop.orders"}, m.NodeIDs())

	orders := m.Nodes["model.shop.orders"]
	require.NotNil(t, orders)
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, core.TableLocation{Database: "dev", Schema: "main", Table: "orders"}, orders.Location())
	assert.Equal(t, "models/marts/orders.sql", orders.OriginalFilePath)
	assert.Equal(t, "SELECT id, total AS order_total FROM raw_orders", orders.CompiledCode)
	assert.Equal(t, []core.DeclaredColumn{
		{Name: "zeta", Tags: []string{"pii"}},
		{Name: "id", Description: "Primary key", DataType: "integer", Tags: []string{}},
		{Name: "alpha"},
	}, orders.Columns, "declared columns keep manifest order")

	customers := m.Nodes["model.shop.customers"]
	require.NotNil(t, customers)
	assert.Equal(t, "SELECT 1 AS one", customers.CompiledCode, "legacy compiled_sql is used")
	assert.Equal(t, "dim_customers", customers.RelationName())
	assert.Nil(t, customers.Columns)

	assert.Contains(t, m.Nodes, "model.shop.legacy", "id prefix decides when resource_type is absent")

	skipped := make(map[string]string)
	for _, s := range m.Skipped {
		skipped[s.NodeID] = s.Reason
	}
	assert.Len(t, skipped, 4)
	assert.Contains(t, skipped, "model.shop.broken")
	assert.Contains(t, skipped["model.shop.nameless"], "missing name")
	assert.Contains(t, skipped["model.shop.bad_columns"], "invalid columns")
	assert.Contains(t, skipped, "model.shop.scalar")
}

func TestDecode_InputErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "manifest"},
		{"array", "[]"},
		{"truncated", `{"nodes": {"model.a": {"name": "a"`},
		{"no nodes", `{"metadata": {}}`},
		{"nodes not object", `{"nodes": []}`},
		{"trailing data", `{"nodes": {}} {}`},
		{"bad metadata", `{"metadata": {"adapter_type": 3}, "nodes": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Decode(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecode_NoModels(t *testing.T) {
	m, err := manifest.Decode(strings.NewReader(`{"metadata": {"adapter_type": "bogus"}, "nodes": {}}`))
	require.NoError(t, err)
	assert.Empty(t, m.Nodes)
	assert.Equal(t, core.AdapterUnknown, m.Adapter())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

	m, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)
	assert.Len(t, m.Nodes, 3)
}

func TestLoad_InputError(t *testing.T) {
	dir := t.TempDir()

	_, err := manifest.Load(filepath.Join(dir, "missing.json"))
	var inputErr *manifest.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = manifest.Load(bad)
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, bad, inputErr.Path)
	assert.Contains(t, err.Error(), bad)
}

func TestNodeDecodeError(t *testing.T) {
	err := &manifest.NodeDecodeError{NodeID: "model.a", Err: assert.AnError}
	assert.Contains(t, err.Error(), "model.a")
	assert.ErrorIs(t, err, assert.AnError)
}
