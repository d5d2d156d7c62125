package emitter_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leapstack-labs/leapschema/pkg/core"
	"github.com/leapstack-labs/leapschema/pkg/emitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func int64p(v int64) *int64 { return &v }

type parsedDoc struct {
	Version int `yaml:"version"`
	Models  []struct {
		Name    string `yaml:"name"`
		Columns []struct {
			Name     string         `yaml:"name"`
			DataType string         `yaml:"data_type"`
			Tests    []string       `yaml:"tests"`
			Tags     []string       `yaml:"tags"`
			Meta     map[string]int `yaml:"meta"`
		} `yaml:"columns"`
	} `yaml:"models"`
}

func ordersSchema() core.ResolvedModelSchema {
	return core.ResolvedModelSchema{
		NodeID:    "model.shop.orders",
		ModelName: "orders",
		Columns: []core.ResolvedColumn{
			{Name: "id", Tests: []string{"not_null", "unique"}, Tags: []string{"pk"}, DataType: "INTEGER", Source: core.SourceDeclared},
			{Name: "order_total", DataType: "DECIMAL", NumericPrecision: int64p(10), NumericScale: int64p(2), Source: core.SourceIntrospected},
			{Name: "status", Source: core.SourceParsed},
		},
	}
}

func TestOutputPath(t *testing.T) {
	e := emitter.New(emitter.Options{OutputDir: "out"})

	tests := []struct {
		name string
		node core.Node
		want string
	}{
		{
			name: "extension replaced",
			node: core.Node{Name: "orders", OriginalFilePath: "models/marts/orders.sql"},
			want: filepath.Join("out", "models", "marts", "orders_schema.yml"),
		},
		{
			name: "no extension",
			node: core.Node{Name: "orders", OriginalFilePath: "models/orders"},
			want: filepath.Join("out", "models", "orders_schema.yml"),
		},
		{
			name: "only last extension",
			node: core.Node{Name: "orders", OriginalFilePath: "models/orders.v2.sql"},
			want: filepath.Join("out", "models", "orders.v2_schema.yml"),
		},
		{
			name: "windows separators",
			node: core.Node{Name: "orders", OriginalFilePath: `models\staging\stg_orders.sql`},
			want: filepath.Join("out", "models", "staging", "stg_orders_schema.yml"),
		},
		{
			name: "missing source path uses model name",
			node: core.Node{Name: "orders"},
			want: filepath.Join("out", "orders_schema.yml"),
		},
		{
			name: "parent traversal stays inside output dir",
			node: core.Node{Name: "orders", OriginalFilePath: "../../etc/orders.sql"},
			want: filepath.Join("out", "etc", "orders_schema.yml"),
		},
		{
			name: "absolute path stays inside output dir",
			node: core.Node{Name: "orders", OriginalFilePath: "/abs/models/orders.sql"},
			want: filepath.Join("out", "abs", "models", "orders_schema.yml"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.OutputPath(&tt.node))
		})
	}
}

func TestRender_WithMetadata(t *testing.T) {
	e := emitter.New(emitter.Options{IncludeMetadata: true})

	data, err := e.Render(ordersSchema())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "version: 2\n")
	assert.Contains(t, out, "tests: [not_null, unique]")
	assert.Contains(t, out, "tags: [pk]")

	var doc parsedDoc
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.Version)
	require.Len(t, doc.Models, 1)
	assert.Equal(t, "orders", doc.Models[0].Name)

	cols := doc.Models[0].Columns
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "INTEGER", cols[0].DataType)
	assert.Equal(t, []string{"not_null", "unique"}, cols[0].Tests)
	assert.Nil(t, cols[0].Meta)

	assert.Equal(t, "order_total", cols[1].Name)
	assert.Equal(t, "DECIMAL", cols[1].DataType)
	assert.Empty(t, cols[1].Tests)
	assert.Equal(t, map[string]int{"numeric_precision": 10, "numeric_scale": 2}, cols[1].Meta)

	assert.Equal(t, "status", cols[2].Name)
	assert.Empty(t, cols[2].DataType)
	assert.Empty(t, cols[2].Tests)
	assert.Empty(t, cols[2].Tags)
}

func TestRender_WithoutMetadata(t *testing.T) {
	e := emitter.New(emitter.Options{IncludeMetadata: false})

	data, err := e.Render(ordersSchema())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "data_type")
	assert.NotContains(t, string(data), "meta")
	assert.Contains(t, string(data), "tests: [not_null, unique]")
}

func TestRender_EmptyColumns(t *testing.T) {
	e := emitter.New(emitter.Options{})

	data, err := e.Render(core.ResolvedModelSchema{ModelName: "broken"})
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Models, 1, "model entry must appear even with no columns")
	assert.Equal(t, "broken", doc.Models[0].Name)
	assert.Empty(t, doc.Models[0].Columns)
	assert.Contains(t, string(data), "columns: []")
}

func TestRender_Deterministic(t *testing.T) {
	e := emitter.New(emitter.Options{IncludeMetadata: true})
	a, err := e.Render(ordersSchema())
	require.NoError(t, err)
	b, err := e.Render(ordersSchema())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	e := emitter.New(emitter.Options{OutputDir: dir, IncludeMetadata: true})

	schema := ordersSchema()
	schema.OutputPath = e.OutputPath(&core.Node{Name: "orders", OriginalFilePath: "models/marts/orders.sql"})

	require.NoError(t, e.Emit(context.Background(), schema))
	first, err := os.ReadFile(schema.OutputPath)
	require.NoError(t, err)

	want, err := e.Render(schema)
	require.NoError(t, err)
	assert.Equal(t, want, first)

	// Re-emitting into an existing directory is fine and byte-identical.
	require.NoError(t, e.Emit(context.Background(), schema))
	second, err := os.ReadFile(schema.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(schema.OutputPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestEmit_ConcurrentSamePath(t *testing.T) {
	dir := t.TempDir()
	e := emitter.New(emitter.Options{OutputDir: dir})
	target := filepath.Join(dir, "models", "dup_schema.yml")

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			schema := core.ResolvedModelSchema{
				ModelName:  fmt.Sprintf("model_%d", i),
				OutputPath: target,
				Columns:    []core.ResolvedColumn{{Name: "id"}},
			}
			assert.NoError(t, e.Emit(context.Background(), schema))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var doc parsedDoc
	require.NoError(t, yaml.Unmarshal(data, &doc), "file must be a complete document")
	require.Len(t, doc.Models, 1)
}

func TestEmit_OutputError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "models")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o600))

	e := emitter.New(emitter.Options{OutputDir: dir})
	schema := core.ResolvedModelSchema{
		ModelName:  "orders",
		OutputPath: filepath.Join(blocker, "orders_schema.yml"),
	}

	err := e.Emit(context.Background(), schema)
	var outErr *emitter.OutputError
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, "create directory", outErr.Op)
}

func TestEmit_Cancelled(t *testing.T) {
	e := emitter.New(emitter.Options{OutputDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Emit(ctx, ordersSchema()), context.Canceled)
}
