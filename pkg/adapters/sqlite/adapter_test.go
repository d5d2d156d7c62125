package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapschema/pkg/adapter"
	"github.com/leapstack-labs/leapschema/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createDB writes a database file with the given DDL and returns its path.
func createDB(t *testing.T, ddl string) string {
	t.Helper()
	return createNamedDB(t, "warehouse.db", ddl)
}

func createNamedDB(t *testing.T, name, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	db, err := sql.Open("sqlite", fileDSN(path, "rwc"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return path
}

func TestAdapter_FetchColumns(t *testing.T) {
	path := createDB(t, `
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			order_total DECIMAL(10,2),
			status VARCHAR(20),
			note
		)`)

	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = adp.Close() }()

	cols, err := adp.FetchColumns(ctx, core.TableLocation{Database: "warehouse", Schema: "main", Table: "orders"})
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "INTEGER", cols[0].DataType)
	assert.Equal(t, 1, cols[0].Position)

	assert.Equal(t, "order_total", cols[1].Name)
	assert.Equal(t, "DECIMAL", cols[1].DataType)
	require.NotNil(t, cols[1].NumericPrecision)
	require.NotNil(t, cols[1].NumericScale)
	assert.Equal(t, int64(10), *cols[1].NumericPrecision)
	assert.Equal(t, int64(2), *cols[1].NumericScale)

	assert.Equal(t, "VARCHAR", cols[2].DataType)
	require.NotNil(t, cols[2].CharMaxLength)
	assert.Equal(t, int64(20), *cols[2].CharMaxLength)

	assert.Equal(t, "note", cols[3].Name)
	assert.Empty(t, cols[3].DataType)
	assert.Equal(t, 4, cols[3].Position)
}

func TestFileDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/warehouse.db", "file:/data/warehouse.db?mode=ro"},
		{"warehouse.db", "file:warehouse.db?mode=ro"},
		{"/data/dev?v=2#x%.db", "file:/data/dev%3Fv=2%23x%25.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, fileDSN(tt.path, "ro"))
		})
	}
}

func TestAdapter_ConnectPathWithURISyntax(t *testing.T) {
	path := createNamedDB(t, "dev?v=2#x.db", `CREATE TABLE orders (id INTEGER)`)
	_, err := os.Stat(path)
	require.NoError(t, err, "database must be created at the literal path")

	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = adp.Close() }()

	cols, err := adp.FetchColumns(ctx, core.TableLocation{Table: "orders"})
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "id", cols[0].Name)
}

func TestAdapter_FetchColumnsNotFound(t *testing.T) {
	path := createDB(t, `CREATE TABLE orders (id INTEGER)`)

	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = adp.Close() }()

	tests := []struct {
		name string
		loc  core.TableLocation
	}{
		{"missing table", core.TableLocation{Table: "customers"}},
		{"unknown schema", core.TableLocation{Schema: "analytics", Table: "orders"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adp.FetchColumns(ctx, tt.loc)
			assert.ErrorIs(t, err, adapter.ErrTableNotFound)
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	_, err := New(nil).FetchColumns(context.Background(), core.TableLocation{Table: "t"})
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	assert.NoError(t, New(nil).Close())
}

func TestAdapter_Registered(t *testing.T) {
	a, err := adapter.NewAdapter(core.AdapterConfig{Type: "sqlite"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Adapter{}, a)
}
