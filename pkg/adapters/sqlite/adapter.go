// Package sqlite provides a SQLite catalog adapter backed by the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/leapstack-labs/leapschema/pkg/adapter"

	_ "modernc.org/sqlite" // sqlite driver
)

// defaultSchema is the name SQLite gives the primary database.
const defaultSchema = "main"

// columnsQuery reads pragma_table_info in the shape FetchColumnsCommon
// scans. SQLite has no separate precision columns; they are recovered from
// the declared type text.
const columnsQuery = `
	SELECT name, type, NULL, NULL, NULL, cid + 1
	FROM pragma_table_info(?, ?)
	ORDER BY cid`

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect opens the database file at cfg.Path read-only, or an in-memory
// database when the path is empty.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := ":memory:"
	if cfg.Path != "" && cfg.Path != ":memory:" {
		dsn = fileDSN(cfg.Path, "ro")
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", cfg.Path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// fileDSN builds a SQLite URI for path opened in mode. The path is escaped so
// '?', '#' and '%' in file names are not read as URI syntax.
func fileDSN(path, mode string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), OmitHost: true, RawQuery: "mode=" + mode}
	return u.String()
}

// FetchColumns returns the columns of loc from pragma_table_info. loc.Schema
// names an attached database; loc.Database is not used by SQLite.
func (a *Adapter) FetchColumns(ctx context.Context, loc adapter.Location) ([]adapter.ColumnMetadata, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	schema := loc.Schema
	if schema == "" {
		schema = defaultSchema
	}

	attached, err := a.hasSchema(ctx, schema)
	if err != nil {
		return nil, err
	}
	if !attached {
		return nil, fmt.Errorf("%w: %s (no attached database %q)", adapter.ErrTableNotFound, loc, schema)
	}

	return a.FetchColumnsCommon(ctx, loc, columnsQuery, loc.Table, schema)
}

// hasSchema reports whether schema is an attached database name.
func (a *Adapter) hasSchema(ctx context.Context, schema string) (bool, error) {
	var n int
	err := a.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_database_list WHERE name = ?`, schema).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to list sqlite databases: %w", err)
	}
	return n > 0, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
