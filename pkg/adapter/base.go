package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapschema/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and column fetching implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ColumnsQuery builds an information_schema.columns query for loc.
// The schema and catalog filters are only applied when set. placeholder
// formats the n-th bind parameter (? or $n).
func ColumnsQuery(loc core.TableLocation, placeholder func(n int) string) (string, []any) {
	args := []any{loc.Table}
	where := []string{"table_name = " + placeholder(1)}
	if loc.Schema != "" {
		args = append(args, loc.Schema)
		where = append(where, "table_schema = "+placeholder(len(args)))
	}
	if loc.Database != "" {
		args = append(args, loc.Database)
		where = append(where, "table_catalog = "+placeholder(len(args)))
	}

	query := `
		SELECT
			column_name,
			data_type,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			ordinal_position
		FROM information_schema.columns
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ordinal_position`
	return query, args
}

// QuestionPlaceholder formats ? bind parameters.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder formats $n bind parameters.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// FetchColumnsCommon runs an information_schema style query and scans
// (name, data_type, char_max_length, numeric_precision, numeric_scale, position)
// rows. Data types are normalized with SplitDataType. Zero rows yields an
// error wrapping ErrTableNotFound.
func (b *BaseSQLAdapter) FetchColumnsCommon(ctx context.Context, loc core.TableLocation, query string, args ...any) ([]core.ColumnMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnMetadata
	for rows.Next() {
		var (
			col                  core.ColumnMetadata
			charLen, prec, scale sql.NullInt64
		)
		if err := rows.Scan(&col.Name, &col.DataType, &charLen, &prec, &scale, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.CharMaxLength = nullInt(charLen)
		col.NumericPrecision = nullInt(prec)
		col.NumericScale = nullInt(scale)
		columns = append(columns, NormalizeColumn(col))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, loc)
	}

	if b.Logger != nil {
		b.Logger.Debug("fetched columns", slog.String("table", loc.String()), slog.Int("columns", len(columns)))
	}
	return columns, nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// typeParams matches a type name followed by one or two numeric parameters,
// as in DECIMAL(10,2) or VARCHAR(255).
var typeParams = regexp.MustCompile(`^\s*([^()]*?)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)\s*$`)

// SplitDataType splits a type with a purely numeric parameter suffix into the
// bare type name and its parameters. Types without such a suffix, like
// STRUCT(a INTEGER) or INTEGER, are returned unchanged with nil parameters.
func SplitDataType(dataType string) (base string, first, second *int64) {
	m := typeParams.FindStringSubmatch(dataType)
	if m == nil || m[1] == "" {
		return strings.TrimSpace(dataType), nil, nil
	}
	first = parseInt(m[2])
	if m[3] != "" {
		second = parseInt(m[3])
	}
	return m[1], first, second
}

func parseInt(s string) *int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// NormalizeColumn strips numeric parameters from col.DataType and uses them
// to fill length, precision and scale fields the catalog left empty.
func NormalizeColumn(col core.ColumnMetadata) core.ColumnMetadata {
	base, first, second := SplitDataType(col.DataType)
	col.DataType = base
	if first == nil {
		return col
	}

	if isCharacterType(base) {
		if col.CharMaxLength == nil {
			col.CharMaxLength = first
		}
		return col
	}

	if col.NumericPrecision == nil {
		col.NumericPrecision = first
	}
	if col.NumericScale == nil && second != nil {
		col.NumericScale = second
	}
	return col
}

func isCharacterType(base string) bool {
	upper := strings.ToUpper(base)
	for _, prefix := range []string{"CHAR", "VARCHAR", "CHARACTER", "NCHAR", "NVARCHAR", "TEXT", "STRING", "BPCHAR"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
