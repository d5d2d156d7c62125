package core

import "strings"

// AdapterKind is the closed set of database backends a manifest can name.
type AdapterKind string

// Known adapter kinds. Only some have an adapter implementation; the rest are
// recognized so they can be reported as unsupported rather than unknown.
const (
	AdapterUnknown    AdapterKind = ""
	AdapterDuckDB     AdapterKind = "duckdb"
	AdapterPostgres   AdapterKind = "postgres"
	AdapterSQLite     AdapterKind = "sqlite"
	AdapterSnowflake  AdapterKind = "snowflake"
	AdapterDatabricks AdapterKind = "databricks"
	AdapterBigQuery   AdapterKind = "bigquery"
)

var adapterKinds = map[string]AdapterKind{
	"duckdb":     AdapterDuckDB,
	"postgres":   AdapterPostgres,
	"postgresql": AdapterPostgres,
	"sqlite":     AdapterSQLite,
	"snowflake":  AdapterSnowflake,
	"databricks": AdapterDatabricks,
	"bigquery":   AdapterBigQuery,
}

// ParseAdapterKind maps a manifest adapter_type to an AdapterKind.
// Unrecognized values map to AdapterUnknown.
func ParseAdapterKind(s string) AdapterKind {
	if k, ok := adapterKinds[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k
	}
	return AdapterUnknown
}

// String returns the adapter name, or "unknown".
func (k AdapterKind) String() string {
	if k == AdapterUnknown {
		return "unknown"
	}
	return string(k)
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// TableLocation identifies a relation in a database catalog.
type TableLocation struct {
	Database string
	Schema   string
	Table    string
}

// String returns the dotted form of the location, skipping empty parts.
func (l TableLocation) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Database, l.Schema, l.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// ColumnMetadata is one column as reported by a database catalog.
type ColumnMetadata struct {
	Name             string
	DataType         string
	CharMaxLength    *int64
	NumericPrecision *int64
	NumericScale     *int64
	Position         int
}
