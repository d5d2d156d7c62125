package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapschema/pkg/adapter"
	"github.com/leapstack-labs/leapschema/pkg/core"
)

func init() {
	adapter.Register(core.AdapterDuckDB.String(), func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
