package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapschema/pkg/adapter"
	"github.com/leapstack-labs/leapschema/pkg/core"
)

func init() {
	adapter.Register(core.AdapterSQLite.String(), func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
