// Package adapter provides the database adapter contract used for catalog
// introspection.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with this package from init().
package adapter

import (
	"context"
	"errors"

	"github.com/leapstack-labs/leapschema/pkg/core"
)

// Type aliases for the core types adapters exchange.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Location is an alias for core.TableLocation.
	Location = core.TableLocation

	// ColumnMetadata is an alias for core.ColumnMetadata.
	ColumnMetadata = core.ColumnMetadata
)

var (
	// ErrNotConnected is returned when an adapter is used before Connect.
	ErrNotConnected = errors.New("database connection not established")

	// ErrTableNotFound is returned by FetchColumns when the catalog has no
	// columns for the requested relation, typically because the model has not
	// been materialized yet.
	ErrTableNotFound = errors.New("table not found")
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// FetchColumns returns the columns of loc ordered by ordinal position.
	// It returns an error wrapping ErrTableNotFound when loc has no columns.
	FetchColumns(ctx context.Context, loc Location) ([]ColumnMetadata, error)

	// Close closes the database connection and releases resources.
	Close() error
}

// ConnectionLimiter is implemented by adapters whose backend allows only a
// bounded number of concurrent connections per target.
type ConnectionLimiter interface {
	MaxConnections() int
}
