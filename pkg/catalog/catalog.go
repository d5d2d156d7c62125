// Package catalog introspects model relations in a live database for one
// run.
//
// An Introspector is built once from the manifest's adapter kind. When the
// kind has no adapter, or the first connection attempt fails, the source is
// marked unavailable for the rest of the run and every later call returns an
// error wrapping ErrUnavailable without touching the database. A missing
// relation is reported per model with adapter.ErrTableNotFound.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapschema/pkg/adapter"
	"github.com/leapstack-labs/leapschema/pkg/core"
)

// ErrUnavailable marks introspection as unavailable for the whole run.
var ErrUnavailable = errors.New("catalog introspection unavailable")

// Options configures an Introspector.
type Options struct {
	// Kind is the adapter kind named by the manifest.
	Kind core.AdapterKind

	// Target holds connection details. Its Type is ignored; Kind decides.
	Target core.AdapterConfig

	// PoolSize bounds open connections per database target.
	PoolSize int

	// Disabled turns introspection off for the run.
	Disabled bool

	// Factory overrides the registered adapter for Kind.
	Factory adapter.Factory

	Logger *slog.Logger
}

// Introspector fetches catalog columns through pooled adapters.
type Introspector struct {
	kind     core.AdapterKind
	target   core.AdapterConfig
	factory  adapter.Factory
	poolSize int
	logger   *slog.Logger

	mu    sync.Mutex
	pools map[string]*adapter.Pool
	cause error

	reportOnce sync.Once
}

// New creates an Introspector. It never fails: an unsupported kind yields an
// Introspector that reports itself unavailable.
func New(opts Options) *Introspector {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	target := opts.Target
	target.Type = opts.Kind.String()

	i := &Introspector{
		kind:     opts.Kind,
		target:   target,
		factory:  opts.Factory,
		poolSize: opts.PoolSize,
		logger:   logger,
		pools:    make(map[string]*adapter.Pool),
	}

	switch {
	case opts.Disabled:
		i.markUnavailable(errors.New("disabled by configuration"))
	case i.factory != nil:
	case opts.Kind == core.AdapterUnknown:
		i.markUnavailable(errors.New("manifest does not name a known adapter type"))
	default:
		factory, ok := adapter.Get(target.Type)
		if !ok {
			i.markUnavailable(&adapter.UnknownAdapterError{Type: target.Type, Available: adapter.ListAdapters()})
			break
		}
		i.factory = factory
	}
	return i
}

// Kind returns the adapter kind the Introspector was built for.
func (i *Introspector) Kind() core.AdapterKind {
	return i.kind
}

// Err returns the reason introspection is unavailable, or nil.
func (i *Introspector) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cause
}

// Available reports whether introspection can still be attempted.
func (i *Introspector) Available() bool {
	return i.Err() == nil
}

// Columns returns the catalog columns of loc in ordinal order.
func (i *Introspector) Columns(ctx context.Context, loc core.TableLocation) ([]core.ColumnMetadata, error) {
	if err := i.Err(); err != nil {
		return nil, err
	}

	pool := i.pool(loc)
	a, err := pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		i.markUnavailable(err)
		return nil, i.Err()
	}
	defer pool.Release(a)

	cols, err := a.FetchColumns(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", loc, err)
	}
	return cols, nil
}

// Close closes every pooled connection.
func (i *Introspector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var errs []error
	for key, pool := range i.pools {
		if err := pool.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(i.pools, key)
	}
	return errors.Join(errs...)
}

// pool returns the pool serving loc, creating it on first use. PostgreSQL
// connects to one database at a time, so each database gets its own pool;
// the other backends reach every catalog through one connection.
func (i *Introspector) pool(loc core.TableLocation) *adapter.Pool {
	cfg := i.target
	key := ""
	if i.kind == core.AdapterPostgres && loc.Database != "" && !strings.EqualFold(loc.Database, cfg.Database) {
		cfg.Database = loc.Database
		key = loc.Database
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	p, ok := i.pools[key]
	if !ok {
		p = adapter.NewPool(cfg, i.factory, i.poolSize, i.logger)
		i.pools[key] = p
	}
	return p
}

// markUnavailable records the first failure and reports it once.
func (i *Introspector) markUnavailable(cause error) {
	i.mu.Lock()
	if i.cause == nil {
		i.cause = fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}
	err := i.cause
	i.mu.Unlock()

	i.reportOnce.Do(func() {
		i.logger.Warn("catalog introspection unavailable for this run; using declared and parsed columns only",
			slog.String("adapter", i.kind.String()),
			slog.String("error", err.Error()))
	})
}
