// Package engine runs schema generation over a manifest.
//
// Every model is processed as an independent task on a bounded worker pool:
// extract parsed columns, introspect the catalog, resolve, and emit. Tasks
// share only the read-only manifest and the catalog Introspector; each
// writes its own slot of the result slice.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapschema/internal/state"
	"github.com/leapstack-labs/leapschema/pkg/adapter"
	"github.com/leapstack-labs/leapschema/pkg/catalog"
	"github.com/leapstack-labs/leapschema/pkg/core"
	"github.com/leapstack-labs/leapschema/pkg/emitter"
	"github.com/leapstack-labs/leapschema/pkg/extract"
	"github.com/leapstack-labs/leapschema/pkg/resolver"
)

// Config holds engine configuration.
type Config struct {
	// OutputDir is the root directory for schema files.
	OutputDir string
	// Workers bounds concurrent model tasks. Zero uses GOMAXPROCS.
	Workers int
	// IncludeMetadata writes data types and precision metadata.
	IncludeMetadata bool
	// Target holds catalog connection details. The adapter type always
	// comes from the manifest.
	Target core.AdapterConfig
	// DisableIntrospection skips the catalog source entirely.
	DisableIntrospection bool
	// PoolSize bounds catalog connections per database. Zero uses Workers.
	PoolSize int
	// Store records run history (optional).
	Store state.Store
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger

	// introspectorFactory overrides the registered adapter in tests.
	introspectorFactory adapter.Factory
}

// Engine orchestrates schema generation.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = cfg.Workers
	}
	return &Engine{cfg: cfg, logger: logger}
}

// task is one model scheduled for processing.
type task struct {
	node       *core.Node
	outputPath string
}

// Generate processes every model in m and writes its schema file.
//
// Per-model failures are recorded in the summary and never abort the run.
// The returned error is non-nil only when ctx is cancelled; the summary is
// still returned and covers the models that finished.
func (e *Engine) Generate(ctx context.Context, m *core.Manifest) (*Summary, error) {
	start := time.Now()
	kind := m.Adapter()

	e.logger.Info("starting schema generation",
		slog.String("manifest", m.Path),
		slog.String("adapter", kind.String()),
		slog.Int("models", len(m.Nodes)),
		slog.Int("workers", e.cfg.Workers))

	for _, s := range m.Skipped {
		e.logger.Warn("skipping malformed node", slog.String("node", s.NodeID), slog.String("reason", s.Reason))
	}

	em := emitter.New(emitter.Options{
		OutputDir:       e.cfg.OutputDir,
		IncludeMetadata: e.cfg.IncludeMetadata,
		Logger:          e.logger,
	})

	tasks := make([]task, 0, len(m.Nodes))
	for _, id := range m.NodeIDs() {
		node := m.Nodes[id]
		tasks = append(tasks, task{node: node, outputPath: em.OutputPath(node)})
	}

	summary := &Summary{
		Adapter:     kind,
		ModelsTotal: len(tasks) + len(m.Skipped),
		Skipped:     len(m.Skipped),
		Warnings:    duplicateOutputWarnings(tasks),
	}
	for _, w := range summary.Warnings {
		e.logger.Warn(w)
	}

	var intro *catalog.Introspector
	if len(tasks) > 0 {
		intro = catalog.New(catalog.Options{
			Kind:     kind,
			Target:   e.cfg.Target,
			PoolSize: e.cfg.PoolSize,
			Disabled: e.cfg.DisableIntrospection,
			Factory:  e.cfg.introspectorFactory,
			Logger:   e.logger,
		})
		defer func() {
			if err := intro.Close(); err != nil {
				e.logger.Warn("failed to close catalog connections", slog.String("error", err.Error()))
			}
		}()
	}

	run := e.createRun(m, kind)
	if run != nil {
		summary.RunID = run.ID
	}

	results := make([]ModelResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = e.processModel(ctx, intro, em, t)
			return nil
		})
	}
	_ = g.Wait()

	summary.Models = results
	summary.tally()
	if intro != nil {
		if err := intro.Err(); err != nil {
			summary.IntrospectionError = err.Error()
		}
	}
	summary.Duration = time.Since(start)

	runErr := ctx.Err()
	e.completeRun(run, summary, runErr)

	e.logger.Info("schema generation finished",
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("partial", summary.Partial),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))

	return summary, runErr
}

// processModel runs extraction, introspection, resolution and emission for
// one model. It never returns an error; outcomes are recorded on the result.
func (e *Engine) processModel(ctx context.Context, intro *catalog.Introspector, em *emitter.Emitter, t task) ModelResult {
	start := time.Now()
	node := t.node
	res := ModelResult{
		NodeID:     node.ID,
		ModelName:  node.Name,
		OutputPath: t.outputPath,
		Declared:   len(node.Columns),
	}
	logger := e.logger.With(slog.String("model", node.Name))

	if err := ctx.Err(); err != nil {
		res.Status = StatusCancelled
		res.Introspection = IntrospectionSkipped
		return res
	}

	var parsed []string
	if node.CompiledCode != "" {
		cols, err := extract.Extract(node.CompiledCode)
		if err != nil {
			res.ParseError = err.Error()
			logger.Warn("could not parse compiled code; using other sources", slog.String("error", err.Error()))
		}
		parsed = cols
	}
	res.Parsed = len(parsed)

	introspected, status, err := e.introspect(ctx, intro, node)
	res.Introspection = status
	res.Introspected = len(introspected)
	if err != nil && status == IntrospectionError {
		res.IntrospectionError = err.Error()
		logger.Warn("catalog introspection failed", slog.String("error", err.Error()))
	}
	if status == IntrospectionNotFound {
		logger.Debug("relation not found in catalog", slog.String("relation", node.Location().String()))
	}

	schema := resolver.Resolve(resolver.Input{
		Node:         node,
		OutputPath:   t.outputPath,
		Introspected: introspected,
		Parsed:       parsed,
	})
	res.Columns = len(schema.Columns)

	if err := em.Emit(ctx, schema); err != nil {
		res.Status = StatusFailed
		res.OutputError = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Status = StatusCancelled
		} else {
			logger.Error("failed to write schema", slog.String("error", err.Error()))
		}
		res.Duration = time.Since(start)
		return res
	}

	res.Status = StatusResolved
	if res.ParseError != "" || status == IntrospectionNotFound || status == IntrospectionError {
		res.Status = StatusPartial
	}
	res.Duration = time.Since(start)
	logger.Debug("model resolved", slog.Int("columns", res.Columns), slog.String("status", string(res.Status)))
	return res
}

// introspect fetches catalog columns for node and classifies the outcome.
func (e *Engine) introspect(ctx context.Context, intro *catalog.Introspector, node *core.Node) ([]core.ColumnMetadata, IntrospectionStatus, error) {
	if intro == nil || !intro.Available() {
		return nil, IntrospectionUnavailable, nil
	}

	cols, err := intro.Columns(ctx, node.Location())
	switch {
	case err == nil:
		return cols, IntrospectionOK, nil
	case errors.Is(err, adapter.ErrTableNotFound):
		return nil, IntrospectionNotFound, err
	case errors.Is(err, catalog.ErrUnavailable):
		return nil, IntrospectionUnavailable, err
	case ctx.Err() != nil:
		return nil, IntrospectionSkipped, err
	default:
		return nil, IntrospectionError, err
	}
}

// duplicateOutputWarnings reports models that map to the same output file.
// The last model written wins.
func duplicateOutputWarnings(tasks []task) []string {
	byPath := make(map[string][]string)
	var order []string
	for _, t := range tasks {
		if _, ok := byPath[t.outputPath]; !ok {
			order = append(order, t.outputPath)
		}
		byPath[t.outputPath] = append(byPath[t.outputPath], t.node.ID)
	}

	var warnings []string
	for _, p := range order {
		if ids := byPath[p]; len(ids) > 1 {
			warnings = append(warnings, fmt.Sprintf("models %v share output path %s; last writer wins", ids, p))
		}
	}
	return warnings
}

func (e *Engine) createRun(m *core.Manifest, kind core.AdapterKind) *state.Run {
	if e.cfg.Store == nil {
		return nil
	}
	run, err := e.cfg.Store.CreateRun(m.Path, kind.String())
	if err != nil {
		e.logger.Warn("failed to record run; continuing without history", slog.String("error", err.Error()))
		return nil
	}
	e.logger.Debug("created run", slog.String("run_id", run.ID))
	return run
}

func (e *Engine) completeRun(run *state.Run, s *Summary, runErr error) {
	if run == nil {
		return
	}

	records := make([]state.ModelResult, 0, len(s.Models))
	for _, r := range s.Models {
		if r.Status == StatusCancelled {
			continue
		}
		records = append(records, r.record(run.ID))
	}
	if err := e.cfg.Store.RecordModelResults(records); err != nil {
		e.logger.Warn("failed to record model results", slog.String("error", err.Error()))
	}

	status := state.RunStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = state.RunStatusCancelled
		errMsg = runErr.Error()
	}
	if err := e.cfg.Store.CompleteRun(run.ID, status, s.counts(), errMsg); err != nil {
		e.logger.Warn("failed to complete run", slog.String("error", err.Error()))
	}
}
