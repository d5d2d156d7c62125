package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapschema/internal/cli/config"
	"github.com/leapstack-labs/leapschema/internal/cli/output"
	"github.com/leapstack-labs/leapschema/internal/engine"
	"github.com/leapstack-labs/leapschema/pkg/manifest"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Watch    bool
	Debounce time.Duration
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{Debounce: 200 * time.Millisecond}

	cmd := &cobra.Command{
		Use:   "generate [MANIFEST]",
		Short: "Generate schema files from a dbt manifest",
		Long: `Generate one schema file per model in a dbt manifest.json.

Each file is written to <output-dir>/<model path without extension>_schema.yml.
Columns come from the manifest's declarations, the warehouse catalog and the
model's compiled SQL. The catalog adapter is chosen by the manifest's
metadata.adapter_type; connection details come from the configured target.

Models that cannot be fully resolved are still written and reported as
partial. The command fails only when the manifest itself cannot be read.`,
		Example: `  # Generate from the default manifest (target/manifest.json)
  leapschema generate

  # Explicit manifest and output directory
  leapschema generate target/manifest.json --output-dir schemas

  # Use the staging connection, names only
  leapschema generate --target staging --no-metadata

  # Regenerate whenever dbt rewrites the manifest
  leapschema generate --watch`,
		Aliases: []string{"gen"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts)
		},
	}

	cmd.Flags().String("manifest", "", "Path to manifest.json")
	cmd.Flags().String("output-dir", "", "Root directory for schema files")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent model tasks (default: number of CPUs)")
	cmd.Flags().Int("pool-size", 0, "Catalog connections per database (default: workers)")
	cmd.Flags().Bool("no-metadata", false, "Omit data types and precision metadata")
	cmd.Flags().Bool("no-introspect", false, "Do not query the warehouse catalog")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Regenerate when the manifest changes")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, opts *GenerateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	manifestPath := cfg.Manifest
	if len(args) == 1 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve manifest path: %w", err)
		}
		manifestPath = abs
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store := openStore(cfg, cmdCtx.Logger)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	engCfg := engineConfig(cfg, cmdCtx.Logger)
	if store != nil {
		engCfg.Store = store
	}
	eng := engine.New(engCfg)

	generate := func() error {
		return generateOnce(ctx, eng, cmdCtx.Renderer, manifestPath)
	}

	if err := generate(); err != nil {
		// In watch mode a bad manifest is reported and the watch continues;
		// dbt may be midway through rewriting it.
		if !opts.Watch || errors.Is(err, context.Canceled) {
			return err
		}
		cmdCtx.Renderer.Error(err.Error())
	}
	if !opts.Watch {
		return nil
	}

	cmdCtx.Renderer.Println("")
	cmdCtx.Renderer.Println(cmdCtx.Renderer.Styles().Muted.Render(
		fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", manifestPath)))

	err := watchFile(ctx, manifestPath, opts.Debounce, cmdCtx.Logger, func() {
		if err := generate(); err != nil && !errors.Is(err, context.Canceled) {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// generateOnce loads the manifest, runs the engine and renders the summary.
func generateOnce(ctx context.Context, eng *engine.Engine, r *output.Renderer, manifestPath string) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	summary, runErr := eng.Generate(ctx, m)
	if summary != nil {
		if err := renderSummary(r, summary); err != nil {
			return err
		}
	}
	return runErr
}

func engineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	return engine.Config{
		OutputDir:            cfg.OutputDir,
		Workers:              cfg.Workers,
		IncludeMetadata:      cfg.IncludeMetadata,
		Target:               cfg.Target.AdapterConfig(),
		DisableIntrospection: !cfg.Introspect,
		PoolSize:             cfg.PoolSize,
		Logger:               logger,
	}
}
