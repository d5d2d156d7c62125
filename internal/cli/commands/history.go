package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapschema/internal/cli/output"
	"github.com/leapstack-labs/leapschema/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show past generate runs",
		Long: `Show recorded generate runs, newest first.

With a run ID, show the per-model results of that run.`,
		Example: `  # Last 20 runs
  leapschema history

  # Models of one run, as JSON
  leapschema history 3f1c9a52-0b7e-4c1e-9a55-0c4f1f3f2b11 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	if cfg.NoState {
		return errors.New("run history is disabled (--no-state)")
	}

	store, err := state.Open(cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	r := cmdCtx.Renderer
	if len(args) == 1 {
		return showRun(r, store, args[0])
	}

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(runsJSON(runs))
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Runs (%d)", len(runs))))
		r.Println("")
		if len(runs) > 0 {
			runsTable(r, runs).RenderMarkdown()
		}
	default:
		if len(runs) == 0 {
			r.Println(r.Styles().Muted.Render("No runs recorded yet"))
			return nil
		}
		t := runsTable(r, runs)
		t.SetStyle(table.StyleLight)
		t.Render()
	}
	return nil
}

func runsTable(r *output.Renderer, runs []*state.Run) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Adapter", "Models", "Written", "Partial", "Failed", "Skipped"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.Adapter,
			run.ModelsTotal,
			run.Processed,
			run.Partial,
			run.Failed,
			run.Skipped,
		})
	}
	return t
}

func showRun(r *output.Renderer, store state.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", id, err)
	}
	results, err := store.ListModelResults(id)
	if err != nil {
		return fmt.Errorf("failed to list models for run %s: %w", id, err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := runJSON(run)
		out.Models = modelsJSON(results)
		return r.JSON(out)
	}

	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Manifest", run.ManifestPath))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.DateTime)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Model", "Status", "Columns", "Declared", "Introspected", "Parsed", "Introspection", "Duration"})
	for _, m := range results {
		t.AppendRow(table.Row{
			m.ModelName, m.Status, m.Columns, m.Declared, m.Introspected, m.Parsed,
			m.Introspection, m.Duration.Round(time.Millisecond),
		})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
		return nil
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

type runOutput struct {
	ID           string        `json:"id"`
	ManifestPath string        `json:"manifest_path"`
	Adapter      string        `json:"adapter"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	ModelsTotal  int           `json:"models_total"`
	Processed    int           `json:"processed"`
	Skipped      int           `json:"skipped"`
	Partial      int           `json:"partial"`
	Failed       int           `json:"failed"`
	Error        string        `json:"error,omitempty"`
	Models       []modelOutput `json:"models,omitempty"`
}

type modelOutput struct {
	NodeID        string `json:"node_id"`
	Model         string `json:"model"`
	OutputPath    string `json:"output_path"`
	Status        string `json:"status"`
	Columns       int    `json:"columns"`
	Introspection string `json:"introspection"`
	ParseError    string `json:"parse_error,omitempty"`
	OutputError   string `json:"output_error,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

func runJSON(run *state.Run) runOutput {
	return runOutput{
		ID:           run.ID,
		ManifestPath: run.ManifestPath,
		Adapter:      run.Adapter,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
		ModelsTotal:  run.ModelsTotal,
		Processed:    run.Processed,
		Skipped:      run.Skipped,
		Partial:      run.Partial,
		Failed:       run.Failed,
		Error:        run.Error,
	}
}

func runsJSON(runs []*state.Run) []runOutput {
	out := make([]runOutput, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON(run))
	}
	return out
}

func modelsJSON(results []state.ModelResult) []modelOutput {
	out := make([]modelOutput, 0, len(results))
	for _, m := range results {
		out = append(out, modelOutput{
			NodeID:        m.NodeID,
			Model:         m.ModelName,
			OutputPath:    m.OutputPath,
			Status:        string(m.Status),
			Columns:       m.Columns,
			Introspection: m.Introspection,
			ParseError:    m.ParseError,
			OutputError:   m.OutputError,
			DurationMS:    m.Duration.Milliseconds(),
		})
	}
	return out
}
