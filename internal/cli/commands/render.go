package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapschema/internal/cli/output"
	"github.com/leapstack-labs/leapschema/internal/engine"
)

// renderSummary writes the result of one generate run in the renderer's mode.
func renderSummary(r *output.Renderer, s *engine.Summary) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(s)
	case output.ModeMarkdown:
		renderSummaryMarkdown(r, s)
	default:
		renderSummaryText(r, s)
	}
	return nil
}

func renderSummaryText(r *output.Renderer, s *engine.Summary) {
	styles := r.Styles()

	for _, w := range s.Warnings {
		r.Warning(w)
	}
	if s.IntrospectionError != "" {
		r.Warning("catalog introspection unavailable: " + s.IntrospectionError)
	}

	for _, m := range s.Models {
		if m.Status == engine.StatusResolved {
			continue
		}
		r.StatusLine(m.ModelName, string(m.Status), modelDetail(m))
	}

	r.Println("")
	line := fmt.Sprintf("%d models: %d written, %d partial, %d failed, %d skipped",
		s.ModelsTotal, s.Processed, s.Partial, s.Failed, s.Skipped)
	if s.Failed > 0 {
		r.Println(styles.Warning.Render(line))
	} else {
		r.Success(line)
	}
	r.Println(styles.Muted.Render(fmt.Sprintf("adapter %s, %s", s.Adapter, s.Duration.Round(time.Millisecond))))
}

func renderSummaryMarkdown(r *output.Renderer, s *engine.Summary) {
	r.Println(output.FormatHeader(1, "Schema generation"))
	r.Println("")
	r.Println(output.FormatKeyValue("Adapter", s.Adapter.String()))
	r.Println(output.FormatKeyValue("Models", fmt.Sprintf("%d", s.ModelsTotal)))
	r.Println(output.FormatKeyValue("Written", fmt.Sprintf("%d", s.Processed)))
	r.Println(output.FormatKeyValue("Partial", fmt.Sprintf("%d", s.Partial)))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", s.Failed)))
	r.Println(output.FormatKeyValue("Skipped", fmt.Sprintf("%d", s.Skipped)))
	if s.RunID != "" {
		r.Println(output.FormatKeyValue("Run", s.RunID))
	}
	if s.IntrospectionError != "" {
		r.Println(output.FormatKeyValue("Introspection", s.IntrospectionError))
	}
	r.Println("")

	if len(s.Warnings) > 0 {
		r.Println(output.FormatHeader(2, "Warnings"))
		r.Println("")
		for _, w := range s.Warnings {
			r.Println("- " + w)
		}
		r.Println("")
	}

	if len(s.Models) == 0 {
		return
	}
	r.Println(output.FormatHeader(2, "Models"))
	r.Println("")
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Model", "Status", "Columns", "Introspection", "Output"})
	for _, m := range s.Models {
		t.AppendRow(table.Row{m.ModelName, m.Status, m.Columns, m.Introspection, m.OutputPath})
	}
	t.RenderMarkdown()
	r.Println("")
}

// modelDetail describes why a model was not fully resolved.
func modelDetail(m engine.ModelResult) string {
	var parts []string
	if m.ParseError != "" {
		parts = append(parts, "parse: "+m.ParseError)
	}
	switch m.Introspection {
	case engine.IntrospectionNotFound:
		parts = append(parts, "relation not found in catalog")
	case engine.IntrospectionError:
		parts = append(parts, "introspection: "+m.IntrospectionError)
	}
	if m.OutputError != "" {
		parts = append(parts, m.OutputError)
	}
	return strings.Join(parts, "; ")
}
