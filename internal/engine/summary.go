package engine

import (
	"time"

	"github.com/leapstack-labs/leapschema/internal/state"
	"github.com/leapstack-labs/leapschema/pkg/core"
)

// ModelStatus is the outcome of one model.
type ModelStatus string

// Model outcomes.
const (
	StatusResolved  ModelStatus = "resolved"
	StatusPartial   ModelStatus = "partial"
	StatusFailed    ModelStatus = "failed"
	StatusCancelled ModelStatus = "cancelled"
)

// IntrospectionStatus is the outcome of the catalog source for one model.
type IntrospectionStatus string

// Introspection outcomes.
const (
	IntrospectionOK          IntrospectionStatus = "ok"
	IntrospectionNotFound    IntrospectionStatus = "not_found"
	IntrospectionUnavailable IntrospectionStatus = "unavailable"
	IntrospectionError       IntrospectionStatus = "error"
	IntrospectionSkipped     IntrospectionStatus = "skipped"
)

// ModelResult is the outcome of processing one model.
type ModelResult struct {
	NodeID             string              `json:"node_id"`
	ModelName          string              `json:"model"`
	OutputPath         string              `json:"output_path"`
	Status             ModelStatus         `json:"status"`
	Columns            int                 `json:"columns"`
	Declared           int                 `json:"declared"`
	Introspected       int                 `json:"introspected"`
	Parsed             int                 `json:"parsed"`
	Introspection      IntrospectionStatus `json:"introspection"`
	IntrospectionError string              `json:"introspection_error,omitempty"`
	ParseError         string              `json:"parse_error,omitempty"`
	OutputError        string              `json:"output_error,omitempty"`
	Duration           time.Duration       `json:"duration_ns"`
}

func (r ModelResult) record(runID string) state.ModelResult {
	status := state.ModelStatusResolved
	switch r.Status {
	case StatusPartial:
		status = state.ModelStatusPartial
	case StatusFailed:
		status = state.ModelStatusFailed
	}
	return state.ModelResult{
		RunID:         runID,
		NodeID:        r.NodeID,
		ModelName:     r.ModelName,
		OutputPath:    r.OutputPath,
		Status:        status,
		Columns:       r.Columns,
		Declared:      r.Declared,
		Introspected:  r.Introspected,
		Parsed:        r.Parsed,
		Introspection: string(r.Introspection),
		ParseError:    r.ParseError,
		OutputError:   r.OutputError,
		Duration:      r.Duration,
	}
}

// Summary aggregates a run.
type Summary struct {
	RunID       string           `json:"run_id,omitempty"`
	Adapter     core.AdapterKind `json:"adapter"`
	ModelsTotal int              `json:"models_total"`
	// Processed counts models whose schema file was written.
	Processed int `json:"processed"`
	// Skipped counts malformed nodes and models not started before cancellation.
	Skipped int `json:"skipped"`
	// Partial counts written models where a source failed for that model.
	Partial int `json:"partial"`
	// Failed counts models whose schema file could not be written.
	Failed             int           `json:"failed"`
	ParseFailures      int           `json:"parse_failures"`
	IntrospectionError string        `json:"introspection_error,omitempty"`
	Warnings           []string      `json:"warnings,omitempty"`
	Models             []ModelResult `json:"models"`
	Duration           time.Duration `json:"duration_ns"`
}

// tally fills the counters from Models. Skipped already holds the manifest's
// malformed nodes.
func (s *Summary) tally() {
	for _, r := range s.Models {
		switch r.Status {
		case StatusResolved:
			s.Processed++
		case StatusPartial:
			s.Processed++
			s.Partial++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Skipped++
		}
		if r.ParseError != "" {
			s.ParseFailures++
		}
	}
}

func (s *Summary) counts() state.RunCounts {
	return state.RunCounts{
		ModelsTotal: s.ModelsTotal,
		Processed:   s.Processed,
		Skipped:     s.Skipped,
		Partial:     s.Partial,
		Failed:      s.Failed,
	}
}
