// Package state records the history of schema generation runs in SQLite.
// It tracks one row per run and one row per processed model.
package state

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ModelStatus is the outcome of one model in a run.
type ModelStatus string

// Model statuses.
const (
	// ModelStatusResolved means every available source contributed.
	ModelStatusResolved ModelStatus = "resolved"
	// ModelStatusPartial means a source failed but output was written.
	ModelStatusPartial ModelStatus = "partial"
	// ModelStatusFailed means no output was written.
	ModelStatusFailed ModelStatus = "failed"
)

// Run is one invocation of generate.
type Run struct {
	ID           string
	ManifestPath string
	Adapter      string
	Status       RunStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	ModelsTotal  int
	Processed    int
	Skipped      int
	Partial      int
	Failed       int
	Error        string
}

// RunCounts are the summary counters stored when a run completes.
type RunCounts struct {
	ModelsTotal int
	Processed   int
	Skipped     int
	Partial     int
	Failed      int
}

// ModelResult is the recorded outcome of one model in a run.
type ModelResult struct {
	RunID         string
	NodeID        string
	ModelName     string
	OutputPath    string
	Status        ModelStatus
	Columns       int
	Declared      int
	Introspected  int
	Parsed        int
	Introspection string
	ParseError    string
	OutputError   string
	Duration      time.Duration
}

// Store persists run history.
type Store interface {
	CreateRun(manifestPath, adapter string) (*Run, error)
	CompleteRun(id string, status RunStatus, counts RunCounts, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	RecordModelResults(results []ModelResult) error
	ListModelResults(runID string) ([]ModelResult, error)
	Close() error
}
