package state

import (
	"fmt"
	"time"
)

// RecordModelResults stores the outcome of every model in one transaction.
func (s *SQLiteStore) RecordModelResults(results []ModelResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO model_results (
			run_id, node_id, model_name, output_path, status, columns,
			declared, introspected, parsed, introspection,
			parse_error, output_error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		_, err := stmt.Exec(
			r.RunID, r.NodeID, r.ModelName, r.OutputPath, string(r.Status), r.Columns,
			r.Declared, r.Introspected, r.Parsed, r.Introspection,
			nullString(r.ParseError), nullString(r.OutputError), r.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to record model %s: %w", r.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model results: %w", err)
	}
	return nil
}

// ListModelResults returns the model outcomes of a run ordered by node id.
func (s *SQLiteStore) ListModelResults(runID string) ([]ModelResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`
		SELECT run_id, node_id, model_name, output_path, status, columns,
			declared, introspected, parsed, introspection,
			COALESCE(parse_error, ''), COALESCE(output_error, ''), duration_ms
		FROM model_results
		WHERE run_id = ?
		ORDER BY node_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ModelResult
	for rows.Next() {
		var (
			r        ModelResult
			status   string
			duration int64
		)
		if err := rows.Scan(&r.RunID, &r.NodeID, &r.ModelName, &r.OutputPath, &status, &r.Columns,
			&r.Declared, &r.Introspected, &r.Parsed, &r.Introspection,
			&r.ParseError, &r.OutputError, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan model result: %w", err)
		}
		r.Status = ModelStatus(status)
		r.Duration = time.Duration(duration) * time.Millisecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list model results: %w", err)
	}
	return results, nil
}
