package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/flowshell/internal/registry"
	"github.com/roach88/flowshell/internal/timing"
)

// ErrExecutionNotFound is returned when no execution has the requested ID.
var ErrExecutionNotFound = errors.New("execution not found")

// ReadExecution returns the stored execution record.
func (s *Store) ReadExecution(ctx context.Context, id string) (ExecutionRecord, error) {
	var bindingsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT bindings FROM executions WHERE id = ?
	`, id).Scan(&bindingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ExecutionRecord{}, fmt.Errorf("read execution %s: %w", id, ErrExecutionNotFound)
	}
	if err != nil {
		return ExecutionRecord{}, fmt.Errorf("read execution %s: %w", id, err)
	}

	rec := ExecutionRecord{ID: id, Bindings: map[string]string{}}
	if err := json.Unmarshal([]byte(bindingsJSON), &rec.Bindings); err != nil {
		return ExecutionRecord{}, fmt.Errorf("read execution %s: bindings: %w", id, err)
	}
	return rec, nil
}

// ListExecutions returns all execution IDs in insertion order.
//
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListExecutions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM executions ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return ids, nil
}

// ReadScripts returns the source records of an execution ordered by seq.
//
// Returns an empty slice (not nil) if the execution has no records.
func (s *Store) ReadScripts(ctx context.Context, executionID string) ([]registry.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, seq, source
		FROM scripts
		WHERE execution_id = ?
		ORDER BY seq ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	records := []registry.Record{}
	for rows.Next() {
		var rec registry.Record
		if err := rows.Scan(&rec.Name, &rec.Seq, &rec.Source); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return records, nil
}

// ReadTimings returns the stored timing totals of an execution.
func (s *Store) ReadTimings(ctx context.Context, executionID string) (map[timing.Kind]timing.Totals, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, total_ns, count
		FROM timings
		WHERE execution_id = ?
		ORDER BY kind ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query timings: %w", err)
	}
	defer rows.Close()

	totals := make(map[timing.Kind]timing.Totals)
	for rows.Next() {
		var (
			kind    string
			totalNS int64
			count   int64
		)
		if err := rows.Scan(&kind, &totalNS, &count); err != nil {
			return nil, fmt.Errorf("scan timing: %w", err)
		}
		totals[timing.Kind(kind)] = timing.Totals{Elapsed: time.Duration(totalNS), Count: count}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timings: %w", err)
	}
	return totals, nil
}
