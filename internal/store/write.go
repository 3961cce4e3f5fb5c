package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/flowshell/internal/registry"
	"github.com/roach88/flowshell/internal/timing"
)

// ExecutionRecord is the stored identity of an execution.
type ExecutionRecord struct {
	ID       string
	Bindings map[string]string
}

// WriteExecution inserts or updates an execution record.
// Bindings are replaced by the given map.
func (s *Store) WriteExecution(ctx context.Context, rec ExecutionRecord) error {
	bindings := rec.Bindings
	if bindings == nil {
		bindings = map[string]string{}
	}
	bindingsJSON, err := json.Marshal(bindings)
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, bindings)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET bindings = excluded.bindings
	`, rec.ID, string(bindingsJSON))
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}
	return nil
}

// ErrRecordConflict is returned when a stored source record disagrees with
// the one being written under the same name or seq.
var ErrRecordConflict = errors.New("source record conflict")

// WriteScripts inserts source records for an execution in one transaction.
//
// Records are insert-only. Writing a record that is already stored
// unchanged is a no-op; a record whose name or seq is taken by a different
// record fails with ErrRecordConflict and nothing is written.
// The execution must exist (foreign key).
func (s *Store) WriteScripts(ctx context.Context, executionID string, records []registry.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write scripts: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range records {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO scripts (execution_id, name, seq, source)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, executionID, rec.Name, rec.Seq, rec.Source)
		if err != nil {
			return fmt.Errorf("write scripts: %s: %w", rec.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("write scripts: %s: %w", rec.Name, err)
		}
		if n == 0 {
			if err := checkStored(ctx, tx, executionID, rec); err != nil {
				return fmt.Errorf("write scripts: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write scripts: commit: %w", err)
	}
	return nil
}

// checkStored verifies that every row holding rec's name or seq is rec itself.
func checkStored(ctx context.Context, tx *sql.Tx, executionID string, rec registry.Record) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT name, seq, source FROM scripts
		WHERE execution_id = ? AND (name = ? OR seq = ?)
	`, executionID, rec.Name, rec.Seq)
	if err != nil {
		return fmt.Errorf("%s: %w", rec.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var stored registry.Record
		if err := rows.Scan(&stored.Name, &stored.Seq, &stored.Source); err != nil {
			return fmt.Errorf("%s: %w", rec.Name, err)
		}
		if stored != rec {
			return fmt.Errorf("%s (seq %d): stored as %s (seq %d) with different source: %w",
				rec.Name, rec.Seq, stored.Name, stored.Seq, ErrRecordConflict)
		}
	}
	return rows.Err()
}

// WriteTimings stores the timing totals of an execution, replacing earlier values.
func (s *Store) WriteTimings(ctx context.Context, executionID string, totals map[timing.Kind]timing.Totals) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write timings: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for kind, t := range totals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO timings (execution_id, kind, total_ns, count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(execution_id, kind) DO UPDATE
			SET total_ns = excluded.total_ns, count = excluded.count
		`, executionID, string(kind), t.Elapsed.Nanoseconds(), t.Count)
		if err != nil {
			return fmt.Errorf("write timings: %s: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write timings: commit: %w", err)
	}
	return nil
}
