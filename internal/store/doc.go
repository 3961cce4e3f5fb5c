// Package store persists executions in SQLite so they survive a restart.
//
// Three tables:
//   - executions: ID and variable bindings (JSON object)
//   - scripts: source records, one row per unit name, with the 1-based
//     compile order in seq
//   - timings: parse/load totals per execution
//
// Source records are insert-only. Writes use ON CONFLICT DO NOTHING, so a
// stored text is never replaced, and reads are ORDER BY seq so a replay
// recompiles in the original order and reproduces the original names.
//
// The schema is schema.sql plus the numbered migrations in store.go,
// tracked with PRAGMA user_version. Connections run in WAL mode with
// foreign keys enforced.
package store
