package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowshell.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	for _, table := range []string{"executions", "scripts", "timings"} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowshell.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		_, err = s.db.Exec(`INSERT OR IGNORE INTO executions (id) VALUES ('e1')`)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM executions`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/flowshell.db")
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())

	s, err := Open(filepath.Join(t.TempDir(), "flowshell.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestDB_Usable(t *testing.T) {
	s := createTestStore(t)

	require.NotNil(t, s.DB())
	assert.NoError(t, s.DB().Ping())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tests := map[string][]string{
		"executions": {"id", "bindings"},
		"scripts":    {"execution_id", "name", "seq", "source"},
		"timings":    {"execution_id", "kind", "total_ns", "count"},
	}
	for table, want := range tests {
		assert.Subset(t, tableColumns(t, s.db, table), want, "table %s", table)
	}
}

func TestConstraint_ScriptsRequireExecution(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO scripts (execution_id, name, seq, source) VALUES ('missing', 'Unit1', 1, 'return 1')`)
	assert.Error(t, err, "foreign key must reject unknown execution")
}

func TestConstraint_ScriptsUniqueSeq(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO executions (id) VALUES ('e1')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO scripts (execution_id, name, seq, source) VALUES ('e1', 'Unit1', 1, 'a')`)
	require.NoError(t, err)

	_, err = s.db.Exec(`INSERT INTO scripts (execution_id, name, seq, source) VALUES ('e1', 'Unit2', 1, 'b')`)
	assert.Error(t, err, "seq must be unique per execution")
}

func TestMigrate_CurrentVersion(t *testing.T) {
	s := createTestStore(t)

	got, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 1, currentSchemaVersion)
	assert.Contains(t, tableIndexes(t, s.db, "scripts"), "idx_scripts_execution_seq")
}

func TestMigrate_UpgradesBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowshell.db")

	// A database that only has the baseline schema.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NotContains(t, tableIndexes(t, db, "scripts"), "idx_scripts_execution_seq")
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Contains(t, tableIndexes(t, s.db, "scripts"), "idx_scripts_execution_seq")
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             any
		)
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	return columns
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?`, table)
	require.NoError(t, err)
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	require.NoError(t, rows.Err())
	return indexes
}
