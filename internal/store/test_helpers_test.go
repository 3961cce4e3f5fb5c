package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh store under t.TempDir and closes it on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "flowshell.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
