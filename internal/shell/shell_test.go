package shell_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/shell"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

var alice = types.WithCaller(context.Background(), "alice")

func newSession(t *testing.T) *shell.Session {
	t.Helper()
	s := shell.NewSession(storage.NewInMemoryStorage(), grid.Options{})
	t.Cleanup(s.Close)
	return s
}

// exec runs one line and returns what it printed.
func exec(t *testing.T, s *shell.Session, line string) string {
	t.Helper()
	var out bytes.Buffer
	_, err := s.Exec(alice, line, &out)
	require.NoError(t, err, line)
	return out.String()
}

func seed(t *testing.T, s *shell.Session) {
	t.Helper()
	exec(t, s, "CREATE WORKSPACE Work")
	assert.Contains(t, exec(t, s, "CREATE TABLE Fruit IN work"), "created table Fruit")
	for i, v := range []string{"apple", "banana", "cherry"} {
		exec(t, s, "SET "+string(rune('0'+i))+" Name = "+v)
	}
}

func TestShellRequiresOpenTable(t *testing.T) {
	s := newSession(t)
	var out bytes.Buffer
	_, err := s.Exec(alice, "SHOW", &out)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestShellFilterSortShow(t *testing.T) {
	s := newSession(t)
	seed(t, s)

	assert.Equal(t, "1 rows match, 1 loaded\n", exec(t, s, "FILTER Name ~ an"))
	shown := exec(t, s, "SHOW")
	assert.Contains(t, shown, "banana")
	assert.NotContains(t, shown, "cherry")

	exec(t, s, "CLEAR")
	exec(t, s, "SORT Name DESC")
	shown = exec(t, s, "SHOW 0 2")
	require.Contains(t, shown, "cherry")
	require.Contains(t, shown, "banana")
	assert.Less(t, strings.Index(shown, "cherry"), strings.Index(shown, "banana"))
	assert.NotContains(t, shown, "apple")
	assert.Contains(t, shown, "(2 of 3 loaded, 3 total)")
}

func TestShellEditsAndColumns(t *testing.T) {
	s := newSession(t)
	seed(t, s)

	assert.Contains(t, exec(t, s, "ADD COLUMN Score NUMBER"), "added column Score (NUMBER)")

	var out bytes.Buffer
	_, err := s.Exec(alice, "SET 0 Score = abc", &out)
	assert.ErrorIs(t, err, types.ErrValidation)

	assert.Equal(t, "synced\n", exec(t, s, "SET 0 Score = 42"))
	shown := exec(t, s, "SHOW 0 1")
	assert.Contains(t, shown, "42")

	cols := exec(t, s, "COLUMNS")
	assert.Contains(t, cols, "Score")
	assert.Contains(t, cols, "NUMBER")

	assert.Equal(t, "added row 3\n", exec(t, s, "ADD ROW"))
	assert.Equal(t, "added 5 rows\n", exec(t, s, "FAKE 5"))
	assert.Contains(t, exec(t, s, "WORKSPACES"), "Fruit")
}

func TestShellMatches(t *testing.T) {
	s := newSession(t)
	seed(t, s)

	exec(t, s, "SEARCH an")
	hits := exec(t, s, "MATCHES")
	assert.Contains(t, hits, "Name")
	assert.NotContains(t, hits, "No matches")

	exec(t, s, "SEARCH")
	assert.Equal(t, "No matches\n", exec(t, s, "MATCHES"))
}

func TestShellExport(t *testing.T) {
	s := newSession(t)
	seed(t, s)

	path := filepath.Join(t.TempDir(), "fruit")
	assert.Contains(t, exec(t, s, "EXPORT '"+path+"'"), "exported 3 rows")
}

func TestRunLoop(t *testing.T) {
	s := newSession(t)
	in := strings.NewReader("CREATE WORKSPACE Work\nBOGUS\nEXIT\nWORKSPACES\n")
	var out bytes.Buffer

	require.NoError(t, shell.Run(alice, s, in, &out, false))
	assert.Contains(t, out.String(), "created workspace Work")
	assert.Contains(t, out.String(), "Error: parse: unknown command")
	assert.Contains(t, out.String(), "Goodbye!")
	assert.NotContains(t, out.String(), "Table", "nothing runs after EXIT")
}
