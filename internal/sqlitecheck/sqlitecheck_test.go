package sqlitecheck

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDB(t *testing.T, path string, tables ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, name := range tables {
		_, err := db.Exec(fmt.Sprintf("CREATE TABLE %q (id INTEGER PRIMARY KEY, name TEXT)", name))
		require.NoError(t, err)
	}
	// force the file to exist even with zero tables
	require.NoError(t, db.Ping())
}

func TestInspect_OneTableTwoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	createDB(t, path, "test_table")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO test_table (name) VALUES ('test1'), ('test2')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	report, err := Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TableCount)
	assert.Equal(t, []string{"test_table"}, report.Tables)
}

func TestInspect_PreviewCappedInListingOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.sqlite")

	var names []string
	for i := 0; i < 13; i++ {
		// reverse-alphabetical so listing order differs from sorted order
		names = append(names, fmt.Sprintf("t_%c", 'z'-i))
	}
	createDB(t, path, names...)

	report, err := Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 13, report.TableCount)
	assert.Equal(t, names[:PreviewLimit], report.Tables)
}

func TestInspect_EmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	report, err := Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TableCount)
	assert.Empty(t, report.Tables)
	assert.NotNil(t, report.Tables)
}

func TestInspect_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	require.NoError(t, os.WriteFile(path, []byte("this is plainly a text file, not a sqlite database at all....."), 0644))

	_, err := Inspect(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotADatabase)
}

func TestInspect_MissingFileIsNotClassified(t *testing.T) {
	_, err := Inspect(context.Background(), filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotADatabase)
}

func TestInspect_DoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, _ = Inspect(context.Background(), path)
	assert.NoFileExists(t, path)
}

func TestHasAllowedExtension(t *testing.T) {
	tests := map[string]bool{
		"/data/user.db":         true,
		"/data/user.sqlite":     true,
		"/data/user.sqlite3":    true,
		"relative/app.db":       true,
		"/data/user.sql":        false,
		"/data/user.db.bak":     false,
		"/data/user":            false,
		"/etc/passwd":           false,
		"/data/user.sqlite3.gz": false,
	}

	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, want, HasAllowedExtension(path))
		})
	}
}
