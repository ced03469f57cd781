package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/db"
	"github.com/AI2HU/sqlite2pg/internal/db/sqlite"
	"github.com/AI2HU/sqlite2pg/internal/metrics"
	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/sqlitecheck"
	"github.com/AI2HU/sqlite2pg/internal/staging"
	"github.com/AI2HU/sqlite2pg/internal/tools"
)

type fixture struct {
	svc       *OperationService
	dir       string
	uploadDir string
	exportDir string
	marker    string
	metrics   *metrics.Metrics
	journal   *sqlite.SQLite
}

// newFixture builds a service whose three tools are shell scripts. Each
// script touches marker so tests can tell whether anything was spawned.
func newFixture(t *testing.T, pgloader, pgDump, psql string, timeout time.Duration) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:       dir,
		uploadDir: filepath.Join(dir, "uploads"),
		exportDir: filepath.Join(dir, "exports"),
		marker:    filepath.Join(dir, "spawned"),
		metrics:   metrics.New(),
	}

	script := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\ntouch "+f.marker+"\n"+body+"\n"), 0755))
		return path
	}

	area, err := staging.New(f.uploadDir)
	require.NoError(t, err)

	j, err := sqlite.New(&models.Config{URI: filepath.Join(dir, "journal.db")})
	require.NoError(t, err)
	require.NoError(t, j.Connect(context.Background()))
	t.Cleanup(func() { _ = j.Disconnect(context.Background()) })
	f.journal = j

	tk := tools.NewToolkit(tools.NewRunner(0, f.metrics), tools.Binaries{
		Pgloader: script("pgloader", pgloader),
		PgDump:   script("pg_dump", pgDump),
		Psql:     script("psql", psql),
	}, timeout)

	f.svc = NewOperationService(Dependencies{
		Connections: config.NewConnectionStore(filepath.Join(dir, "config.json")),
		Staging:     area,
		Toolkit:     tk,
		Journal:     j,
		Metrics:     f.metrics,
		ExportDir:   f.exportDir,
	})
	return f
}

const dumpScript = `while [ $# -gt 0 ]; do
  case "$1" in -f) out="$2"; shift;; esac
  shift
done
echo "CREATE TABLE t (id int);" > "$out"`

func sqliteBytes(t *testing.T, tables ...string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	for _, name := range tables {
		_, err := conn.Exec("CREATE TABLE " + name + " (id INTEGER PRIMARY KEY, name TEXT)")
		require.NoError(t, err)
	}
	require.NoError(t, conn.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateUpload_ValidFile(t *testing.T) {
	f := newFixture(t, "", "", "", time.Minute)

	report, err := f.svc.ValidateUpload(context.Background(), "test.db", strings.NewReader(string(sqliteBytes(t, "test_table"))))
	require.NoError(t, err)
	assert.Equal(t, 1, report.TableCount)
	assert.Equal(t, []string{"test_table"}, report.Tables)
	assertDirEmpty(t, f.uploadDir)
}

func TestValidateUpload_NotADatabaseCleansUp(t *testing.T) {
	f := newFixture(t, "", "", "", time.Minute)

	_, err := f.svc.ValidateUpload(context.Background(), "bogus.db", strings.NewReader(strings.Repeat("not sqlite ", 20)))
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlitecheck.ErrNotADatabase)
	assertDirEmpty(t, f.uploadDir)

	ops, err := f.svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpValidate, ops[0].Operation)
	assert.Equal(t, "failed", ops[0].Status)
}

func TestMigrateUpload_Success(t *testing.T) {
	f := newFixture(t, `exit 0`, "", "", time.Minute)

	out, err := f.svc.MigrateUpload(context.Background(), "test.db", strings.NewReader("x"), config.DefaultConnection())
	require.NoError(t, err)
	assert.Equal(t, tools.StatusSucceeded, out.Status)
	assert.Equal(t, "Migration completed successfully", out.Message)
	assert.FileExists(t, f.marker)
	assertDirEmpty(t, f.uploadDir)

	ops, err := f.svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, tools.OpMigrate, ops[0].Operation)
	assert.Equal(t, "succeeded", ops[0].Status)
	assert.Equal(t, "test.db", ops[0].Source)
	assert.Equal(t, "moviepilot@localhost:5432/moviepilot", ops[0].Target)
}

func TestMigrateUpload_DistinguishesOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		want    tools.Status
		message string
	}{
		{"succeeded", `exit 0`, time.Minute, tools.StatusSucceeded, "Migration completed successfully"},
		{"failed", `echo "ERROR Database error 42P07" >&2; exit 1`, time.Minute, tools.StatusFailed, "Migration failed: ERROR Database error 42P07\n"},
		{"timed out", `exec sleep 5`, 200 * time.Millisecond, tools.StatusTimedOut, "Migration timed out, please try again later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.script, "", "", tt.timeout)

			out, err := f.svc.MigrateUpload(context.Background(), "a.db", strings.NewReader("x"), config.DefaultConnection())
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Status)
			assert.Equal(t, tt.message, out.Message)
			// staged upload is removed on every exit path
			assertDirEmpty(t, f.uploadDir)
		})
	}
}

func TestMigrateServerFile_RejectsBeforeSpawning(t *testing.T) {
	f := newFixture(t, `exit 0`, "", "", time.Minute)

	wrongExt := filepath.Join(f.dir, "dump.sql")
	require.NoError(t, os.WriteFile(wrongExt, []byte("x"), 0644))

	for name, path := range map[string]string{
		"empty":           "",
		"missing":         filepath.Join(f.dir, "absent.db"),
		"wrong extension": wrongExt,
		"directory":       f.dir,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.MigrateServerFile(context.Background(), path, config.DefaultConnection())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidServerPath)
			assert.NoFileExists(t, f.marker)
		})
	}
}

func TestMigrateServerFile_AllowedPath(t *testing.T) {
	f := newFixture(t, `exit 0`, "", "", time.Minute)

	path := filepath.Join(f.dir, "user.sqlite3")
	require.NoError(t, os.WriteFile(path, sqliteBytes(t, "t"), 0644))

	out, err := f.svc.MigrateServerFile(context.Background(), path, config.DefaultConnection())
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	// server-local files are never deleted
	assert.FileExists(t, path)
}

func TestBackup_Success(t *testing.T) {
	f := newFixture(t, "", dumpScript, "", time.Minute)
	f.svc.deps.Now = func() time.Time { return time.Unix(1700000000, 0) }

	conn := config.DefaultConnection()
	artifact, err := f.svc.Backup(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, "backup_moviepilot_1700000000.sql", artifact.Name)
	assert.Equal(t, filepath.Join(f.exportDir, artifact.Name), artifact.Path)
	assert.Equal(t, int64(len("CREATE TABLE t (id int);\n")), artifact.Size)
	assert.True(t, strings.HasPrefix(artifact.Checksum, "xxh3:"))

	// a second dump in the same second gets its own file
	second, err := f.svc.Backup(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "backup_moviepilot_1700000000_1.sql", second.Name)
	assert.Equal(t, artifact.Checksum, second.Checksum)

	ops, err := f.svc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, second.Path, ops[0].Artifact)
	assert.Equal(t, second.Checksum, ops[0].Checksum)
}

func TestBackup_FailureAndTimeout(t *testing.T) {
	t.Run("failed", func(t *testing.T) {
		f := newFixture(t, "", `echo "pg_dump: error: connection refused" >&2; exit 1`, "", time.Minute)

		_, err := f.svc.Backup(context.Background(), config.DefaultConnection())
		var opErr *OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, tools.StatusFailed, opErr.Outcome.Status)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("timed out", func(t *testing.T) {
		f := newFixture(t, "", `exec sleep 5`, "", 200*time.Millisecond)

		_, err := f.svc.Backup(context.Background(), config.DefaultConnection())
		var opErr *OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, tools.StatusTimedOut, opErr.Outcome.Status)
	})

	t.Run("partial output removed", func(t *testing.T) {
		script := `while [ $# -gt 0 ]; do case "$1" in -f) out="$2"; shift;; esac; shift; done
echo "partial" > "$out"; exit 1`
		f := newFixture(t, "", script, "", time.Minute)

		_, err := f.svc.Backup(context.Background(), config.DefaultConnection())
		require.Error(t, err)
		matches, _ := filepath.Glob(filepath.Join(f.exportDir, "*.sql"))
		assert.Empty(t, matches)
	})
}

func TestRestoreUpload(t *testing.T) {
	script := `while [ $# -gt 0 ]; do case "$1" in -f) in="$2"; shift;; esac; shift; done
grep -q "SELECT 1" "$in"`
	f := newFixture(t, "", "", script, time.Minute)

	out, err := f.svc.RestoreUpload(context.Background(), "dump.sql", strings.NewReader("SELECT 1;"), config.DefaultConnection())
	require.NoError(t, err)
	assert.Equal(t, tools.StatusSucceeded, out.Status, out.Message)
	assertDirEmpty(t, f.uploadDir)
}

func TestRestoreUpload_DistinguishesOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		want    tools.Status
		message string
	}{
		{"succeeded", `exit 0`, time.Minute, tools.StatusSucceeded, "Restore completed successfully"},
		{"failed", `echo "psql: error: relation \"t\" already exists" >&2; exit 3`, time.Minute, tools.StatusFailed, "Restore failed: psql: error: relation \"t\" already exists\n"},
		{"timed out", `exec sleep 5`, 200 * time.Millisecond, tools.StatusTimedOut, "Restore timed out, please try again later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", "", tt.script, tt.timeout)

			out, err := f.svc.RestoreUpload(context.Background(), "dump.sql", strings.NewReader("SELECT 1;"), config.DefaultConnection())
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Status)
			assert.Equal(t, tt.message, out.Message)
			assertDirEmpty(t, f.uploadDir)

			ops, err := f.svc.History(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, ops, 1)
			assert.Equal(t, tools.OpRestore, ops[0].Operation)
			assert.Equal(t, string(tt.want), ops[0].Status)
		})
	}
}

func TestOperation_Lookup(t *testing.T) {
	f := newFixture(t, "", "", `exit 0`, time.Minute)

	_, err := f.svc.RestoreUpload(context.Background(), "dump.sql", strings.NewReader("SELECT 1;"), config.DefaultConnection())
	require.NoError(t, err)
	ops, err := f.svc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	got, err := f.svc.Operation(context.Background(), ops[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ops[0].ID, got.ID)

	_, err = f.svc.Operation(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = NewOperationService(Dependencies{}).Operation(context.Background(), "any")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRestoreFile_Missing(t *testing.T) {
	f := newFixture(t, "", "", "exit 0", time.Minute)

	out := f.svc.RestoreFile(context.Background(), filepath.Join(f.dir, "gone.sql"), config.DefaultConnection())
	assert.Equal(t, tools.StatusFailed, out.Status)
	assert.Contains(t, out.Message, "Backup file does not exist")
	assert.NoFileExists(t, f.marker)
}

func TestTestConnection_Journaled(t *testing.T) {
	f := newFixture(t, "", "", "", time.Minute)
	f.svc.deps.TestConnection = func(ctx context.Context, conn config.Connection) (string, error) {
		if conn.Host == "down" {
			return "", errors.New("dial tcp: connection refused")
		}
		return "PostgreSQL 16.2", nil
	}

	version, err := f.svc.TestConnection(context.Background(), config.DefaultConnection())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.2", version)

	conn := config.DefaultConnection()
	conn.Host = "down"
	_, err = f.svc.TestConnection(context.Background(), conn)
	assert.ErrorContains(t, err, "connection refused")

	ops, err := f.svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	for _, op := range ops {
		assert.Equal(t, OpTest, op.Operation)
	}
}

func TestConnectionRoundTrip(t *testing.T) {
	f := newFixture(t, "", "", "", time.Minute)

	want := config.Connection{Host: "h", Port: "1", Database: "d", User: "u", Password: "p"}
	require.NoError(t, f.svc.SaveConnection(want))

	got, err := f.svc.Connection()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPruneBackups(t *testing.T) {
	f := newFixture(t, "", "", "", time.Minute)
	require.NoError(t, os.MkdirAll(f.exportDir, 0755))

	base := time.Now().Add(-time.Hour)
	var names []string
	for i := 0; i < 4; i++ {
		name := filepath.Join(f.exportDir, "backup_db_"+string(rune('a'+i))+".sql")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
		mod := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(name, mod, mod))
		names = append(names, name)
	}
	other := filepath.Join(f.exportDir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0644))

	removed, err := f.svc.PruneBackups(2)
	require.NoError(t, err)
	assert.ElementsMatch(t, names[:2], removed)
	assert.FileExists(t, names[2])
	assert.FileExists(t, names[3])
	assert.FileExists(t, other)

	removed, err = f.svc.PruneBackups(0)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestHistory_NoJournal(t *testing.T) {
	svc := NewOperationService(Dependencies{})
	ops, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, ops)
}
