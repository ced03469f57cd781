package tools

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/logger"
)

// Operation names, shared with the journal and metrics labels.
const (
	OpMigrate = "migrate"
	OpBackup  = "backup"
	OpRestore = "restore"
)

// Status is the terminal state of a tool run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Outcome is a tool run translated into operator-facing terms.
type Outcome struct {
	Operation string
	Status    Status
	Message   string
	Output    string
	ExitCode  int
	Duration  time.Duration
}

// Succeeded reports whether the tool exited zero.
func (o *Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Binaries names the three external programs.
type Binaries struct {
	Pgloader string
	PgDump   string
	Psql     string
}

// Toolkit builds argument lists for pgloader, pg_dump and psql and runs them.
type Toolkit struct {
	runner  *Runner
	bins    Binaries
	timeout time.Duration
}

// NewToolkit wires the three tools to a shared runner.
func NewToolkit(runner *Runner, bins Binaries, timeout time.Duration) *Toolkit {
	return &Toolkit{runner: runner, bins: bins, timeout: timeout}
}

// Migrate copies sqlitePath into the target database with pgloader.
func (t *Toolkit) Migrate(ctx context.Context, sqlitePath string, conn config.Connection) *Outcome {
	abs, err := filepath.Abs(sqlitePath)
	if err != nil {
		return failed(OpMigrate, fmt.Sprintf("Migration failed: %v", err))
	}
	if _, err := os.Stat(abs); err != nil {
		return failed(OpMigrate, fmt.Sprintf("SQLite file does not exist: %s", sqlitePath))
	}

	args := []string{"--verbose", "sqlite://" + abs, conn.URL()}

	logger.Info("Migrating %s into %s", abs, conn.Redacted())
	res, err := t.runner.Run(ctx, Command{
		Name:    t.bins.Pgloader,
		Args:    args,
		Timeout: t.timeout,
	})
	return translate(OpMigrate, "Migration", res, err)
}

// Dump writes the target database to outPath with pg_dump.
func (t *Toolkit) Dump(ctx context.Context, conn config.Connection, outPath string) *Outcome {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return failed(OpBackup, fmt.Sprintf("Backup failed: %v", err))
	}

	logger.Info("Dumping %s to %s", conn.Redacted(), outPath)
	res, err := t.runner.Run(ctx, Command{
		Name:    t.bins.PgDump,
		Args:    append(libpqArgs(conn), "-f", outPath),
		Env:     conn.Env(),
		Timeout: t.timeout,
	})
	return translate(OpBackup, "Backup", res, err)
}

// Restore replays the SQL script at sqlPath with psql.
func (t *Toolkit) Restore(ctx context.Context, sqlPath string, conn config.Connection) *Outcome {
	if _, err := os.Stat(sqlPath); err != nil {
		return failed(OpRestore, fmt.Sprintf("Backup file does not exist: %s", sqlPath))
	}

	logger.Info("Restoring %s into %s", sqlPath, conn.Redacted())
	res, err := t.runner.Run(ctx, Command{
		Name:    t.bins.Psql,
		Args:    append(libpqArgs(conn), "-f", sqlPath),
		Env:     conn.Env(),
		Timeout: t.timeout,
	})
	return translate(OpRestore, "Restore", res, err)
}

// libpqArgs never includes the password; it travels in PGPASSWORD.
func libpqArgs(conn config.Connection) []string {
	return []string{
		"-h", conn.Host,
		"-p", conn.Port,
		"-U", conn.User,
		"-d", conn.Database,
	}
}

func translate(op, label string, res *Result, err error) *Outcome {
	o := &Outcome{Operation: op, ExitCode: -1}
	if res != nil {
		o.ExitCode = res.ExitCode
		o.Duration = res.Duration
		o.Output = res.Stdout
	}

	switch {
	case errors.Is(err, ErrTimedOut):
		o.Status = StatusTimedOut
		o.Message = fmt.Sprintf("%s timed out, please try again later", label)
	case err != nil:
		o.Status = StatusFailed
		o.Message = fmt.Sprintf("%s failed: %v", label, err)
	case res.ExitCode != 0:
		o.Status = StatusFailed
		o.Message = fmt.Sprintf("%s failed: %s", label, diagnostic(res))
	default:
		o.Status = StatusSucceeded
		o.Message = fmt.Sprintf("%s completed successfully", label)
	}

	if o.Status == StatusSucceeded {
		logger.Info("%s finished in %s", op, o.Duration.Round(time.Millisecond))
	} else {
		logger.Error("%s %s (exit %d): %s", op, o.Status, o.ExitCode, o.Message)
	}
	return o
}

func failed(op, msg string) *Outcome {
	logger.Error("%s failed: %s", op, msg)
	return &Outcome{Operation: op, Status: StatusFailed, Message: msg, ExitCode: -1}
}

// diagnostic prefers stderr, falling back to stdout for tools that report
// errors there.
func diagnostic(res *Result) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return res.Stderr
	}
	if s := strings.TrimSpace(res.Stdout); s != "" {
		return res.Stdout
	}
	return fmt.Sprintf("exit status %d", res.ExitCode)
}

func redactURL(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	return u.Redacted()
}
