package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/db"
	"github.com/AI2HU/sqlite2pg/internal/logger"
	"github.com/AI2HU/sqlite2pg/internal/metrics"
	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/postgres"
	"github.com/AI2HU/sqlite2pg/internal/sqlitecheck"
	"github.com/AI2HU/sqlite2pg/internal/staging"
	"github.com/AI2HU/sqlite2pg/internal/tools"
)

// Operation names for steps that do not spawn a tool.
const (
	OpValidate = "validate"
	OpTest     = "test"
)

// ErrInvalidServerPath rejects a server-local path before any tool runs.
var ErrInvalidServerPath = errors.New("invalid server file path")

// OperationError carries a tool outcome that did not succeed.
type OperationError struct {
	Outcome *tools.Outcome
}

func (e *OperationError) Error() string {
	return e.Outcome.Message
}

// Artifact is a produced backup file.
type Artifact struct {
	Path     string
	Name     string
	Size     int64
	Checksum string
}

// Dependencies wires an OperationService. Journal and Metrics are optional.
type Dependencies struct {
	Connections *config.ConnectionStore
	Staging     *staging.Area
	Toolkit     *tools.Toolkit
	Journal     db.Journal
	Metrics     *metrics.Metrics
	ExportDir   string

	// Overridable for tests.
	TestConnection func(ctx context.Context, conn config.Connection) (string, error)
	Now            func() time.Time
}

// OperationService provides business logic for every operator action
type OperationService struct {
	deps Dependencies
}

// NewOperationService creates a new operation service
func NewOperationService(deps Dependencies) *OperationService {
	if deps.TestConnection == nil {
		deps.TestConnection = postgres.TestConnection
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &OperationService{deps: deps}
}

// Connection returns the saved connection record
func (s *OperationService) Connection() (config.Connection, error) {
	return s.deps.Connections.Load()
}

// SaveConnection replaces the saved connection record
func (s *OperationService) SaveConnection(conn config.Connection) error {
	if err := s.deps.Connections.Save(conn); err != nil {
		return err
	}
	logger.Info("Saved connection %s", conn.Redacted())
	return nil
}

// TestConnection opens one connection to the target and returns its version
func (s *OperationService) TestConnection(ctx context.Context, conn config.Connection) (string, error) {
	start := s.deps.Now()
	version, err := s.deps.TestConnection(ctx, conn)

	op := s.newOperation(OpTest, start)
	op.Target = conn.Redacted()
	if err != nil {
		op.Status = string(tools.StatusFailed)
		op.Message = err.Error()
	} else {
		op.Status = string(tools.StatusSucceeded)
		op.Message = version
	}
	s.finish(ctx, op)

	return version, err
}

// ValidateUpload stages r, inspects it and always removes the staged copy
func (s *OperationService) ValidateUpload(ctx context.Context, name string, r io.Reader) (*sqlitecheck.Report, error) {
	f, err := s.deps.Staging.Stage(name, r)
	if err != nil {
		return nil, err
	}
	defer f.Remove()

	return s.validate(ctx, f.Path, name)
}

// ValidateFile inspects a SQLite file already on disk
func (s *OperationService) ValidateFile(ctx context.Context, path string) (*sqlitecheck.Report, error) {
	return s.validate(ctx, path, path)
}

func (s *OperationService) validate(ctx context.Context, path, source string) (*sqlitecheck.Report, error) {
	start := s.deps.Now()
	report, err := sqlitecheck.Inspect(ctx, path)

	op := s.newOperation(OpValidate, start)
	op.Source = source
	if err != nil {
		op.Status = string(tools.StatusFailed)
		op.Message = err.Error()
	} else {
		op.Status = string(tools.StatusSucceeded)
		op.Message = fmt.Sprintf("%d tables", report.TableCount)
	}
	s.finish(ctx, op)

	return report, err
}

// MigrateUpload stages an uploaded SQLite file and migrates it
func (s *OperationService) MigrateUpload(ctx context.Context, name string, r io.Reader, conn config.Connection) (*tools.Outcome, error) {
	f, err := s.deps.Staging.Stage(name, r)
	if err != nil {
		return nil, err
	}
	defer f.Remove()

	return s.migrate(ctx, f.Path, name, conn), nil
}

// CheckServerPath applies the allow-list for server-local SQLite files
func CheckServerPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: server_file_path is required", ErrInvalidServerPath)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: file not found on server: %s", ErrInvalidServerPath, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidServerPath, path)
	}
	if !sqlitecheck.HasAllowedExtension(path) {
		return fmt.Errorf("%w: file must be a SQLite database file (%s)",
			ErrInvalidServerPath, strings.Join(sqlitecheck.AllowedExtensions, ", "))
	}
	return nil
}

// MigrateServerFile migrates a SQLite file that already lives on this host
func (s *OperationService) MigrateServerFile(ctx context.Context, path string, conn config.Connection) (*tools.Outcome, error) {
	if err := CheckServerPath(path); err != nil {
		return nil, err
	}
	return s.migrate(ctx, path, path, conn), nil
}

func (s *OperationService) migrate(ctx context.Context, path, source string, conn config.Connection) *tools.Outcome {
	start := s.deps.Now()
	out := s.deps.Toolkit.Migrate(ctx, path, conn)

	op := s.newOperation(tools.OpMigrate, start)
	op.Source = source
	op.Target = conn.Redacted()
	op.Status = string(out.Status)
	op.Message = out.Message
	s.finish(ctx, op)

	return out
}

// Backup dumps the target into the export directory
func (s *OperationService) Backup(ctx context.Context, conn config.Connection) (*Artifact, error) {
	start := s.deps.Now()
	path := s.backupPath(conn.Database, start)

	out := s.deps.Toolkit.Dump(ctx, conn, path)

	op := s.newOperation(tools.OpBackup, start)
	op.Target = conn.Redacted()
	op.Status = string(out.Status)
	op.Message = out.Message

	if !out.Succeeded() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warning("Failed to remove partial backup %s: %v", path, err)
		}
		s.finish(ctx, op)
		return nil, &OperationError{Outcome: out}
	}

	artifact, err := describe(path)
	if err != nil {
		op.Status = string(tools.StatusFailed)
		op.Message = err.Error()
		s.finish(ctx, op)
		return nil, err
	}

	op.Artifact = artifact.Path
	op.Checksum = artifact.Checksum
	s.finish(ctx, op)

	return artifact, nil
}

// backupPath names the dump after the database and the start time; a
// numeric suffix avoids clobbering a dump from the same second.
func (s *OperationService) backupPath(database string, at time.Time) string {
	base := fmt.Sprintf("backup_%s_%d", safeName(database), at.Unix())
	path := filepath.Join(s.deps.ExportDir, base+".sql")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.deps.ExportDir, fmt.Sprintf("%s_%d.sql", base, i))
	}
}

// RestoreUpload stages an uploaded SQL script and replays it
func (s *OperationService) RestoreUpload(ctx context.Context, name string, r io.Reader, conn config.Connection) (*tools.Outcome, error) {
	f, err := s.deps.Staging.Stage(name, r)
	if err != nil {
		return nil, err
	}
	defer f.Remove()

	return s.restore(ctx, f.Path, name, conn), nil
}

// RestoreFile replays a SQL script already on disk
func (s *OperationService) RestoreFile(ctx context.Context, path string, conn config.Connection) *tools.Outcome {
	return s.restore(ctx, path, path, conn)
}

func (s *OperationService) restore(ctx context.Context, path, source string, conn config.Connection) *tools.Outcome {
	start := s.deps.Now()
	out := s.deps.Toolkit.Restore(ctx, path, conn)

	op := s.newOperation(tools.OpRestore, start)
	op.Source = source
	op.Target = conn.Redacted()
	op.Status = string(out.Status)
	op.Message = out.Message
	s.finish(ctx, op)

	return out
}

// History returns recent journal entries, newest first
func (s *OperationService) History(ctx context.Context, limit int) ([]*models.Operation, error) {
	if s.deps.Journal == nil {
		return []*models.Operation{}, nil
	}
	return s.deps.Journal.ListOperations(ctx, limit)
}

// Operation returns one journal entry. db.ErrNotFound is returned for an
// unknown id or when no journal is configured.
func (s *OperationService) Operation(ctx context.Context, id string) (*models.Operation, error) {
	if s.deps.Journal == nil {
		return nil, db.ErrNotFound
	}
	return s.deps.Journal.GetOperation(ctx, id)
}

// PruneBackups keeps the newest retain dumps in the export directory and
// deletes the rest. retain <= 0 keeps everything.
func (s *OperationService) PruneBackups(retain int) ([]string, error) {
	if retain <= 0 {
		return nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(s.deps.ExportDir, "backup_*.sql"))
	if err != nil {
		return nil, err
	}

	type entry struct {
		path string
		mod  time.Time
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: m, mod: info.ModTime()})
	}
	if len(entries) <= retain {
		return nil, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mod.Equal(entries[j].mod) {
			return entries[i].path > entries[j].path
		}
		return entries[i].mod.After(entries[j].mod)
	})

	var removed []string
	for _, e := range entries[retain:] {
		if err := os.Remove(e.path); err != nil {
			logger.Warning("Failed to prune backup %s: %v", e.path, err)
			continue
		}
		removed = append(removed, e.path)
	}
	return removed, nil
}

func (s *OperationService) newOperation(kind string, start time.Time) *models.Operation {
	return &models.Operation{
		ID:        uuid.New().String(),
		Operation: kind,
		StartedAt: start,
	}
}

// finish stamps the duration and publishes the entry to metrics and the
// journal. Journal failures are logged, never returned.
func (s *OperationService) finish(ctx context.Context, op *models.Operation) {
	elapsed := s.deps.Now().Sub(op.StartedAt)
	op.DurationMs = elapsed.Milliseconds()

	if s.deps.Metrics != nil {
		s.deps.Metrics.Observe(op.Operation, op.Status, elapsed)
	}
	if s.deps.Journal != nil {
		if err := s.deps.Journal.RecordOperation(context.WithoutCancel(ctx), op); err != nil {
			logger.Error("Failed to journal %s operation %s: %v", op.Operation, op.ID, err)
		}
	}
}

func describe(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backup file missing after dump: %w", err)
	}
	defer f.Close()

	h := xxh3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum backup: %w", err)
	}

	return &Artifact{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     n,
		Checksum: fmt.Sprintf("xxh3:%016x", h.Sum64()),
	}, nil
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r < 0x20 {
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "database"
	}
	return s
}
