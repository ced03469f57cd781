package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AI2HU/sqlite2pg/internal/db"
	"github.com/AI2HU/sqlite2pg/internal/models"
)

// DefaultListLimit applies when ListOperations gets a non-positive limit
const DefaultListLimit = 50

// Ensure SQLite implements the journal interface.
var _ db.Journal = (*SQLite)(nil)

// SQLite implements the Journal interface for SQLite
type SQLite struct {
	db     *sql.DB
	config *models.Config
}

// New creates a new SQLite journal instance
func New(config *models.Config) (*SQLite, error) {
	if config == nil || config.URI == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	return &SQLite{
		config: config,
	}, nil
}

// Connect establishes connection to SQLite and applies migrations
func (s *SQLite) Connect(ctx context.Context) error {
	// Expand the URI path (handle ~ and relative paths)
	dbPath := s.config.URI
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	} else if !filepath.IsAbs(dbPath) {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		dbPath = absPath
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open SQLite database at path '%s': %w", dbPath, err)
	}

	// Test the connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping SQLite database at path '%s': %w", dbPath, err)
	}

	if err := db.RunMigrations(ctx, conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = conn
	return nil
}

// Disconnect closes the SQLite connection
func (s *SQLite) Disconnect(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// GetDatabase returns the underlying handle for read-only aggregation
func (s *SQLite) GetDatabase() *sql.DB {
	return s.db
}

// Ping checks the database connection
func (s *SQLite) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected to database")
	}
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the applied migration version
func (s *SQLite) SchemaVersion() (uint, error) {
	if s.db == nil {
		return 0, fmt.Errorf("not connected to database")
	}
	version, _, err := db.SchemaVersion(s.db)
	return version, err
}

// RecordOperation inserts a journal entry
func (s *SQLite) RecordOperation(ctx context.Context, op *models.Operation) error {
	if s.db == nil {
		return fmt.Errorf("not connected to database")
	}
	if op.StartedAt.IsZero() {
		op.StartedAt = time.Now()
	}

	query := `
		INSERT INTO operations (id, operation, status, message, source, target, artifact, checksum, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		op.ID,
		op.Operation,
		op.Status,
		op.Message,
		op.Source,
		op.Target,
		op.Artifact,
		op.Checksum,
		op.StartedAt.UTC(),
		op.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}

	return nil
}

// GetOperation retrieves a journal entry by ID
func (s *SQLite) GetOperation(ctx context.Context, id string) (*models.Operation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("not connected to database")
	}

	query := `
		SELECT id, operation, status, message, source, target, artifact, checksum, started_at, duration_ms
		FROM operations WHERE id = ?`

	op, err := scanOperation(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return op, nil
}

// ListOperations returns the most recent entries first
func (s *SQLite) ListOperations(ctx context.Context, limit int) ([]*models.Operation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("not connected to database")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, operation, status, message, source, target, artifact, checksum, started_at, duration_ms
		FROM operations ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	ops := []*models.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*models.Operation, error) {
	var op models.Operation
	err := row.Scan(
		&op.ID,
		&op.Operation,
		&op.Status,
		&op.Message,
		&op.Source,
		&op.Target,
		&op.Artifact,
		&op.Checksum,
		&op.StartedAt,
		&op.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}
