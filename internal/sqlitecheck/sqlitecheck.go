// Package sqlitecheck opens candidate SQLite files read-only and reports
// what tables they hold, without modifying them.
package sqlitecheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// PreviewLimit caps the table names returned in a Report.
const PreviewLimit = 10

// AllowedExtensions lists the suffixes accepted for server-local SQLite paths.
var AllowedExtensions = []string{".db", ".sqlite", ".sqlite3"}

// ErrNotADatabase marks files the SQLite engine refuses to read as a database.
var ErrNotADatabase = errors.New("not a valid SQLite database")

// Report summarises a SQLite file.
type Report struct {
	TableCount int      `json:"table_count"`
	Tables     []string `json:"tables"`
}

// Inspect lists the tables in the SQLite file at path, in sqlite_master order.
func Inspect(ctx context.Context, path string) (*Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(abs))
	if err != nil {
		return nil, classify(err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	report := &Report{Tables: []string{}}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err)
		}
		report.TableCount++
		if len(report.Tables) < PreviewLimit {
			report.Tables = append(report.Tables, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return report, nil
}

// HasAllowedExtension reports whether path ends in one of AllowedExtensions.
func HasAllowedExtension(path string) bool {
	for _, ext := range AllowedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func readOnlyDSN(abs string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String()
}

// classify wraps engine errors that mean "this is not a database" with
// ErrNotADatabase and leaves everything else untouched.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return fmt.Errorf("%w: %s", ErrNotADatabase, sqliteErr.Error())
		}
	}
	return err
}
