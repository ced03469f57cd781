// Package staging persists uploaded files under a local directory for a
// single tool invocation.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AI2HU/sqlite2pg/internal/logger"
)

// Area is a directory that holds staged uploads.
type Area struct {
	dir string
}

// New returns an Area rooted at dir, creating it if needed.
func New(dir string) (*Area, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Area{dir: dir}, nil
}

// File is one staged upload.
type File struct {
	Path         string
	OriginalName string
	Size         int64

	once sync.Once
}

// Stage copies r into a uniquely named file. The client-supplied name only
// contributes its base name, so it can never escape the staging directory.
func (a *Area) Stage(originalName string, r io.Reader) (*File, error) {
	path := filepath.Join(a.dir, uuid.New().String()+"-"+sanitize(originalName))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr != nil {
			return nil, fmt.Errorf("failed to write staged file: %w", copyErr)
		}
		return nil, fmt.Errorf("failed to write staged file: %w", closeErr)
	}

	logger.Debug("Staged %q as %s (%d bytes)", originalName, path, n)
	return &File{Path: path, OriginalName: originalName, Size: n}, nil
}

// Remove deletes the staged file. Safe to call more than once.
func (f *File) Remove() {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			logger.Warning("Failed to remove staged file %s: %v", f.Path, err)
		}
	})
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
