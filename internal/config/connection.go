package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/AI2HU/sqlite2pg/internal/logger"
)

// Default connection values, applied to missing form fields and to a
// freshly created connection file.
const (
	DefaultHost     = "localhost"
	DefaultPort     = "5432"
	DefaultDatabase = "moviepilot"
	DefaultUser     = "moviepilot"
	DefaultPassword = "moviepilot"
)

// Connection is the persisted PostgreSQL target record.
type Connection struct {
	Host     string `json:"pg_host" form:"pg_host"`
	Port     string `json:"pg_port" form:"pg_port"`
	Database string `json:"pg_database" form:"pg_database"`
	User     string `json:"pg_user" form:"pg_user"`
	Password string `json:"pg_password" form:"pg_password"`
}

// DefaultConnection returns the record used when nothing has been saved.
func DefaultConnection() Connection {
	return Connection{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Database: DefaultDatabase,
		User:     DefaultUser,
		Password: DefaultPassword,
	}
}

// WithDefaults fills empty fields from DefaultConnection.
func (c Connection) WithDefaults() Connection {
	d := DefaultConnection()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.User == "" {
		c.User = d.User
	}
	if c.Password == "" {
		c.Password = d.Password
	}
	return c
}

// URL returns the postgresql:// connection string with escaped credentials.
func (c Connection) URL() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// Env returns the environment entries that carry the password to libpq tools.
func (c Connection) Env() []string {
	return []string{"PGPASSWORD=" + c.Password}
}

// Redacted describes the target without the password, for logs.
func (c Connection) Redacted() string {
	return fmt.Sprintf("%s@%s/%s", c.User, net.JoinHostPort(c.Host, c.Port), c.Database)
}

// ConnectionStore persists a single Connection as JSON.
type ConnectionStore struct {
	mu   sync.Mutex
	path string
}

// NewConnectionStore creates a store backed by the file at path.
func NewConnectionStore(path string) *ConnectionStore {
	return &ConnectionStore{path: path}
}

// Path returns the backing file path.
func (s *ConnectionStore) Path() string {
	return s.path
}

// Load returns the stored record. A missing file is created with defaults;
// an unreadable or malformed file yields the defaults without an error.
func (s *ConnectionStore) Load() (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		def := DefaultConnection()
		if err := s.write(def); err != nil {
			return Connection{}, err
		}
		return def, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		logger.Warning("Failed to read connection file %s, using defaults: %v", s.path, err)
		return DefaultConnection(), nil
	}

	var conn Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		logger.Warning("Malformed connection file %s, using defaults: %v", s.path, err)
		return DefaultConnection(), nil
	}

	return conn, nil
}

// Save overwrites the stored record.
func (s *ConnectionStore) Save(conn Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(conn)
}

// write replaces the file via a temp file and rename so readers never see a
// partial record.
func (s *ConnectionStore) write(conn Connection) error {
	data, err := json.MarshalIndent(conn, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".connection-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write connection file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write connection file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set connection file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace connection file: %w", err)
	}

	return nil
}
