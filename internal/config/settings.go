package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. SQLITE2PG_SERVER_PORT.
const EnvPrefix = "SQLITE2PG"

// Settings represents the application configuration
type Settings struct {
	Server ServerSettings `yaml:"server" mapstructure:"server"`
	Paths  PathSettings   `yaml:"paths" mapstructure:"paths"`
	Tools  ToolSettings   `yaml:"tools" mapstructure:"tools"`
	Limits LimitSettings  `yaml:"limits" mapstructure:"limits"`
	Backup BackupSettings `yaml:"backup" mapstructure:"backup"`
	Log    LogSettings    `yaml:"log" mapstructure:"log"`
}

// ServerSettings controls the HTTP listener
type ServerSettings struct {
	Host       string `yaml:"host" mapstructure:"host"`
	Port       int    `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	CORSOrigin string `yaml:"cors_origin" mapstructure:"cors_origin"`
}

// PathSettings locates every file and directory the service touches
type PathSettings struct {
	ConnectionFile string `yaml:"connection_file" mapstructure:"connection_file" validate:"required"`
	UploadDir      string `yaml:"upload_dir" mapstructure:"upload_dir" validate:"required"`
	ExportDir      string `yaml:"export_dir" mapstructure:"export_dir" validate:"required"`
	Journal        string `yaml:"journal" mapstructure:"journal" validate:"required"`
}

// ToolSettings names the external binaries and their run bound
type ToolSettings struct {
	Pgloader string        `yaml:"pgloader" mapstructure:"pgloader" validate:"required"`
	PgDump   string        `yaml:"pg_dump" mapstructure:"pg_dump" validate:"required"`
	Psql     string        `yaml:"psql" mapstructure:"psql" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// LimitSettings bounds request sizes and tool concurrency. Zero disables a limit.
type LimitSettings struct {
	MaxUploadMB       int64 `yaml:"max_upload_mb" mapstructure:"max_upload_mb" validate:"gte=0"`
	MaxConcurrentJobs int64 `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs" validate:"gte=0"`
	JobsPerMinute     int   `yaml:"jobs_per_minute" mapstructure:"jobs_per_minute" validate:"gte=0"`
}

// BackupSettings configures scheduled dumps
type BackupSettings struct {
	Schedule string `yaml:"schedule" mapstructure:"schedule"` // cron expression, empty disables
	Retain   int    `yaml:"retain" mapstructure:"retain" validate:"gte=0"`
}

// LogSettings configures the global logger
type LogSettings struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
	File   string `yaml:"file" mapstructure:"file"`
}

// DefaultSettings returns a default configuration
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Host:       "0.0.0.0",
			Port:       5055,
			CORSOrigin: "*",
		},
		Paths: PathSettings{
			ConnectionFile: "config.json",
			UploadDir:      "uploads",
			ExportDir:      "exports",
			Journal:        "sqlite2pg.db",
		},
		Tools: ToolSettings{
			Pgloader: "pgloader",
			PgDump:   "pg_dump",
			Psql:     "psql",
			Timeout:  10 * time.Minute,
		},
		Limits: LimitSettings{
			MaxUploadMB: 1024,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadSettings loads configuration from path, falling back to defaults for
// missing keys. Environment variables override file values. A missing file
// is not an error.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" && Exists(path) {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	v.SetDefault("paths.connection_file", d.Paths.ConnectionFile)
	v.SetDefault("paths.upload_dir", d.Paths.UploadDir)
	v.SetDefault("paths.export_dir", d.Paths.ExportDir)
	v.SetDefault("paths.journal", d.Paths.Journal)
	v.SetDefault("tools.pgloader", d.Tools.Pgloader)
	v.SetDefault("tools.pg_dump", d.Tools.PgDump)
	v.SetDefault("tools.psql", d.Tools.Psql)
	v.SetDefault("tools.timeout", d.Tools.Timeout)
	v.SetDefault("limits.max_upload_mb", d.Limits.MaxUploadMB)
	v.SetDefault("limits.max_concurrent_jobs", d.Limits.MaxConcurrentJobs)
	v.SetDefault("limits.jobs_per_minute", d.Limits.JobsPerMinute)
	v.SetDefault("backup.schedule", d.Backup.Schedule)
	v.SetDefault("backup.retain", d.Backup.Retain)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// Validate checks field constraints
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// settingsFile mirrors Settings for YAML output with a readable timeout.
type settingsFile struct {
	Server ServerSettings `yaml:"server"`
	Paths  PathSettings   `yaml:"paths"`
	Tools  struct {
		Pgloader string `yaml:"pgloader"`
		PgDump   string `yaml:"pg_dump"`
		Psql     string `yaml:"psql"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"tools"`
	Limits LimitSettings  `yaml:"limits"`
	Backup BackupSettings `yaml:"backup"`
	Log    LogSettings    `yaml:"log"`
}

// Save saves configuration to file
func (s *Settings) Save(path string) error {
	out := settingsFile{
		Server: s.Server,
		Paths:  s.Paths,
		Limits: s.Limits,
		Backup: s.Backup,
		Log:    s.Log,
	}
	out.Tools.Pgloader = s.Tools.Pgloader
	out.Tools.PgDump = s.Tools.PgDump
	out.Tools.Psql = s.Tools.Psql
	out.Tools.Timeout = s.Tools.Timeout.String()

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetSettingsPath returns the default settings file path. SQLITE2PG_CONFIG_PATH
// takes precedence over the working-directory default.
func GetSettingsPath() string {
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return "sqlite2pg.yaml"
}

// Exists checks if config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
