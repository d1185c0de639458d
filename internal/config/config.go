// Package config loads and stores sqlbench configuration.
// Only non-secret settings are kept here; the API token and saved DSNs go to the
// OS keychain (see internal/keychain).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "sqlbench/cli/internal/errors"
	"sqlbench/cli/internal/xdg"

	"gopkg.in/yaml.v3"
)

// ID schemes understood by the session registry.
const (
	IDSchemeCounter = "counter"
	IDSchemeUUID    = "uuid"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	// BackendURL is the base URL of the REST Query Service.
	BackendURL string `koanf:"backend_url" yaml:"backend_url"`
	// DSN switches to direct mode when set (postgres:// or sqlite).
	DSN string `koanf:"dsn" yaml:"-"`
	// Database is the database context passed with every statement.
	Database       string        `koanf:"database" yaml:"database,omitempty"`
	LogLevel       string        `koanf:"log_level" yaml:"log_level"`
	LogFormat      string        `koanf:"log_format" yaml:"log_format"`
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
	QueryTimeout   time.Duration `koanf:"query_timeout" yaml:"query_timeout"`
	MaxRows        int           `koanf:"max_rows" yaml:"max_rows"`
	IDScheme       string        `koanf:"id_scheme" yaml:"id_scheme"`
	// Listen is the address used by 'sqlbench serve'.
	Listen string `koanf:"listen" yaml:"listen"`
	// DefaultDraft replaces the placeholder draft of new tabs.
	DefaultDraft string `koanf:"default_draft" yaml:"default_draft,omitempty"`
	// AuditLog is a file that receives one JSON line per statement batch run
	// in direct mode. Empty disables auditing.
	AuditLog string `koanf:"audit_log" yaml:"audit_log,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BackendURL:     "http://localhost:8000",
		LogLevel:       "info",
		LogFormat:      "text",
		RequestTimeout: 30 * time.Second,
		QueryTimeout:   30 * time.Second,
		MaxRows:        10000,
		IDScheme:       IDSchemeCounter,
		Listen:         "127.0.0.1:8000",
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxRows <= 0 {
		return apperrors.New(apperrors.ConfigInvalid, fmt.Sprintf("max_rows must be positive, got %d", c.MaxRows))
	}
	if c.RequestTimeout <= 0 || c.QueryTimeout <= 0 {
		return apperrors.New(apperrors.ConfigInvalid, "timeouts must be positive")
	}
	switch c.IDScheme {
	case IDSchemeCounter, IDSchemeUUID:
	default:
		return apperrors.New(apperrors.ConfigInvalid, fmt.Sprintf("unknown id_scheme %q", c.IDScheme))
	}
	return nil
}

// DefaultPath returns the path to the config file in the XDG config dir.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes configuration with 0600 permissions. The DSN is never written.
func Save(path string, c Config) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
