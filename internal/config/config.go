// Package config loads the migration settings from environment variables.
// Defaults cover everything except the database URL, and Validate reports
// every problem at once so a misconfigured run fails before touching data.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/logging"
)

// Config holds all migration configuration.
type Config struct {
	Database DatabaseConfig
	Migrate  MigrateConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds target database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true" offline:"optional"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// ConnectTimeout bounds the initial connect and ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// MigrateConfig holds the export locations and load behaviour.
type MigrateConfig struct {
	ClientsFile string `env:"MIGRATE_CLIENTS_FILE" default:"clients.sql"`
	DevisFile   string `env:"MIGRATE_DEVIS_FILE" default:"devis.sql"`

	// Table names as they appear in the INSERT statements of the exports.
	ClientsTable string `env:"MIGRATE_CLIENTS_TABLE" default:"clients"`
	DevisTable   string `env:"MIGRATE_DEVIS_TABLE" default:"devis"`

	// CountryCode selects the reference country every client is attached to.
	CountryCode string `env:"MIGRATE_COUNTRY_CODE" default:"FR"`

	// ProgressEvery is the progress log interval in rows (default: 100)
	ProgressEvery int `env:"MIGRATE_PROGRESS_EVERY" default:"100"`

	// MaxFileSize caps each export in bytes (default: 512MB)
	MaxFileSize int64 `env:"MIGRATE_MAX_FILE_SIZE" default:"536870912"`

	// Charset is the export encoding: utf-8, latin1 or windows-1252
	Charset string `env:"MIGRATE_CHARSET" default:"utf-8"`

	// RequireOverlap aborts before wiping when the exports share no client.
	RequireOverlap bool `env:"MIGRATE_REQUIRE_OVERLAP" default:"false"`

	DefaultClientName string `env:"MIGRATE_DEFAULT_CLIENT_NAME" default:"Sans nom"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ReadOptions returns the dump reader settings.
func (c *MigrateConfig) ReadOptions() dump.ReadOptions {
	return dump.ReadOptions{MaxFileSize: c.MaxFileSize, Charset: c.Charset}
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	return c.validate(false)
}

func (c *Config) validate(offline bool) error {
	var errs []string

	// Database validation
	if c.Database.URL == "" && !offline {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be positive")
	}

	// Migration validation
	if strings.TrimSpace(c.Migrate.ClientsFile) == "" {
		errs = append(errs, "MIGRATE_CLIENTS_FILE must not be empty")
	}
	if strings.TrimSpace(c.Migrate.DevisFile) == "" {
		errs = append(errs, "MIGRATE_DEVIS_FILE must not be empty")
	}
	if strings.TrimSpace(c.Migrate.ClientsTable) == "" || strings.TrimSpace(c.Migrate.DevisTable) == "" {
		errs = append(errs, "MIGRATE_CLIENTS_TABLE and MIGRATE_DEVIS_TABLE must not be empty")
	}
	if strings.TrimSpace(c.Migrate.CountryCode) == "" {
		errs = append(errs, "MIGRATE_COUNTRY_CODE must not be empty")
	}
	if c.Migrate.ProgressEvery <= 0 {
		errs = append(errs, "MIGRATE_PROGRESS_EVERY must be positive")
	}
	if c.Migrate.MaxFileSize <= 0 {
		errs = append(errs, "MIGRATE_MAX_FILE_SIZE must be positive")
	}
	if !dump.ValidCharset(c.Migrate.Charset) {
		errs = append(errs, fmt.Sprintf("MIGRATE_CHARSET (%q) must be one of: utf-8, latin1, windows-1252", c.Migrate.Charset))
	}

	// Logging validation
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	if !logging.ValidFormat(c.Logging.Format) {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// maskURL hides the password of a connection URL. Anything that does not
// parse as a URL is masked entirely.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[MASKED]"
	}
	return u.Redacted()
}

// String returns a safe string representation of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		maskURL(c.Database.URL), c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Migrate: {ClientsFile: %q, DevisFile: %q, Country: %q, Charset: %q, RequireOverlap: %v}, ",
		c.Migrate.ClientsFile, c.Migrate.DevisFile, c.Migrate.CountryCode, c.Migrate.Charset, c.Migrate.RequireOverlap)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
