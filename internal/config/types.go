// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// TLSConfig holds HTTPS settings
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string    `mapstructure:"host"`
	Port            int       `mapstructure:"port"`
	CORSOrigins     []string  `mapstructure:"cors_origins"` // empty allows any origin
	TLS             TLSConfig `mapstructure:"tls"`
	ShutdownTimeout int       `mapstructure:"shutdown_timeout_seconds"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend  string    `mapstructure:"backend"` // "json", "sql" or "badger"
	DataDir  string    `mapstructure:"data_dir"`
	FileName string    `mapstructure:"file_name"`
	SQL      SQLConfig `mapstructure:"sql"`
}

// SQLConfig holds database connection settings for the sql backend
type SQLConfig struct {
	Type          string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"` // sqlite only
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
}

// IngestConfig limits file ingestion
type IngestConfig struct {
	MaxFileSize   int64 `mapstructure:"max_file_size_bytes"`
	MaxUploadSize int64 `mapstructure:"max_upload_bytes"` // whole request body
}

// ScraperConfig configures the web page fetcher
type ScraperConfig struct {
	Timeout          int    `mapstructure:"timeout_seconds"`
	UserAgent        string `mapstructure:"user_agent"`
	MaxContentLength int    `mapstructure:"max_content_length"`
	MaxRedirects     int    `mapstructure:"max_redirects"`
}

// HistoryConfig controls git snapshots of the data directory
type HistoryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval int    `mapstructure:"interval_minutes"`
	Author   string `mapstructure:"author"`
	Email    string `mapstructure:"email"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Mode  string `mapstructure:"mode"` // "development" or "production"
	Level string `mapstructure:"level"`
}

// Storage backends
const (
	BackendJSON   = "json"
	BackendSQL    = "sql"
	BackendBadger = "badger"
)

// SQL database types
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Log modes
const (
	LogModeDevelopment = "development"
	LogModeProduction  = "production"
)

// ValidBackends returns all valid storage backend values
func ValidBackends() []string {
	return []string{BackendJSON, BackendSQL, BackendBadger}
}

// ValidDatabaseTypes returns all valid sql database types
func ValidDatabaseTypes() []string {
	return []string{DatabaseSQLite, DatabasePostgres}
}

// ValidLogLevels returns the accepted log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// isValidType is a generic helper to check if a type is in a list of valid types
func isValidType(aType string, validTypes []string) bool {
	for _, valid := range validTypes {
		if aType == valid {
			return true
		}
	}
	return false
}

// IsValidBackend checks if a storage backend is valid
func IsValidBackend(backend string) bool {
	return isValidType(backend, ValidBackends())
}
