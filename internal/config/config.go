// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".armis/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
	// DefaultDataDir is the default data directory, relative to home
	DefaultDataDir = ".armis/data"
	// EnvPrefix prefixes environment overrides, e.g. ARMIS_SERVER_PORT
	EnvPrefix = "ARMIS"
)

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	"backend":   "storage.backend",
	"data-dir":  "storage.data_dir",
	"log-level": "log.level",
	"log-mode":  "log.mode",
}

// Load reads configuration from ~/.armis/configs/config.json. A missing
// file is not an error; defaults and environment overrides still apply.
func Load() (*Config, error) {
	return LoadWithFlags("", nil)
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags loads configuration from path (or the default location
// when empty) and applies environment variables and changed flags on
// top. Precedence: flags, environment, file, defaults.
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, filepath.Ext(DefaultConfigFile)))
		v.AddConfigPath(filepath.Join(homeDir, DefaultConfigDir))
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Origins from the environment arrive comma separated
	cfg.Server.CORSOrigins = splitComma(strings.Join(cfg.Server.CORSOrigins, ","))

	cfg.Storage.DataDir = ExpandHome(cfg.Storage.DataDir)
	cfg.Storage.SQL.SQLitePath = ExpandHome(cfg.Storage.SQL.SQLitePath)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")
	v.SetDefault("server.shutdown_timeout_seconds", d.Server.ShutdownTimeout)

	// Storage defaults
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.file_name", d.Storage.FileName)
	v.SetDefault("storage.sql.type", d.Storage.SQL.Type)
	v.SetDefault("storage.sql.sqlite_path", d.Storage.SQL.SQLitePath)
	v.SetDefault("storage.sql.postgres_dsn", "")
	v.SetDefault("storage.sql.busy_timeout_ms", d.Storage.SQL.BusyTimeoutMS)
	v.SetDefault("storage.sql.max_open_conns", d.Storage.SQL.MaxOpenConns)

	v.SetDefault("ingest.max_file_size_bytes", d.Ingest.MaxFileSize)
	v.SetDefault("ingest.max_upload_bytes", d.Ingest.MaxUploadSize)

	// Scraper defaults
	v.SetDefault("scraper.timeout_seconds", d.Scraper.Timeout)
	v.SetDefault("scraper.user_agent", d.Scraper.UserAgent)
	v.SetDefault("scraper.max_content_length", d.Scraper.MaxContentLength)
	v.SetDefault("scraper.max_redirects", d.Scraper.MaxRedirects)

	// History defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.interval_minutes", d.History.Interval)
	v.SetDefault("history.author", d.History.Author)
	v.SetDefault("history.email", d.History.Email)

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.level", d.Log.Level)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when tls is enabled")
	}
	if cfg.Server.ShutdownTimeout < 1 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be at least 1, got %d", cfg.Server.ShutdownTimeout)
	}

	if !IsValidBackend(cfg.Storage.Backend) {
		return fmt.Errorf("storage.backend must be one of %v, got '%s'", ValidBackends(), cfg.Storage.Backend)
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if cfg.Storage.Backend == BackendJSON && cfg.Storage.FileName == "" {
		return fmt.Errorf("storage.file_name is required when backend is 'json'")
	}

	// Validate database settings only for the sql backend
	if cfg.Storage.Backend == BackendSQL {
		sql := cfg.Storage.SQL
		if !isValidType(sql.Type, ValidDatabaseTypes()) {
			return fmt.Errorf("storage.sql.type must be 'sqlite' or 'postgres', got '%s'", sql.Type)
		}
		if sql.Type == DatabaseSQLite && sql.SQLitePath == "" {
			return fmt.Errorf("storage.sql.sqlite_path is required when type is 'sqlite'")
		}
		if sql.Type == DatabasePostgres && sql.PostgresDSN == "" {
			return fmt.Errorf("storage.sql.postgres_dsn is required when type is 'postgres'")
		}
		if sql.BusyTimeoutMS < 0 {
			return fmt.Errorf("storage.sql.busy_timeout_ms must not be negative, got %d", sql.BusyTimeoutMS)
		}
		if sql.MaxOpenConns < 1 {
			return fmt.Errorf("storage.sql.max_open_conns must be at least 1, got %d", sql.MaxOpenConns)
		}
	}

	if cfg.Ingest.MaxFileSize < 1 {
		return fmt.Errorf("ingest.max_file_size_bytes must be positive, got %d", cfg.Ingest.MaxFileSize)
	}
	if cfg.Ingest.MaxUploadSize < cfg.Ingest.MaxFileSize {
		return fmt.Errorf("ingest.max_upload_bytes must be at least ingest.max_file_size_bytes, got %d", cfg.Ingest.MaxUploadSize)
	}

	if cfg.Scraper.Timeout < 1 {
		return fmt.Errorf("scraper.timeout_seconds must be at least 1, got %d", cfg.Scraper.Timeout)
	}
	if cfg.Scraper.MaxContentLength < 1 {
		return fmt.Errorf("scraper.max_content_length must be positive, got %d", cfg.Scraper.MaxContentLength)
	}
	if cfg.Scraper.MaxRedirects < 0 {
		return fmt.Errorf("scraper.max_redirects must not be negative, got %d", cfg.Scraper.MaxRedirects)
	}

	// History snapshots version the json data file only
	if cfg.History.Enabled {
		if cfg.Storage.Backend != BackendJSON {
			return fmt.Errorf("history requires storage.backend 'json', got '%s'", cfg.Storage.Backend)
		}
		if cfg.History.Interval < 1 {
			return fmt.Errorf("history.interval_minutes must be at least 1, got %d", cfg.History.Interval)
		}
	}

	if cfg.Log.Mode != LogModeDevelopment && cfg.Log.Mode != LogModeProduction {
		return fmt.Errorf("log.mode must be 'development' or 'production', got '%s'", cfg.Log.Mode)
	}
	if !isValidType(strings.ToLower(cfg.Log.Level), ValidLogLevels()) {
		return fmt.Errorf("log.level must be one of %v, got '%s'", ValidLogLevels(), cfg.Log.Level)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

func splitComma(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, DefaultDataDir)

	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            3001,
			CORSOrigins:     []string{},
			ShutdownTimeout: 10,
		},
		Storage: StorageConfig{
			Backend:  BackendJSON,
			DataDir:  dataDir,
			FileName: "context-items.json",
			SQL: SQLConfig{
				Type:          DatabaseSQLite,
				SQLitePath:    filepath.Join(dataDir, "armis.db"),
				BusyTimeoutMS: 5000,
				MaxOpenConns:  10,
			},
		},
		Ingest: IngestConfig{
			MaxFileSize:   10 << 20,
			MaxUploadSize: 100 << 20,
		},
		Scraper: ScraperConfig{
			Timeout:          30,
			UserAgent:        "Mozilla/5.0 (compatible; Armis/1.0; +https://github.com/tejzpr/armis)",
			MaxContentLength: 50000,
			MaxRedirects:     10,
		},
		History: HistoryConfig{
			Interval: 60,
			Author:   "Armis",
			Email:    "armis@localhost",
		},
		Log: LogConfig{
			Mode:  LogModeProduction,
			Level: "info",
		},
	}
}
