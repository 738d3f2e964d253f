// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Documents DocumentsConfig `yaml:"documents"`
	GraphQL   GraphQLConfig   `yaml:"graphql"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the document store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mongo"
	DSN    string `yaml:"dsn"`    // sqlite path or mongodb:// URI
	Name   string `yaml:"name"`   // mongo database name
}

// DocumentsConfig locates document definition files.
type DocumentsConfig struct {
	Dir string `yaml:"dir"`
}

// GraphQLConfig configures the GraphQL endpoints.
type GraphQLConfig struct {
	Path        string        `yaml:"path"`
	WSPath      string        `yaml:"ws_path"`
	CORSOrigins []string      `yaml:"cors_origins"`
	KeepAlive   time.Duration `yaml:"keep_alive"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	DOCGRAPH_SERVER_HOST       - Server host (default: 0.0.0.0)
//	DOCGRAPH_SERVER_PORT       - Server port (default: 8080)
//	DOCGRAPH_DATABASE_DRIVER   - sqlite or mongo (default: sqlite)
//	DOCGRAPH_DATABASE_DSN      - Database path or URI (default: docgraph.db)
//	DOCGRAPH_DATABASE_NAME     - Mongo database name (default: docgraph)
//	DOCGRAPH_DOCUMENTS_DIR     - Definition directory (default: documents)
//	DOCGRAPH_GRAPHQL_PATH      - GraphQL endpoint (default: /graphql)
//	DOCGRAPH_GRAPHQL_WS_PATH   - Subscription endpoint (default: /graphql/ws)
//	DOCGRAPH_CORS_ORIGINS      - Comma separated allowed origins
//	DOCGRAPH_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	DOCGRAPH_LOG_FORMAT        - Log format: json or console (default: json)
//	DOCGRAPH_METRICS_ENABLED   - Enable /metrics endpoint
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path if it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies DOCGRAPH_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("DOCGRAPH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DOCGRAPH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DOCGRAPH_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("DOCGRAPH_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("DOCGRAPH_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DOCGRAPH_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DOCGRAPH_DATABASE_NAME"); v != "" {
		cfg.Database.Name = v
	}

	if v := os.Getenv("DOCGRAPH_DOCUMENTS_DIR"); v != "" {
		cfg.Documents.Dir = v
	}

	// GraphQL configuration
	if v := os.Getenv("DOCGRAPH_GRAPHQL_PATH"); v != "" {
		cfg.GraphQL.Path = v
	}
	if v := os.Getenv("DOCGRAPH_GRAPHQL_WS_PATH"); v != "" {
		cfg.GraphQL.WSPath = v
	}
	if v := os.Getenv("DOCGRAPH_CORS_ORIGINS"); v != "" {
		cfg.GraphQL.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("DOCGRAPH_GRAPHQL_KEEP_ALIVE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GraphQL.KeepAlive = d
		}
	}

	// Logging configuration
	if v := os.Getenv("DOCGRAPH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCGRAPH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("DOCGRAPH_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("DOCGRAPH_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.DSN = "docgraph.db"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "docgraph"
	}

	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = "documents"
	}

	if cfg.GraphQL.Path == "" {
		cfg.GraphQL.Path = "/graphql"
	}
	if cfg.GraphQL.WSPath == "" {
		cfg.GraphQL.WSPath = "/graphql/ws"
	}
	if len(cfg.GraphQL.CORSOrigins) == 0 {
		cfg.GraphQL.CORSOrigins = []string{"*"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case DriverSQLite:
	case DriverMongo:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.driver is 'mongo'")
		}
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'mongo', got %q", cfg.Database.Driver)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	for name, path := range map[string]string{
		"graphql.path":    cfg.GraphQL.Path,
		"graphql.ws_path": cfg.GraphQL.WSPath,
		"metrics.path":    cfg.Metrics.Path,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with '/', got %q", name, path)
		}
	}
	if cfg.GraphQL.Path == cfg.GraphQL.WSPath {
		return fmt.Errorf("graphql.path and graphql.ws_path must differ")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
