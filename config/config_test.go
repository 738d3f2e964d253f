package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/docgraph/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  shutdown_timeout: 3s

database:
  driver: "mongo"
  dsn: "mongodb://localhost:27017"
  name: "library"

documents:
  dir: "./defs"

graphql:
  path: "/api/graphql"
  ws_path: "/api/graphql/ws"
  cors_origins: ["https://app.example.com"]
  keep_alive: 15s

logging:
  level: "debug"
  format: "console"

metrics:
  enabled: true
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Driver != config.DriverMongo || cfg.Database.Name != "library" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Documents.Dir != "./defs" {
		t.Errorf("Documents.Dir = %s, want ./defs", cfg.Documents.Dir)
	}
	if cfg.GraphQL.Path != "/api/graphql" || cfg.GraphQL.WSPath != "/api/graphql/ws" {
		t.Errorf("GraphQL paths = %s, %s", cfg.GraphQL.Path, cfg.GraphQL.WSPath)
	}
	if len(cfg.GraphQL.CORSOrigins) != 1 || cfg.GraphQL.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.GraphQL.CORSOrigins)
	}
	if cfg.GraphQL.KeepAlive != 15*time.Second {
		t.Errorf("KeepAlive = %v, want 15s", cfg.GraphQL.KeepAlive)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Errorf("default Database.Driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "docgraph.db" {
		t.Errorf("default Database.DSN = %s, want docgraph.db", cfg.Database.DSN)
	}
	if cfg.Documents.Dir != "documents" {
		t.Errorf("default Documents.Dir = %s, want documents", cfg.Documents.Dir)
	}
	if cfg.GraphQL.Path != "/graphql" || cfg.GraphQL.WSPath != "/graphql/ws" {
		t.Errorf("default GraphQL paths = %s, %s", cfg.GraphQL.Path, cfg.GraphQL.WSPath)
	}
	if len(cfg.GraphQL.CORSOrigins) != 1 || cfg.GraphQL.CORSOrigins[0] != "*" {
		t.Errorf("default CORSOrigins = %v", cfg.GraphQL.CORSOrigins)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled by default")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DOCS_DIR", "/srv/docs")

	cfg := writeAndLoad(t, `
documents:
  dir: "${TEST_DOCS_DIR}"
`)

	if cfg.Documents.Dir != "/srv/docs" {
		t.Errorf("Documents.Dir = %s, want /srv/docs", cfg.Documents.Dir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown driver", "database:\n  driver: postgres\n", "database.driver"},
		{"mongo without dsn", "database:\n  driver: mongo\n", "database.dsn"},
		{"relative path", "graphql:\n  path: graphql\n", "graphql.path"},
		{"same paths", "graphql:\n  path: /q\n  ws_path: /q\n", "must differ"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"invalid yaml", "server: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("DOCGRAPH_SERVER_PORT", "7777")
	t.Setenv("DOCGRAPH_LOG_LEVEL", "error")

	cfg := writeAndLoad(t, `
server:
  port: 8080
logging:
  level: "info"
documents:
  dir: "from-file"
`)

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %s, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Documents.Dir != "from-file" {
		t.Errorf("Documents.Dir = %s, want from-file", cfg.Documents.Dir)
	}
}

func TestEnvOverrides_All(t *testing.T) {
	env := map[string]string{
		"DOCGRAPH_SERVER_HOST":          "127.0.0.2",
		"DOCGRAPH_SERVER_PORT":          "9999",
		"DOCGRAPH_SERVER_READ_TIMEOUT":  "5s",
		"DOCGRAPH_SERVER_WRITE_TIMEOUT": "6s",
		"DOCGRAPH_DATABASE_DRIVER":      "mongo",
		"DOCGRAPH_DATABASE_DSN":         "mongodb://db:27017",
		"DOCGRAPH_DATABASE_NAME":        "docs",
		"DOCGRAPH_DOCUMENTS_DIR":        "/defs",
		"DOCGRAPH_GRAPHQL_PATH":         "/gql",
		"DOCGRAPH_GRAPHQL_WS_PATH":      "/gql/ws",
		"DOCGRAPH_CORS_ORIGINS":         "https://a.example, https://b.example,",
		"DOCGRAPH_GRAPHQL_KEEP_ALIVE":   "20s",
		"DOCGRAPH_LOG_FORMAT":           "console",
		"DOCGRAPH_METRICS_ENABLED":      "yes",
		"DOCGRAPH_METRICS_PATH":         "/prom",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.2" || cfg.Server.Port != 9999 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout != 5*time.Second || cfg.Server.WriteTimeout != 6*time.Second {
		t.Errorf("timeouts = %v, %v", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Database.Driver != "mongo" || cfg.Database.DSN != "mongodb://db:27017" || cfg.Database.Name != "docs" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Documents.Dir != "/defs" {
		t.Errorf("Documents.Dir = %s", cfg.Documents.Dir)
	}
	if cfg.GraphQL.Path != "/gql" || cfg.GraphQL.WSPath != "/gql/ws" || cfg.GraphQL.KeepAlive != 20*time.Second {
		t.Errorf("GraphQL = %+v", cfg.GraphQL)
	}
	if len(cfg.GraphQL.CORSOrigins) != 2 || cfg.GraphQL.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.GraphQL.CORSOrigins)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/prom" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("DOCGRAPH_SERVER_PORT", "not-a-number")
	t.Setenv("DOCGRAPH_SERVER_READ_TIMEOUT", "soon")
	t.Setenv("DOCGRAPH_GRAPHQL_KEEP_ALIVE", "often")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want default 30s", cfg.Server.ReadTimeout)
	}
	if cfg.GraphQL.KeepAlive != 0 {
		t.Errorf("KeepAlive = %v, want 0", cfg.GraphQL.KeepAlive)
	}
}

func TestLoadWithFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("documents:\n  dir: from-file\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Documents.Dir != "from-file" {
		t.Errorf("Documents.Dir = %s, want from-file", cfg.Documents.Dir)
	}

	t.Setenv("DOCGRAPH_DOCUMENTS_DIR", "from-env")
	for _, p := range []string{"", "/nonexistent/config.yaml"} {
		cfg, err := config.LoadWithFallback(p)
		if err != nil {
			t.Fatalf("LoadWithFallback(%q) error: %v", p, err)
		}
		if cfg.Documents.Dir != "from-env" {
			t.Errorf("LoadWithFallback(%q) Documents.Dir = %s, want from-env", p, cfg.Documents.Dir)
		}
	}
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("DOCGRAPH_METRICS_ENABLED", tt.value)

			cfg, err := config.LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv error: %v", err)
			}
			if cfg.Metrics.Enabled != tt.expected {
				t.Errorf("value=%q: Metrics.Enabled = %v, want %v", tt.value, cfg.Metrics.Enabled, tt.expected)
			}
		})
	}
}

// Helpers

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
