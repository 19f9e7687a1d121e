package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(configPath, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

content:
  type: "memory"

adapters:
  http:
    enabled: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Adapters.HTTP.Port != DefaultHTTPPort {
		t.Errorf("Expected default HTTP port %d, got %d", DefaultHTTPPort, cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.Workers < 1 {
		t.Errorf("Expected default workers >= 1, got %d", cfg.Adapters.HTTP.Workers)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected default metrics port %d, got %d", DefaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A non-existent explicit path keeps the user's ~/.config/fileserver out of the test
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected default content type 'memory', got %q", cfg.Content.Type)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter to be enabled by default")
	}
}

func TestLoad_MissingConfigDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "config.yaml")

	cfg, err := Load(missing)
	if err != nil {
		t.Fatalf("Expected defaults for a missing config path, got: %v", err)
	}
	if cfg.Adapters.HTTP.Port != DefaultHTTPPort {
		t.Errorf("Expected default port %d, got %d", DefaultHTTPPort, cfg.Adapters.HTTP.Port)
	}
}

func TestLoad_UnreadableConfigIsError(t *testing.T) {
	// A directory exists but cannot be read as a config file
	dir := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("Expected error when the config path is a directory")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[content]
type = "filesystem"

[content.filesystem]
path = "/srv/www"

[adapters.http]
enabled = true
port = 8081
workers = 4
read_timeout = "5s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Content.Filesystem["path"] != "/srv/www" {
		t.Errorf("Expected filesystem path '/srv/www', got %v", cfg.Content.Filesystem["path"])
	}
	if cfg.Adapters.HTTP.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Adapters.HTTP.Workers)
	}
	if cfg.Adapters.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read_timeout 5s, got %v", cfg.Adapters.HTTP.ReadTimeout)
	}
}

func TestLoad_HTTPSettings(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
adapters:
  http:
    enabled: true
    port: 8000
    workers: 2
    queue_size: 16
    max_request_line_bytes: 1024
    write_timeout: 2s
    shutdown_timeout: 10s
    accept_rate: 250.5
    accept_burst: 500
    metrics_log_interval: 1m
content:
  cache:
    enabled: true
    max_bytes: 1048576
    ttl: 30s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	h := cfg.Adapters.HTTP
	if !h.Enabled {
		t.Error("Expected HTTP adapter enabled")
	}
	if h.Port != 8000 || h.Workers != 2 || h.QueueSize != 16 || h.MaxRequestLineBytes != 1024 {
		t.Errorf("Unexpected HTTP settings: %+v", h)
	}
	if h.WriteTimeout != 2*time.Second || h.ShutdownTimeout != 10*time.Second {
		t.Errorf("Unexpected HTTP timeouts: write=%v shutdown=%v", h.WriteTimeout, h.ShutdownTimeout)
	}
	if h.AcceptRate != 250.5 || h.AcceptBurst != 500 {
		t.Errorf("Unexpected accept limits: rate=%v burst=%d", h.AcceptRate, h.AcceptBurst)
	}
	if h.MetricsLogInterval != time.Minute {
		t.Errorf("Expected metrics_log_interval 1m, got %v", h.MetricsLogInterval)
	}

	c := cfg.Content.Cache
	if !c.Enabled || c.MaxBytes != 1048576 || c.TTL != 30*time.Second {
		t.Errorf("Unexpected cache settings: %+v", c)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: INFO
adapters:
  http:
    enabled: true
    port: 8080
`)

	t.Setenv("FILESERVER_LOGGING_LEVEL", "debug")
	t.Setenv("FILESERVER_ADAPTERS_HTTP_PORT", "9000")
	t.Setenv("FILESERVER_ADAPTERS_HTTP_WORKERS", "3")
	t.Setenv("FILESERVER_METRICS_ENABLED", "true")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Port != 9000 {
		t.Errorf("Expected env port 9000, got %d", cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.Workers != 3 {
		t.Errorf("Expected env workers 3, got %d", cfg.Adapters.HTTP.Workers)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled from environment")
	}
}

func TestLoad_MemoryFiles(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
content:
  type: memory
  memory:
    files:
      /index.html: "<html></html>"
      /docs/a.txt: "alpha"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	files, ok := cfg.Content.Memory["files"].(map[string]any)
	if !ok {
		t.Fatalf("Expected files map, got %T", cfg.Content.Memory["files"])
	}
	if files["/index.html"] != "<html></html>" {
		t.Errorf("Expected /index.html content, got %v", files["/index.html"])
	}
	if files["/docs/a.txt"] != "alpha" {
		t.Errorf("Expected /docs/a.txt content, got %v", files["/docs/a.txt"])
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
content:
  type: ftp
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for unknown content type")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	if got, want := GetConfigDir(), filepath.Join(xdg, "fileserver"); got != want {
		t.Errorf("Expected config dir %q, got %q", want, got)
	}
	if got, want := GetDefaultConfigPath(), filepath.Join(xdg, "fileserver", "config.yaml"); got != want {
		t.Errorf("Expected config path %q, got %q", want, got)
	}
	if ConfigExists() {
		t.Error("Expected no config in a fresh XDG directory")
	}
}
