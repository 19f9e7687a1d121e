package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateYAMLWithComments(t *testing.T) {
	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		t.Fatalf("Failed to generate YAML: %v", err)
	}

	if !strings.HasPrefix(data, "# fileserver Configuration File") {
		t.Error("Generated YAML should start with the configuration header")
	}

	expectedSections := []string{"logging:", "server:", "content:", "adapters:", "http:", "metrics:"}
	for _, section := range expectedSections {
		if !strings.Contains(data, section) {
			t.Errorf("Generated YAML missing section: %s", section)
		}
	}

	expectedValues := []string{"INFO", "8080", "memory", "30s", "/index.html"}
	for _, value := range expectedValues {
		if !strings.Contains(data, value) {
			t.Errorf("Generated YAML missing value: %s", value)
		}
	}

	if strings.Contains(data, "30000000000") {
		t.Error("Durations should render as strings, not nanoseconds")
	}
}

func TestInitConfigToPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Generated config should load: %v", err)
	}

	if cfg.Adapters.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Adapters.HTTP.Port)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter enabled in generated config")
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected content type 'memory', got %q", cfg.Content.Type)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestInitConfigToPath_AlreadyExists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to write existing config: %v", err)
	}

	err := InitConfigToPath(configPath, false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}

	data, _ := os.ReadFile(configPath)
	if string(data) != "existing" {
		t.Error("Existing config should not be modified without force")
	}
}

func TestInitConfigToPath_Force(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to write existing config: %v", err)
	}

	if err := InitConfigToPath(configPath, true); err != nil {
		t.Fatalf("InitConfigToPath with force failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# fileserver Configuration File") {
		t.Error("Forced init should overwrite the existing file")
	}
}

func TestInitConfig_DefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if path != GetDefaultConfigPath() {
		t.Errorf("Expected %q, got %q", GetDefaultConfigPath(), path)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}
