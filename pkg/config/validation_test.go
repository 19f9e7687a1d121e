package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidContentType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Content.Type = "invalid"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid content type")
	}
}

func TestValidate_AllContentTypes(t *testing.T) {
	for _, typ := range []string{"memory", "filesystem", "s3", "badger"} {
		t.Run(typ, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Content.Type = typ
			if err := Validate(cfg); err != nil {
				t.Errorf("Expected content type %q to be valid, got: %v", typ, err)
			}
		})
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}

func TestValidate_InvalidHTTPPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "Port") {
		t.Errorf("Expected error to name the port field, got: %v", err)
	}
}

func TestValidate_NegativeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"queue size", func(c *Config) { c.Adapters.HTTP.QueueSize = -1 }},
		{"read timeout", func(c *Config) { c.Adapters.HTTP.ReadTimeout = -time.Second }},
		{"write timeout", func(c *Config) { c.Adapters.HTTP.WriteTimeout = -time.Second }},
		{"accept rate", func(c *Config) { c.Adapters.HTTP.AcceptRate = -1 }},
		{"cache ttl", func(c *Config) { c.Content.Cache.TTL = -time.Second }},
		{"request line too short", func(c *Config) { c.Adapters.HTTP.MaxRequestLineBytes = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidate_NoAdaptersEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Enabled = false

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error when no adapters are enabled")
	}
	if !strings.Contains(err.Error(), "at least one adapter") {
		t.Errorf("Expected 'at least one adapter' error, got: %v", err)
	}
}

func TestValidate_ZeroWorkers(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Workers = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero workers")
	}
}

func TestValidate_MetricsPortConflict(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = cfg.Adapters.HTTP.Port

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for metrics port conflict")
	}
	if !strings.Contains(err.Error(), "conflicts") {
		t.Errorf("Expected conflict error, got: %v", err)
	}

	// Disabled metrics never bind, so the same port is fine
	cfg.Metrics.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected no conflict with metrics disabled, got: %v", err)
	}
}

func TestValidate_BurstWithoutRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.AcceptBurst = 10

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for accept_burst without accept_rate")
	}

	cfg.Adapters.HTTP.AcceptRate = 5
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected burst with rate to be valid, got: %v", err)
	}
}
