package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/fileserver/pkg/content"
)

func readString(t *testing.T, p content.Provider, raw string) string {
	t.Helper()
	data, err := p.ReadFile(context.Background(), content.ParsePath(raw))
	if err != nil {
		t.Fatalf("ReadFile(%q) failed: %v", raw, err)
	}
	return string(data)
}

func TestCreateProvider_Memory(t *testing.T) {
	cfg := &ContentConfig{
		Type: "memory",
		Memory: map[string]any{
			"files": map[string]any{
				"/index.html": "<h1>hi</h1>",
				"docs/a.txt":  "alpha",
			},
		},
	}

	result, err := CreateProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	if result.Cache != nil {
		t.Error("Expected no cache when disabled")
	}
	if got := readString(t, result.Provider, "/index.html"); got != "<h1>hi</h1>" {
		t.Errorf("Expected index content, got %q", got)
	}
	if got := readString(t, result.Provider, "/docs/a.txt"); got != "alpha" {
		t.Errorf("Expected seeded file without leading slash to be reachable, got %q", got)
	}

	_, err = result.Provider.ReadFile(context.Background(), content.ParsePath("/missing"))
	if !errors.Is(err, content.ErrContentNotFound) {
		t.Errorf("Expected ErrContentNotFound, got %v", err)
	}
}

func TestCreateProvider_Filesystem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	result, err := CreateProvider(context.Background(), &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": dir},
	})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	if got := readString(t, result.Provider, "/hello.txt"); got != "hello" {
		t.Errorf("Expected 'hello', got %q", got)
	}
}

func TestCreateProvider_FilesystemMissingPath(t *testing.T) {
	_, err := CreateProvider(context.Background(), &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing filesystem path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateProvider_Badger(t *testing.T) {
	result, err := CreateProvider(context.Background(), &ContentConfig{
		Type: "badger",
		Badger: map[string]any{
			"in_memory": true,
			"files": map[string]any{
				"/index.html": "stored",
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}

	if got := readString(t, result.Provider, "/index.html"); got != "stored" {
		t.Errorf("Expected 'stored', got %q", got)
	}

	if err := result.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateProvider_BadgerWeakTyping(t *testing.T) {
	// Values from environment variables arrive as strings
	result, err := CreateProvider(context.Background(), &ContentConfig{
		Type: "badger",
		Badger: map[string]any{
			"in_memory":           "true",
			"block_cache_size_mb": "8",
		},
	})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	if err := result.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateProvider_S3MissingBucket(t *testing.T) {
	_, err := CreateProvider(context.Background(), &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateProvider_S3MissingRegion(t *testing.T) {
	_, err := CreateProvider(context.Background(), &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": "site"},
	})
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateProvider_UnknownType(t *testing.T) {
	_, err := CreateProvider(context.Background(), &ContentConfig{Type: "ftp"})
	if err == nil {
		t.Fatal("Expected error for unknown provider type")
	}
	if !strings.Contains(err.Error(), "unknown content provider type") {
		t.Errorf("Expected 'unknown content provider type' error, got: %v", err)
	}
}

func TestCreateProvider_WithCache(t *testing.T) {
	result, err := CreateProvider(context.Background(), &ContentConfig{
		Type: "memory",
		Memory: map[string]any{
			"files": map[string]any{"/a.txt": "cached"},
		},
		Cache: CacheConfig{Enabled: true, MaxBytes: 1 << 20},
	})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}

	if result.Cache == nil {
		t.Fatal("Expected cache to be created")
	}
	if result.Provider != content.Provider(result.Cache) {
		t.Error("Expected the cache to be the served provider")
	}

	if got := readString(t, result.Provider, "/a.txt"); got != "cached" {
		t.Errorf("Expected 'cached', got %q", got)
	}
	result.Cache.Wait()
	if got := readString(t, result.Provider, "/a.txt"); got != "cached" {
		t.Errorf("Expected 'cached' on second read, got %q", got)
	}

	stats := result.Cache.Stats()
	if stats.Hits+stats.Misses == 0 {
		t.Errorf("Expected cache activity, got %+v", stats)
	}

	if err := result.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("Expected 1 adapter, got %d", len(adapters))
	}
	if adapters[0].Protocol() != "HTTP" {
		t.Errorf("Expected HTTP adapter, got %q", adapters[0].Protocol())
	}
	if adapters[0].Port() != DefaultHTTPPort {
		t.Errorf("Expected port %d, got %d", DefaultHTTPPort, adapters[0].Port())
	}

	cfg.Adapters.HTTP.Enabled = false
	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Error("Expected error when no adapters are enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result, err := InitializeMetrics(cfg, nil)
	if err != nil {
		t.Fatalf("InitializeMetrics failed: %v", err)
	}
	if result.Server != nil {
		t.Error("Expected nil metrics server when disabled")
	}
	if result.HTTPMetrics == nil {
		t.Error("Expected no-op HTTP metrics when disabled")
	}
}
