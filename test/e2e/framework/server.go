package framework

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/fileserver/internal/logger"
	"github.com/marmos91/fileserver/pkg/adapter/http"
	"github.com/marmos91/fileserver/pkg/config"
	"github.com/marmos91/fileserver/pkg/server"
)

// StoreType represents the content backend to serve from
type StoreType string

const (
	StoreTypeMemory       StoreType = "memory"
	StoreTypeMemoryCached StoreType = "memory-cached"
	StoreTypeFilesystem   StoreType = "filesystem"
	StoreTypeBadger       StoreType = "badger"
)

// AllStoreTypes lists every backend the suites run against
var AllStoreTypes = []StoreType{
	StoreTypeMemory,
	StoreTypeMemoryCached,
	StoreTypeFilesystem,
	StoreTypeBadger,
}

// TestServerConfig holds configuration for the test server.
// This is distinct from pkg/config.ServerConfig (application-level server settings).
type TestServerConfig struct {
	ContentStore   StoreType
	Files          map[string]string // Request path -> content, seeded before start
	Workers        int
	LogLevel       string
	StartupTimeout time.Duration
}

// TestServer wraps a fileserver server for testing
type TestServer struct {
	t        testing.TB
	config   TestServerConfig
	server   *server.Server
	adapter  *http.HTTPAdapter
	provider *config.ProviderResult
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	serveErr error
	started  bool
	mu       sync.Mutex
	tempDir  string
}

// NewTestServer creates a new test server instance
func NewTestServer(t testing.TB, cfg TestServerConfig) *TestServer {
	t.Helper()

	if cfg.LogLevel == "" {
		cfg.LogLevel = "ERROR" // Keep tests quiet by default
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = 10 * time.Second
	}

	// The server owns its temp dir and removes it only after the provider is
	// closed: badger retries its final flush forever if the directory is gone.
	tempDir, err := os.MkdirTemp("", "fileserver-e2e-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TestServer{
		t:       t,
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		tempDir: tempDir,
	}
}

// Start builds the provider through the config factories and starts serving
func (ts *TestServer) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return fmt.Errorf("server already started")
	}

	ts.t.Helper()

	logger.SetLevel(ts.config.LogLevel)

	contentCfg, err := ts.contentConfig()
	if err != nil {
		ts.removeTempDir()
		return err
	}

	ts.provider, err = config.CreateProvider(ts.ctx, contentCfg)
	if err != nil {
		ts.removeTempDir()
		return fmt.Errorf("failed to create %s provider: %w", ts.config.ContentStore, err)
	}
	ts.t.Logf("Using %s content provider", ts.config.ContentStore)

	// Port 0 lets the OS pick; Port() reports the bound one once listening
	ts.adapter = http.New(http.HTTPConfig{
		Enabled:         true,
		Workers:         ts.config.Workers,
		QueueSize:       ts.config.Workers,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}, nil) // nil = no metrics for tests

	ts.server = server.New(ts.provider.Provider)
	ts.server.SetStopTimeout(5 * time.Second)
	if err := ts.server.AddAdapter(ts.adapter); err != nil {
		_ = ts.provider.Close()
		ts.removeTempDir()
		return fmt.Errorf("failed to add adapter: %w", err)
	}

	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		if err := ts.server.Serve(ts.ctx); err != nil && err != context.Canceled {
			ts.serveErr = err
			ts.t.Logf("Server error: %v", err)
		}
	}()

	if err := ts.waitForServer(); err != nil {
		ts.cancel()
		ts.wg.Wait()
		_ = ts.provider.Close()
		ts.removeTempDir()
		return fmt.Errorf("server failed to start: %w", err)
	}

	ts.started = true
	ts.t.Logf("Server started successfully on port %d", ts.Port())
	return nil
}

// contentConfig maps the store type onto a content configuration section
func (ts *TestServer) contentConfig() (*config.ContentConfig, error) {
	files := make(map[string]any, len(ts.config.Files))
	for path, data := range ts.config.Files {
		files[path] = data
	}

	switch ts.config.ContentStore {
	case StoreTypeMemory, "":
		return &config.ContentConfig{
			Type:   "memory",
			Memory: map[string]any{"files": files},
		}, nil

	case StoreTypeMemoryCached:
		return &config.ContentConfig{
			Type:   "memory",
			Memory: map[string]any{"files": files},
			Cache:  config.CacheConfig{Enabled: true, MaxBytes: 1 << 20},
		}, nil

	case StoreTypeFilesystem:
		root := filepath.Join(ts.tempDir, "content")
		for path, data := range ts.config.Files {
			target := filepath.Join(root, filepath.FromSlash(path))
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, fmt.Errorf("failed to create content directory: %w", err)
			}
			if err := os.WriteFile(target, []byte(data), 0644); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		return &config.ContentConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": root},
		}, nil

	case StoreTypeBadger:
		return &config.ContentConfig{
			Type: "badger",
			Badger: map[string]any{
				"db_path": filepath.Join(ts.tempDir, "badger"),
				"files":   files,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown content store type: %s", ts.config.ContentStore)
	}
}

// Stop stops the test server, closes the provider and removes the temp dir
func (ts *TestServer) Stop() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return nil
	}

	ts.t.Helper()
	ts.t.Logf("Stopping server...")

	ts.cancel()

	// Closing the provider flushes badger, so it shares the stop deadline
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.wg.Wait()
		if err := ts.provider.Close(); err != nil {
			ts.t.Logf("Warning: failed to close provider: %v", err)
		}
	}()

	select {
	case <-done:
		ts.t.Logf("Server stopped gracefully")
		ts.removeTempDir()
	case <-time.After(10 * time.Second):
		ts.started = false
		return fmt.Errorf("server stop timeout: provider still closing")
	}

	ts.started = false
	return ts.serveErr
}

// removeTempDir deletes the server's temporary directory
func (ts *TestServer) removeTempDir() {
	if ts.tempDir == "" {
		return
	}
	if err := os.RemoveAll(ts.tempDir); err != nil {
		ts.t.Logf("Warning: failed to remove temp directory %s: %v", ts.tempDir, err)
	}
	ts.tempDir = ""
}

// Port returns the port the server is listening on
func (ts *TestServer) Port() int {
	return ts.adapter.Port()
}

// Addr returns the host:port to dial
func (ts *TestServer) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", ts.Port())
}

// TempDir returns the directory holding on-disk backend state
func (ts *TestServer) TempDir() string {
	return ts.tempDir
}

// ActiveConnections returns the number of connections owned by workers
func (ts *TestServer) ActiveConnections() int32 {
	return ts.adapter.GetActiveConnections()
}

// waitForServer waits until the adapter has bound its listener
func (ts *TestServer) waitForServer() error {
	deadline := time.Now().Add(ts.config.StartupTimeout)
	for time.Now().Before(deadline) {
		if ts.adapter.Port() != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for server to start")
}
