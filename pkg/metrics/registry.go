// Package metrics defines the observability interfaces of the file server and
// the process-wide Prometheus registry they report to.
//
// All metrics are optional: without InitRegistry, components fall back to no-op
// implementations, so the server runs the same with or without collection.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	httpMetrics := prometheus.NewHTTPMetrics()
//
//	// Or use nil for no-op behavior
//	adapter := http.New(config, nil) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry and read everywhere else.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global Prometheus registry.
//
// The registry starts with the Go runtime and process collectors so the
// /metrics endpoint reports goroutines, GC and file descriptors next to the
// server's own series. Subsequent calls are ignored.
//
// Thread safety:
// sync.Once makes the registry write visible to every later GetRegistry call.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Register adds collector to the global registry.
//
// It is a no-op when metrics are disabled, so callers need no IsEnabled guard.
func Register(collector prometheus.Collector) error {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return reg.Register(collector)
}
