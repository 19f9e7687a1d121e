package config

import (
	"fmt"

	"github.com/marmos91/fileserver/pkg/metrics"
	promMetrics "github.com/marmos91/fileserver/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// HTTPMetrics is the metrics collector for the HTTP adapter (never nil, uses noop if disabled)
	HTTPMetrics metrics.HTTPMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//   - Exports cache hit/miss counters when the provider is cached
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
//
// Parameters:
//   - cfg: The complete configuration
//   - provider: The configured provider, or nil
//
// Returns:
//   - MetricsResult containing all metrics components
//   - error if a collector cannot be registered
func InitializeMetrics(cfg *Config, provider *ProviderResult) (*MetricsResult, error) {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:      nil,
			HTTPMetrics: metrics.NewNoopHTTPMetrics(),
		}, nil
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	if provider != nil && provider.Cache != nil {
		if err := promMetrics.RegisterCacheStats(provider.Cache.Stats); err != nil {
			return nil, fmt.Errorf("failed to register cache metrics: %w", err)
		}
	}

	return &MetricsResult{
		Server:      server,
		HTTPMetrics: promMetrics.NewHTTPMetrics(),
	}, nil
}
