package prometheus

import (
	"github.com/marmos91/fileserver/pkg/content/cache"
	"github.com/marmos91/fileserver/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// cacheCollector exports cache.Stats as counters read at scrape time.
type cacheCollector struct {
	stats  func() cache.Stats
	hits   *prometheus.Desc
	misses *prometheus.Desc
}

// RegisterCacheStats exports the hit and miss counters of a content cache.
//
// Does nothing when metrics are disabled.
func RegisterCacheStats(stats func() cache.Stats) error {
	return metrics.Register(newCacheCollector(stats))
}

func newCacheCollector(stats func() cache.Stats) *cacheCollector {
	return &cacheCollector{
		stats: stats,
		hits: prometheus.NewDesc(
			"fileserver_content_cache_hits_total",
			"Total number of content reads served from the cache",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			"fileserver_content_cache_misses_total",
			"Total number of content reads that reached the backend",
			nil, nil,
		),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
}
