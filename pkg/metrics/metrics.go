// Package metrics documents the Prometheus metrics exported by the Blockfrost
// client and serves them over HTTP.
//
// The metrics themselves are defined in their own packages (client,
// pagination, cache, ratelimit) and registered through promauto, so importing
// those packages is enough to make them available.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package uses via promauto.
var Registry = prometheus.DefaultRegisterer

// Kind is the Prometheus metric type.
type Kind string

const (
	Counter   Kind = "counter"
	Gauge     Kind = "gauge"
	Histogram Kind = "histogram"
)

// Descriptor describes one exported metric.
type Descriptor struct {
	Name    string
	Kind    Kind
	Labels  []string
	Package string
}

// Catalogue lists every metric exported by this module.
var Catalogue = []Descriptor{
	{"blockfrost_requests_total", Counter, []string{"network", "status"}, "client"},
	{"blockfrost_request_duration_seconds", Histogram, []string{"network"}, "client"},
	{"blockfrost_errors_total", Counter, []string{"class"}, "client"},
	{"blockfrost_retries_total", Counter, []string{"error_class"}, "client"},
	{"blockfrost_retry_backoff_seconds", Histogram, []string{"error_class"}, "client"},
	{"blockfrost_retry_exhausted_total", Counter, []string{"error_class"}, "client"},
	{"blockfrost_pagination_pages", Histogram, nil, "pagination"},
	{"blockfrost_aggregations_total", Counter, []string{"outcome"}, "pagination"},
	{"blockfrost_cache_hits_total", Counter, []string{"network", "layer"}, "cache"},
	{"blockfrost_cache_misses_total", Counter, []string{"network"}, "cache"},
	{"blockfrost_cache_bytes_total", Counter, []string{"operation"}, "cache"},
	{"blockfrost_cache_errors_total", Counter, []string{"operation"}, "cache"},
	{"blockfrost_cache_purged_keys_total", Counter, nil, "cache"},
	{"blockfrost_rate_limit_cooldowns_total", Counter, nil, "ratelimit"},
	{"blockfrost_rate_limit_wait_seconds", Histogram, nil, "ratelimit"},
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Example Prometheus Queries:
//
//   # Cache Hit Rate per Network
//   sum by (network) (rate(blockfrost_cache_hits_total[5m])) /
//   (sum by (network) (rate(blockfrost_cache_hits_total[5m])) + sum by (network) (rate(blockfrost_cache_misses_total[5m])))
//
//   # 429 Rate per Network
//   sum by (network) (rate(blockfrost_requests_total{status="429"}[5m]))
//
//   # Pages per Aggregation (P95)
//   histogram_quantile(0.95, rate(blockfrost_pagination_pages_bucket[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(blockfrost_request_duration_seconds_bucket[5m]))
