package cache

import (
	"strings"

	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookups are labelled with the Blockfrost network derived from the key's
// host; hosts that name no network (self-hosted, tests) count as "custom".
var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_cache_hits_total",
		Help: "Blockfrost responses served from the cache",
	}, []string{"network", "layer"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_cache_misses_total",
		Help: "Blockfrost lookups that had to go upstream",
	}, []string{"network"})

	CacheBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_cache_bytes_total",
		Help: "Encoded entry bytes read from and written to the cache",
	}, []string{"operation"})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_cache_errors_total",
		Help: "Failed cache operations",
	}, []string{"operation"})

	CachePurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockfrost_cache_purged_keys_total",
		Help: "Keys removed by endpoint purges",
	})
)

const customNetwork = "custom"

// networkLabel names the network a key belongs to.
func networkLabel(key CacheKey) string {
	host, _, _ := strings.Cut(strings.TrimPrefix(key.Endpoint, "/"), "/")
	n, err := network.ParseNetwork(host)
	if err != nil {
		return customNetwork
	}
	return n.String()
}
