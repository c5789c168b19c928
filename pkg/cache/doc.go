// Package cache provides an optional Redis cache for Blockfrost responses.
//
// Blockfrost data for settled history (old epochs, confirmed transactions,
// past rewards) does not change, so repeated page fetches can be served from
// Redis instead of spending the project's request budget.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key, err := cache.KeyFromURL(pageURL)
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from Blockfrost, then:
//		manager.Set(ctx, key, cache.NewEntry(body, http.StatusOK, ttl))
//	}
//
// # Freshness
//
// Entries carry an absolute expiry. ResponseTTL derives it from the response's
// Cache-Control / Expires headers and falls back to the client's configured
// TTL. Responses marked no-store are never cached.
//
// # Keys
//
// Keys are built from host, path and sorted query parameters only. The API
// key is never part of a cache key. Purge drops every cached page of one
// resource at once.
//
// # Metrics
//
//   - blockfrost_cache_hits_total{network,layer="redis"} - Cache hits
//   - blockfrost_cache_misses_total{network} - Cache misses
//   - blockfrost_cache_bytes_total{operation="read"|"write"} - Entry bytes moved
//   - blockfrost_cache_errors_total{operation} - Cache operation errors
//   - blockfrost_cache_purged_keys_total - Keys removed by Purge
package cache
