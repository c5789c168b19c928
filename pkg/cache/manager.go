package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrNotCacheable is returned by Set for entries that must not be stored:
	// non-2xx responses and bodies that are not JSON.
	ErrNotCacheable = errors.New("response not cacheable")
)

const layerRedis = "redis"

// purgeBatch is the SCAN page size used by Purge.
const purgeBatch = 200

// Manager stores Blockfrost response bodies in Redis. Entries expire through
// Redis TTLs; Get also drops entries whose Expires has passed.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get returns the entry for key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	netLabel := networkLabel(key)
	raw, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.WithLabelValues(netLabel).Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.WithLabelValues(netLabel).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(netLabel, layerRedis).Inc()
	CacheBytes.WithLabelValues("read").Add(float64(len(raw)))
	return entry, nil
}

func decodeEntry(raw []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if !json.Valid(entry.Data) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrInvalidEntry)
	}
	return &entry, nil
}

// Set stores entry until its Expires. Entries already expired are skipped
// without error.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.StatusCode < 200 || entry.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrNotCacheable, entry.StatusCode)
	}
	if !json.Valid(entry.Data) {
		return fmt.Errorf("%w: body is not JSON", ErrNotCacheable)
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	CacheBytes.WithLabelValues("write").Add(float64(len(raw)))
	return nil
}

// Delete removes a single entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Purge removes every cached page of endpoint, whatever its query (order,
// page, filters). It returns the number of keys removed.
func (m *Manager) Purge(ctx context.Context, endpoint string) (int, error) {
	exact := CacheKey{Endpoint: endpoint}.String()
	pattern := escapeGlob(exact) + ":*"

	keys := []string{exact}
	iter := m.redis.Scan(ctx, 0, pattern, purgeBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
	}

	n, err := m.redis.Del(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}
	CachePurged.Add(float64(n))
	return int(n), nil
}

// escapeGlob quotes the characters Redis treats as glob syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
