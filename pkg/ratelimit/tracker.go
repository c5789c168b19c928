package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	bfRateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockfrost_rate_limit_cooldowns_total",
		Help: "Total number of 429 cooldowns recorded",
	})

	bfRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockfrost_rate_limit_wait_seconds",
		Help:    "Time spent waiting before a request could be sent",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
	})
)

// Config holds the local pacing parameters.
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or negative disables pacing.
	RequestsPerSecond float64

	// Burst is the bucket size.
	Burst int

	// MaxStateAge bounds how long a shared cooldown is honoured after it was
	// recorded. Zero means DefaultMaxStateAge.
	MaxStateAge time.Duration

	// Sleep waits out cooldowns. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultMaxStateAge is the default for Config.MaxStateAge.
const DefaultMaxStateAge = 5 * time.Minute

// DefaultConfig returns Blockfrost's published limits.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
		MaxStateAge:       DefaultMaxStateAge,
	}
}

// Tracker gates requests per scope: a local token bucket plus a cooldown
// after 429 responses. With a Redis client the cooldown is shared between
// processes using the same key.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger

	mu        sync.Mutex
	limiters  map[Scope]*rate.Limiter
	cooldowns map[Scope]time.Time
}

// NewTracker creates a tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	if cfg.MaxStateAge <= 0 {
		cfg.MaxStateAge = DefaultMaxStateAge
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepTimer
	}
	return &Tracker{
		redis:     redisClient,
		config:    cfg,
		logger:    logger,
		limiters:  make(map[Scope]*rate.Limiter),
		cooldowns: make(map[Scope]time.Time),
	}
}

func (t *Tracker) limiter(scope Scope) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[scope]
	if !ok {
		limit := rate.Inf
		burst := t.config.Burst
		if t.config.RequestsPerSecond > 0 {
			limit = rate.Limit(t.config.RequestsPerSecond)
		}
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(limit, burst)
		t.limiters[scope] = l
	}
	return l
}

// GetState returns the scope's cooldown state, preferring Redis when
// configured.
func (t *Tracker) GetState(ctx context.Context, scope Scope) (*RateLimitState, error) {
	t.mu.Lock()
	local := t.cooldowns[scope]
	t.mu.Unlock()

	state := &RateLimitState{CooldownUntil: local, LastUpdate: local}
	if t.redis == nil {
		return state, nil
	}

	raw, err := t.redis.Get(ctx, scope.RedisKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("get cooldown: %w", err)
	}

	shared, err := decodeShared(raw, t.config.MaxStateAge)
	if err != nil {
		return state, err
	}
	if shared == nil {
		t.logger.Debug().Str("scope", string(scope)).Msg("Ignoring stale shared cooldown")
		return state, nil
	}
	if shared.CooldownUntil.After(state.CooldownUntil) {
		state = shared
	}
	return state, nil
}

// decodeShared parses a cooldown written by RecordThrottle. It returns nil
// when the entry was recorded more than maxAge ago.
func decodeShared(raw []byte, maxAge time.Duration) (*RateLimitState, error) {
	var shared RateLimitState
	if err := json.Unmarshal(raw, &shared); err != nil {
		return nil, fmt.Errorf("decode cooldown: %w", err)
	}
	if shared.IsStale(maxAge) {
		return nil, nil
	}
	return &shared, nil
}

// RecordThrottle starts (or extends) a cooldown of d for the scope.
func (t *Tracker) RecordThrottle(ctx context.Context, scope Scope, d time.Duration) error {
	now := time.Now()
	until := now.Add(d)

	t.mu.Lock()
	if until.After(t.cooldowns[scope]) {
		t.cooldowns[scope] = until
	}
	t.mu.Unlock()

	bfRateLimitCooldownsTotal.Inc()
	t.logger.Warn().
		Str("scope", string(scope)).
		Dur("cooldown", d).
		Msg("Blockfrost rate limit hit - cooling down")

	if t.redis == nil {
		return nil
	}
	raw, err := json.Marshal(RateLimitState{CooldownUntil: until, LastUpdate: now})
	if err != nil {
		return fmt.Errorf("encode cooldown: %w", err)
	}
	// PX bounds the key's life to the cooldown itself.
	if err := t.redis.Set(ctx, scope.RedisKey(), raw, d).Err(); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}
	return nil
}

// Wait blocks until the scope may send a request: any active cooldown is
// waited out first, then a token is taken from the local bucket.
func (t *Tracker) Wait(ctx context.Context, scope Scope) error {
	start := time.Now()
	defer func() {
		bfRateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	state, err := t.GetState(ctx, scope)
	if err != nil {
		// Shared state is advisory; keep going on the local view.
		t.logger.Warn().Err(err).Str("scope", string(scope)).Msg("Rate limit state unavailable")
	}

	if state.InCooldown() {
		wait := state.TimeUntilReset()
		t.logger.Debug().
			Str("scope", string(scope)).
			Dur("wait", wait).
			Msg("Waiting for rate limit cooldown")

		if err := t.config.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	return t.limiter(scope).Wait(ctx)
}

func sleepTimer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
