// Package ratelimit paces Blockfrost requests and shares 429 cooldowns.
// Blockfrost limits each project key to a sustained request rate with a
// burst allowance; exceeding it yields HTTP 429 until the bucket refills.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Blockfrost's published limits per project key.
const (
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 500
)

// RedisKeyPrefix namespaces the shared cooldown keys.
const RedisKeyPrefix = "bf:rate_limit"

// Scope identifies one rate-limit bucket: a network and a fingerprint of the
// API key. The key itself is never stored.
type Scope string

// ScopeFor builds the scope for a network/key pair.
func ScopeFor(network, apiKey string) Scope {
	sum := sha256.Sum256([]byte(apiKey))
	return Scope(fmt.Sprintf("%s:%s", network, hex.EncodeToString(sum[:6])))
}

// RedisKey returns the key holding the scope's shared cooldown state.
func (s Scope) RedisKey() string {
	return fmt.Sprintf("%s:%s:cooldown_until", RedisKeyPrefix, s)
}

// RateLimitState is the throttling state of one scope.
type RateLimitState struct {
	// CooldownUntil is when requests may resume after a 429.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// InCooldown reports whether requests should currently be held back.
func (s *RateLimitState) InCooldown() bool {
	return time.Now().Before(s.CooldownUntil)
}

// TimeUntilReset returns how long the cooldown still lasts, or 0.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}
