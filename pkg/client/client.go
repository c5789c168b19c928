// Package client provides the single-page Blockfrost HTTP fetcher with
// bounded retries, optional pacing and optional response caching.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/blockfrost-client/pkg/cache"
	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/Sternrassler/blockfrost-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Blockfrost client operations.
var (
	bfRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_requests_total",
		Help: "Total Blockfrost requests by network and status",
	}, []string{"network", "status"})

	bfRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockfrost_request_duration_seconds",
		Help:    "Blockfrost request duration in seconds by network",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"network"})

	bfErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_errors_total",
		Help: "Total Blockfrost errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of failed requests.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// DefaultUserAgent is sent when Config.UserAgent is left at its default.
const DefaultUserAgent = "blockfrost-client-go/0.1"

// Client fetches single Blockfrost pages. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// HTTPClient is used for all requests. Its transport is cloned so that
	// per-call proxies can be applied; the caller's client is not modified.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient has no timeout of its own.
	Timeout time.Duration

	// UserAgent header sent with every request.
	UserAgent string

	// Rate limiting (HTTP 429): fixed backoff, bounded retries.
	RateLimitRetries int
	RateLimitBackoff time.Duration

	// Transport failures: exponential backoff, bounded retries.
	TransportRetries    int
	TransportBackoff    time.Duration
	MaxTransportBackoff time.Duration

	// Limiter paces requests and shares 429 cooldowns. Optional. Its
	// cooldown waits go through ratelimit.Config.Sleep, not Sleep below.
	Limiter *ratelimit.Tracker

	// Cache stores successful responses in Redis. Optional.
	Cache *cache.Manager

	// CacheTTL is used when a response carries no caching headers.
	CacheTTL time.Duration

	// Sleep performs every backoff wait. Defaults to a context-aware timer.
	Sleep SleepFunc
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		UserAgent:           DefaultUserAgent,
		RateLimitRetries:    2,
		RateLimitBackoff:    1 * time.Second,
		TransportRetries:    3,
		TransportBackoff:    500 * time.Millisecond,
		MaxTransportBackoff: 10 * time.Second,
		CacheTTL:            20 * time.Second,
	}
}

// New creates a new Blockfrost client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RateLimitRetries < 0 || cfg.TransportRetries < 0 {
		return nil, fmt.Errorf("retry bounds must be >= 0 (rate limit %d, transport %d)",
			cfg.RateLimitRetries, cfg.TransportRetries)
	}

	if cfg.RateLimitBackoff < 0 || cfg.TransportBackoff < 0 || cfg.MaxTransportBackoff < 0 {
		return nil, fmt.Errorf("backoff durations must be >= 0")
	}

	if cfg.MaxTransportBackoff < cfg.TransportBackoff {
		cfg.MaxTransportBackoff = cfg.TransportBackoff
	}

	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	logger := log.With().Str("component", "blockfrost-client").Logger()

	return &Client{
		httpClient: newHTTPClient(cfg.HTTPClient, cfg.Timeout),
		config:     cfg,
		logger:     logger,
	}, nil
}

type proxiesKey struct{}

// proxyFromContext selects the proxy registered for the request's scheme in
// the per-call proxies, falling back to the environment.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	if proxies, ok := req.Context().Value(proxiesKey{}).(network.Proxies); ok {
		if raw := proxies[req.URL.Scheme]; raw != "" {
			return url.Parse(raw)
		}
	}
	return http.ProxyFromEnvironment(req)
}

func newHTTPClient(base *http.Client, timeout time.Duration) *http.Client {
	var hc http.Client
	if base != nil {
		hc = *base
	}
	if hc.Timeout == 0 {
		hc.Timeout = timeout
	}

	switch rt := hc.Transport.(type) {
	case nil:
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = proxyFromContext
		hc.Transport = t
	case *http.Transport:
		t := rt.Clone()
		t.Proxy = proxyFromContext
		hc.Transport = t
	}
	// Any other RoundTripper is used as-is; proxies are its concern.

	return &hc
}

// FetchOne performs an authenticated GET of rawURL and returns the decoded
// JSON body. 429 answers are retried with a fixed backoff, transport failures
// with an exponential backoff; every other non-2xx answer is returned as a
// *RemoteError without retrying.
func (c *Client) FetchOne(ctx context.Context, rawURL string, auth network.Auth) (json.RawMessage, error) {
	if !auth.Owns(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialScope, rawURL)
	}

	netLabel := auth.Network().String()
	scope := ratelimit.ScopeFor(netLabel, auth.APIKey())

	cacheKey, cacheable := c.cacheKey(rawURL)
	if cacheable {
		entry, err := c.config.Cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", rawURL).Dur("age", entry.Age()).Msg("Cache hit")
			return json.RawMessage(entry.Data), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Cache get error")
		}
	}

	proxyCtx := context.WithValue(ctx, proxiesKey{}, auth.Proxies())
	policies := newRetryPolicies(c.config)
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		if c.config.Limiter != nil {
			if err := c.config.Limiter.Wait(ctx, scope); err != nil {
				if ctx.Err() != nil {
					return nil, cancelled(ctx.Err())
				}
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		attempts++
		status, body, header, err := c.do(proxyCtx, rawURL, auth, netLabel)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, cancelled(ctx.Err())
			}
			bfErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()

			var ok bool
			if wait, ok = policies.next(ErrorClassNetwork); !ok {
				c.logger.Error().
					Err(err).
					Str("url", rawURL).
					Int("attempts", attempts).
					Msg("Transport retries exhausted")
				return nil, &TransportError{URL: rawURL, Attempts: attempts, Err: err}
			}
			c.logger.Warn().
				Err(err).
				Str("url", rawURL).
				Int("attempt", attempts).
				Dur("backoff", wait).
				Msg("Transport error - retrying")

		case status == http.StatusTooManyRequests:
			bfErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			if c.config.Limiter != nil {
				if err := c.config.Limiter.RecordThrottle(ctx, scope, c.config.RateLimitBackoff); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to share rate limit cooldown")
				}
			}

			var ok bool
			if wait, ok = policies.next(ErrorClassRateLimit); !ok {
				c.logger.Error().
					Str("url", rawURL).
					Int("attempts", attempts).
					Msg("Rate limit retries exhausted")
				return nil, fmt.Errorf("%w after %d attempts", ErrRateLimitExceeded, attempts)
			}
			c.logger.Warn().
				Str("url", rawURL).
				Int("attempt", attempts).
				Dur("backoff", wait).
				Msg("Rate limited - retrying")

		case status >= 200 && status < 300:
			if !json.Valid(body) {
				return nil, fmt.Errorf("%w from %s", ErrInvalidJSON, rawURL)
			}
			if cacheable {
				c.store(ctx, cacheKey, status, body, header)
			}
			return json.RawMessage(body), nil

		default:
			class := classifyStatus(status)
			bfErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Debug().
				Str("url", rawURL).
				Int("status", status).
				Str("error_class", string(class)).
				Msg("Blockfrost request error")
			return nil, newRemoteError(status, class, body)
		}

		if err := c.config.Sleep(ctx, wait); err != nil {
			return nil, cancelled(err)
		}
	}
}

// FetchInto fetches rawURL and decodes the body into v.
func (c *Client) FetchInto(ctx context.Context, rawURL string, auth network.Auth, v any) error {
	body, err := c.FetchOne(ctx, rawURL, auth)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// do executes one attempt. A non-nil error is always a transport failure.
func (c *Client) do(ctx context.Context, rawURL string, auth network.Auth, netLabel string) (int, []byte, http.Header, error) {
	startTime := time.Now()
	defer func() {
		bfRequestDuration.WithLabelValues(netLabel).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("project_id", auth.APIKey())
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", rawURL).Msg("Executing Blockfrost request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		bfRequestsTotal.WithLabelValues(netLabel, "network_error").Inc()
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		bfRequestsTotal.WithLabelValues(netLabel, "network_error").Inc()
		return 0, nil, nil, fmt.Errorf("read body: %w", err)
	}

	bfRequestsTotal.WithLabelValues(netLabel, strconv.Itoa(resp.StatusCode)).Inc()
	return resp.StatusCode, body, resp.Header, nil
}

// classifyStatus categorizes a non-2xx status for observability and handling.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

func (c *Client) cacheKey(rawURL string) (cache.CacheKey, bool) {
	if c.config.Cache == nil {
		return cache.CacheKey{}, false
	}
	key, err := cache.KeyFromURL(rawURL)
	if err != nil {
		return cache.CacheKey{}, false
	}
	return key, true
}

func (c *Client) store(ctx context.Context, key cache.CacheKey, status int, body []byte, header http.Header) {
	ttl := cache.ResponseTTL(header, c.config.CacheTTL)
	if ttl <= 0 {
		return
	}
	if err := c.config.Cache.Set(ctx, key, cache.NewEntry(body, status, ttl)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().Str("key", key.String()).Dur("ttl", ttl).Msg("Cached response")
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrContextCancelled, err)
}
