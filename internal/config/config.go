// Package config loads the bf-proxy configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/blockfrost-client/pkg/client"
	"github.com/Sternrassler/blockfrost-client/pkg/logging"
	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/Sternrassler/blockfrost-client/pkg/pagination"
	"github.com/Sternrassler/blockfrost-client/pkg/ratelimit"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. API keys use the per-network
// BLOCKFROST_*_API_KEY variables resolved by pkg/network.
const (
	EnvNetwork    = "BF_NETWORK"
	EnvListenAddr = "BF_LISTEN_ADDR"
	EnvRedisAddr  = "BF_REDIS_ADDR"
	EnvLogLevel   = "BF_LOG_LEVEL"
	EnvCacheTTL   = "BF_CACHE_TTL"
)

type Config struct {
	Network    string            `yaml:"network"`
	APIKey     string            `yaml:"api_key"`
	BaseURL    string            `yaml:"base_url"`
	Proxies    map[string]string `yaml:"proxies"`
	ListenAddr string            `yaml:"listen_addr"`

	Log        LogConfig        `yaml:"log"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Client     ClientConfig     `yaml:"client"`
	Pagination PaginationConfig `yaml:"pagination"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RedisConfig enables the shared cache and cooldown when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type ClientConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	RateLimitRetries int           `yaml:"rate_limit_retries"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
	TransportRetries int           `yaml:"transport_retries"`
	TransportBackoff time.Duration `yaml:"transport_backoff"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

type PaginationConfig struct {
	PageSize    int           `yaml:"page_size"`
	PageTimeout time.Duration `yaml:"page_timeout"`
}

// Default returns the configuration used for unset fields.
func Default() Config {
	cc := client.DefaultConfig()
	rc := ratelimit.DefaultConfig()
	pc := pagination.DefaultConfig()

	return Config{
		Network:    network.Mainnet.String(),
		ListenAddr: ":8080",
		Log:        LogConfig{Level: string(logging.LevelInfo)},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: rc.RequestsPerSecond,
			Burst:             rc.Burst,
		},
		Client: ClientConfig{
			Timeout:          cc.Timeout,
			RateLimitRetries: cc.RateLimitRetries,
			RateLimitBackoff: cc.RateLimitBackoff,
			TransportRetries: cc.TransportRetries,
			TransportBackoff: cc.TransportBackoff,
			CacheTTL:         cc.CacheTTL,
		},
		Pagination: PaginationConfig{
			PageSize:    pc.PageSize,
			PageTimeout: pc.PageTimeout,
		},
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWith(path, network.OSLookup)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup network.LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup network.LookupFunc) error {
	if lookup == nil {
		return nil
	}
	if v, ok := lookup(EnvNetwork); ok && v != "" {
		c.Network = v
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.ListenAddr = v
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvCacheTTL); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.Client.CacheTTL = d
	}
	return nil
}

// parseDuration accepts Go durations or plain seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Validate checks the values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if _, err := network.ParseNetwork(c.Network); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Client.RateLimitRetries < 0 || c.Client.TransportRetries < 0 {
		return fmt.Errorf("client retries must be >= 0")
	}
	if c.Client.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be >= 0")
	}
	if c.Pagination.PageSize <= 0 {
		return fmt.Errorf("pagination.page_size must be > 0, got %d", c.Pagination.PageSize)
	}
	if err := c.PaginationConfig().Validate(); err != nil {
		return fmt.Errorf("pagination.page_size: %w", err)
	}
	return nil
}

// ClientConfig builds the fetcher configuration. Limiter and Cache are wired
// by the caller.
func (c *Config) ClientConfig() client.Config {
	cc := client.DefaultConfig()
	cc.Timeout = c.Client.Timeout
	cc.RateLimitRetries = c.Client.RateLimitRetries
	cc.RateLimitBackoff = c.Client.RateLimitBackoff
	cc.TransportRetries = c.Client.TransportRetries
	cc.TransportBackoff = c.Client.TransportBackoff
	cc.CacheTTL = c.Client.CacheTTL
	return cc
}

func (c *Config) RateLimitConfig() ratelimit.Config {
	rc := ratelimit.DefaultConfig()
	rc.RequestsPerSecond = c.RateLimit.RequestsPerSecond
	rc.Burst = c.RateLimit.Burst
	return rc
}

func (c *Config) PaginationConfig() pagination.Config {
	return pagination.Config{
		PageSize:    c.Pagination.PageSize,
		PageTimeout: c.Pagination.PageTimeout,
	}
}

func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level, _ = logging.ParseLevel(c.Log.Level)
	lc.Pretty = c.Log.Pretty
	lc.Service = "bf-proxy"
	return lc
}

// Resolve turns the network settings into an Auth. A blank api_key falls back
// to the network's environment variable.
func (c *Config) Resolve(lookup network.LookupFunc) (network.Auth, error) {
	r := network.Resolver{Lookup: lookup, BaseURL: c.BaseURL}
	return r.Resolve(c.Network, c.APIKey, network.Proxies(c.Proxies))
}
