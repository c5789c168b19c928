package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	bfRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	bfRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockfrost_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	bfRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default SleepFunc. It parks the goroutine on a timer
// so cancellation is observed mid-sleep.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryConfig holds the backoff parameters for one error class.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialBackoff is the first wait.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait. Equal to InitialBackoff for a fixed backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait between retries. 1 means fixed.
	BackoffMultiplier float64

	// Jitter is the randomization factor applied to each wait (0..1).
	Jitter float64
}

// RetryConfigForErrorClass returns the retry configuration for an error class.
// Rate limiting uses a fixed backoff; transport failures back off
// exponentially; everything else is not retried.
func RetryConfigForErrorClass(cfg Config, errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassRateLimit:
		return RetryConfig{
			MaxRetries:        cfg.RateLimitRetries,
			InitialBackoff:    cfg.RateLimitBackoff,
			MaxBackoff:        cfg.RateLimitBackoff,
			BackoffMultiplier: 1,
		}
	case ErrorClassNetwork:
		return RetryConfig{
			MaxRetries:        cfg.TransportRetries,
			InitialBackoff:    cfg.TransportBackoff,
			MaxBackoff:        cfg.MaxTransportBackoff,
			BackoffMultiplier: 2.0,
			Jitter:            0.2,
		}
	default:
		return RetryConfig{}
	}
}

// newPolicy turns a RetryConfig into a bounded backoff.BackOff. NextBackOff
// returns backoff.Stop once MaxRetries waits have been handed out.
func (rc RetryConfig) newPolicy() backoff.BackOff {
	if rc.MaxRetries <= 0 {
		return &backoff.StopBackOff{}
	}

	var base backoff.BackOff
	if rc.BackoffMultiplier <= 1 || rc.InitialBackoff <= 0 {
		base = backoff.NewConstantBackOff(rc.InitialBackoff)
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = rc.InitialBackoff
		exp.MaxInterval = rc.MaxBackoff
		exp.Multiplier = rc.BackoffMultiplier
		exp.RandomizationFactor = rc.Jitter
		exp.MaxElapsedTime = 0
		exp.Reset()
		base = exp
	}

	return backoff.WithMaxRetries(base, uint64(rc.MaxRetries))
}

// retryPolicies tracks one bounded policy per retryable class for the
// lifetime of a single FetchOne call.
type retryPolicies map[ErrorClass]backoff.BackOff

func newRetryPolicies(cfg Config) retryPolicies {
	return retryPolicies{
		ErrorClassRateLimit: RetryConfigForErrorClass(cfg, ErrorClassRateLimit).newPolicy(),
		ErrorClassNetwork:   RetryConfigForErrorClass(cfg, ErrorClassNetwork).newPolicy(),
	}
}

// next returns the wait before the next attempt for errorClass, or false if
// the class is not retryable or its budget is spent.
func (p retryPolicies) next(errorClass ErrorClass) (time.Duration, bool) {
	if !shouldRetry(errorClass) {
		return 0, false
	}
	policy, ok := p[errorClass]
	if !ok {
		return 0, false
	}

	wait := policy.NextBackOff()
	if wait == backoff.Stop {
		bfRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
		return 0, false
	}

	bfRetriesTotal.WithLabelValues(string(errorClass)).Inc()
	bfRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())
	return wait, true
}
