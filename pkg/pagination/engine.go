package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/blockfrost-client/pkg/client"
	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for aggregations.
var (
	bfPagesPerAggregation = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockfrost_pagination_pages",
		Help:    "Number of page fetches per aggregation",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	bfAggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfrost_aggregations_total",
		Help: "Total aggregations by outcome",
	}, []string{"outcome"})
)

// DefaultPageSize is the number of records Blockfrost returns per page.
const DefaultPageSize = 100

// MaxPageSize is the largest count Blockfrost accepts.
const MaxPageSize = 100

var (
	// ErrInvalidOrder is returned for an order other than ascending or
	// descending. No request is made.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrNotAList is returned when a page body is not a JSON array.
	ErrNotAList = errors.New("page is not a json array")

	// ErrInvalidPageSize is returned for a page size Blockfrost cannot serve.
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Order is the remote sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts asc/ascending and desc/descending in any case. An empty
// string means Asc.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

// Validate reports whether o is a known order.
func (o Order) Validate() error {
	if o != Asc && o != Desc {
		return fmt.Errorf("%w: %q", ErrInvalidOrder, string(o))
	}
	return nil
}

// Limit bounds the number of collected records. Negative means no bound.
type Limit int

// All collects every record the resource has.
const All Limit = -1

// Unbounded reports whether l collects everything.
func (l Limit) Unbounded() bool { return l < 0 }

// PageFetcher fetches one page. *client.Client implements it.
type PageFetcher interface {
	FetchOne(ctx context.Context, rawURL string, auth network.Auth) (json.RawMessage, error)
}

// Config holds engine configuration.
type Config struct {
	// PageSize is sent as count on every page request, and a page shorter
	// than it is the last. Zero means DefaultPageSize.
	PageSize int

	// PageTimeout bounds a single page fetch including its retries.
	// Zero disables it.
	PageTimeout time.Duration
}

// DefaultConfig returns the configuration matching Blockfrost's paging.
func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		PageTimeout: 2 * time.Minute,
	}
}

// Validate rejects page sizes outside 0..MaxPageSize.
func (c Config) Validate() error {
	if c.PageSize < 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidPageSize, c.PageSize, MaxPageSize)
	}
	return nil
}

// Result is the outcome of one aggregation.
type Result struct {
	// Records in the order the remote service returned them.
	Records []json.RawMessage

	// PagesFetched counts page requests issued, including the final empty
	// or short page.
	PagesFetched int
}

// Engine aggregates paged resources sequentially. It keeps no state between
// calls and is safe for concurrent use.
type Engine struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(fetcher PageFetcher, config Config) (*Engine, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.PageSize == 0 {
		config.PageSize = DefaultPageSize
	}
	if config.PageTimeout < 0 {
		config.PageTimeout = 0
	}

	return &Engine{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
	}, nil
}

// Aggregate fetches resourcePath page by page starting at page 1 and merges
// the pages in order. It stops on the first empty page, once limit records
// are collected, or after a page shorter than the page size. A 404 on the
// first page yields an empty result. Any other failure aborts the whole
// aggregation and no partial records are returned.
func (e *Engine) Aggregate(ctx context.Context, auth network.Auth, order Order, limit Limit, resourcePath string) (Result, error) {
	if err := order.Validate(); err != nil {
		return Result{}, err
	}

	base, err := url.Parse(auth.BaseURL() + resourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("parse resource path %q: %w", resourcePath, err)
	}

	start := time.Now()
	records := make([]json.RawMessage, 0)
	pages := 0

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			e.finish("cancelled", pages)
			return Result{}, fmt.Errorf("page %d of %s: %w", page, resourcePath, err)
		}

		body, err := e.fetchPage(ctx, pageURL(base, order, page, e.config.PageSize), auth)
		pages++
		if err != nil {
			if page == 1 && client.IsNotFound(err) {
				e.logger.Debug().Str("path", resourcePath).Msg("Resource not found - empty result")
				e.finish("not_found", pages)
				return Result{Records: records, PagesFetched: pages}, nil
			}
			e.finish("error", pages)
			return Result{}, fmt.Errorf("page %d of %s: %w", page, resourcePath, err)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil || items == nil {
			e.finish("error", pages)
			return Result{}, fmt.Errorf("%w: page %d of %s", ErrNotAList, page, resourcePath)
		}

		e.logger.Debug().
			Str("path", resourcePath).
			Int("page", page).
			Int("records", len(items)).
			Msg("Page fetched")

		if len(items) == 0 {
			e.finish("complete", pages)
			break
		}

		if !limit.Unbounded() && len(records)+len(items) >= int(limit) {
			records = append(records, items[:int(limit)-len(records)]...)
			e.finish("limit", pages)
			break
		}

		records = append(records, items...)

		if len(items) < e.config.PageSize {
			// Blockfrost only returns short pages at the end of a resource.
			e.logger.Debug().
				Str("path", resourcePath).
				Int("page", page).
				Msg("Short page - assuming last page")
			e.finish("complete", pages)
			break
		}
	}

	e.logger.Debug().
		Str("path", resourcePath).
		Int("pages", pages).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Aggregation complete")

	return Result{Records: records, PagesFetched: pages}, nil
}

func (e *Engine) fetchPage(ctx context.Context, rawURL string, auth network.Auth) (json.RawMessage, error) {
	if e.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.PageTimeout)
		defer cancel()
	}
	return e.fetcher.FetchOne(ctx, rawURL, auth)
}

func (e *Engine) finish(outcome string, pages int) {
	bfAggregationsTotal.WithLabelValues(outcome).Inc()
	bfPagesPerAggregation.Observe(float64(pages))
}

// pageURL sets count, order and page on base, keeping any other query the
// resource path already carried.
func pageURL(base *url.URL, order Order, page, count int) string {
	u := *base
	q := u.Query()
	q.Set("count", strconv.Itoa(count))
	q.Set("order", string(order))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
