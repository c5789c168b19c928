// Package explorer exposes the Blockfrost resources as thin methods over the
// single-page fetcher and the pagination engine.
//
// Single-object endpoints return the raw JSON document. List endpoints are
// aggregated across pages and return the merged records; use ListOption
// values to pick the order and how many records to collect.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/blockfrost-client/pkg/logging"
	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/Sternrassler/blockfrost-client/pkg/pagination"
	"github.com/rs/zerolog"
)

// DefaultLimit is the number of records list methods collect unless told
// otherwise. Stake account lists default to pagination.All.
const DefaultLimit pagination.Limit = 100

// ErrEmptyParameter is returned when a path parameter (address, hash, id) is
// blank. No request is made.
var ErrEmptyParameter = errors.New("empty path parameter")

// Explorer queries one Blockfrost network with one set of credentials.
type Explorer struct {
	auth         network.Auth
	fetcher      pagination.PageFetcher
	engineConfig pagination.Config
	engine       *pagination.Engine
	logger       zerolog.Logger
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithEngineConfig replaces the pagination engine configuration.
func WithEngineConfig(cfg pagination.Config) Option {
	return func(e *Explorer) {
		e.engineConfig = cfg
	}
}

// New creates an Explorer. fetcher is normally a *client.Client.
func New(auth network.Auth, fetcher pagination.PageFetcher, opts ...Option) (*Explorer, error) {
	if auth.IsZero() {
		return nil, fmt.Errorf("auth is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	e := &Explorer{
		auth:         auth,
		fetcher:      fetcher,
		engineConfig: pagination.DefaultConfig(),
		logger:       logging.ForNetwork("explorer", auth.Network().String()),
	}
	for _, opt := range opts {
		opt(e)
	}

	engine, err := pagination.NewEngine(fetcher, e.engineConfig)
	if err != nil {
		return nil, fmt.Errorf("pagination: %w", err)
	}
	e.engine = engine
	return e, nil
}

// Auth returns the credentials the Explorer was built with.
func (e *Explorer) Auth() network.Auth {
	return e.auth
}

// ListOption tunes a list method call.
type ListOption func(*listOptions)

type listOptions struct {
	order pagination.Order
	limit pagination.Limit
}

// WithOrder sets the remote sort order.
func WithOrder(order pagination.Order) ListOption {
	return func(o *listOptions) { o.order = order }
}

// WithLimit caps the number of records collected.
func WithLimit(n int) ListOption {
	return func(o *listOptions) { o.limit = pagination.Limit(n) }
}

// WithAll collects every record.
func WithAll() ListOption {
	return func(o *listOptions) { o.limit = pagination.All }
}

func resolveListOptions(defaultLimit pagination.Limit, opts []ListOption) listOptions {
	o := listOptions{order: pagination.Asc, limit: defaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// List aggregates an arbitrary list resource relative to the base URL,
// e.g. "/epochs/420/stakes". The result carries the page count.
func (e *Explorer) List(ctx context.Context, path string, opts ...ListOption) (pagination.Result, error) {
	o := resolveListOptions(DefaultLimit, opts)
	return e.engine.Aggregate(ctx, e.auth, o.order, o.limit, path)
}

// Get fetches an arbitrary single-object resource relative to the base URL.
func (e *Explorer) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return e.fetcher.FetchOne(ctx, e.auth.BaseURL()+path, e.auth)
}

func (e *Explorer) getf(ctx context.Context, format string, params ...string) (json.RawMessage, error) {
	path, err := buildPath(format, params...)
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, path)
}

func (e *Explorer) getInto(ctx context.Context, v any, format string, params ...string) error {
	body, err := e.getf(ctx, format, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", format, err)
	}
	return nil
}

func (e *Explorer) listf(ctx context.Context, defaultLimit pagination.Limit, opts []ListOption, format string, params ...string) ([]json.RawMessage, error) {
	path, err := buildPath(format, params...)
	if err != nil {
		return nil, err
	}

	o := resolveListOptions(defaultLimit, opts)
	res, err := e.engine.Aggregate(ctx, e.auth, o.order, o.limit, path)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("path", path).
		Int("pages", res.PagesFetched).
		Int("records", len(res.Records)).
		Msg("List fetched")
	return res.Records, nil
}

// buildPath fills format's %s verbs with escaped, non-blank params.
func buildPath(format string, params ...string) (string, error) {
	args := make([]any, len(params))
	for i, p := range params {
		if strings.TrimSpace(p) == "" {
			return "", fmt.Errorf("%w in %s", ErrEmptyParameter, format)
		}
		args[i] = url.PathEscape(p)
	}
	return fmt.Sprintf(format, args...), nil
}
