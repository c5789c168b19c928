package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/blockfrost-client/pkg/cache"
	"github.com/Sternrassler/blockfrost-client/pkg/client"
	"github.com/Sternrassler/blockfrost-client/pkg/explorer"
	"github.com/Sternrassler/blockfrost-client/pkg/logging"
	"github.com/Sternrassler/blockfrost-client/pkg/metrics"
	"github.com/Sternrassler/blockfrost-client/pkg/pagination"
	"github.com/Sternrassler/blockfrost-client/pkg/table"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Query parameters consumed by the proxy. Anything else is forwarded, except
// the paging parameters the engine sets itself.
const (
	paramOrder   = "order"
	paramLimit   = "limit"
	paramAll     = "all"
	paramSingle  = "single"
	paramFormat  = "format"
	paramRefresh = "refresh"
)

var engineParams = []string{"count", "page"}

// HeaderPagesFetched reports how many pages an aggregated response took.
const HeaderPagesFetched = "X-Pages-Fetched"

// HeaderNetworkMagic carries the Cardano network magic on /ready.
const HeaderNetworkMagic = "X-Network-Magic"

type apiError struct {
	Error string `json:"error"`
}

type proxy struct {
	explorer *explorer.Explorer
	redis    *redis.Client
	cache    *cache.Manager
	logger   zerolog.Logger
}

// newProxy builds the handlers. redisClient and cacheManager may be nil.
func newProxy(ex *explorer.Explorer, redisClient *redis.Client, cacheManager *cache.Manager) *proxy {
	return &proxy{
		explorer: ex,
		redis:    redisClient,
		cache:    cacheManager,
		logger:   logging.ForNetwork("bf-proxy", ex.Auth().Network().String()),
	}
}

func (p *proxy) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", p.readyHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/bf/", p.resourceHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler fails while a configured Redis is unreachable.
func (p *proxy) readyHandler(w http.ResponseWriter, r *http.Request) {
	if p.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set(HeaderNetworkMagic, strconv.FormatUint(uint64(p.explorer.Auth().Network().Magic()), 10))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// resourceHandler maps /bf/<resource> onto the Blockfrost resource. Lists
// are aggregated unless single=true.
func (p *proxy) resourceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "only GET is supported")
		return
	}

	// The escaped form keeps %2F inside a segment from turning into a separator.
	resource := strings.TrimPrefix(r.URL.EscapedPath(), "/bf")
	if resource == "" || resource == "/" {
		writeJSONError(w, http.StatusBadRequest, "missing resource path")
		return
	}

	query := r.URL.Query()
	csvOut := query.Get(paramFormat) == "csv"

	for _, name := range engineParams {
		if query.Has(name) {
			writeJSONError(w, http.StatusBadRequest, name+" is set by the proxy")
			return
		}
	}

	if refresh, _ := strconv.ParseBool(query.Get(paramRefresh)); refresh {
		p.purge(r.Context(), resource)
	}

	forwarded := url.Values{}
	for k, v := range query {
		switch k {
		case paramOrder, paramLimit, paramAll, paramSingle, paramFormat, paramRefresh:
		default:
			forwarded[k] = v
		}
	}
	if len(forwarded) > 0 {
		resource += "?" + forwarded.Encode()
	}

	if single, _ := strconv.ParseBool(query.Get(paramSingle)); single {
		body, err := p.explorer.Get(r.Context(), resource)
		if err != nil {
			p.writeError(w, resource, err)
			return
		}
		if csvOut {
			p.writeCSV(w, resource, []json.RawMessage{body}, 0)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	listOpts, err := parseListOptions(query)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := p.explorer.List(r.Context(), resource, listOpts...)
	if err != nil {
		p.writeError(w, resource, err)
		return
	}

	if csvOut {
		p.writeCSV(w, resource, res.Records, res.PagesFetched)
		return
	}
	w.Header().Set(HeaderPagesFetched, strconv.Itoa(res.PagesFetched))
	records := res.Records
	if records == nil {
		records = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, records)
}

// purge drops the cached pages of resource so the next fetch goes upstream.
func (p *proxy) purge(ctx context.Context, resource string) {
	if p.cache == nil {
		return
	}
	key, err := cache.KeyFromURL(p.explorer.Auth().BaseURL() + resource)
	if err != nil {
		return
	}
	n, err := p.cache.Purge(ctx, key.Endpoint)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", resource).Msg("Cache purge failed")
		return
	}
	p.logger.Debug().Str("path", resource).Int("keys", n).Msg("Cache purged")
}

func parseListOptions(query url.Values) ([]explorer.ListOption, error) {
	var opts []explorer.ListOption

	if v := query.Get(paramOrder); v != "" {
		order, err := pagination.ParseOrder(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, explorer.WithOrder(order))
	}
	if v := query.Get(paramLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, errors.New("limit must be a positive integer")
		}
		opts = append(opts, explorer.WithLimit(n))
	}
	if all, _ := strconv.ParseBool(query.Get(paramAll)); all {
		opts = append(opts, explorer.WithAll())
	}
	return opts, nil
}

// statusFor maps client errors onto proxy responses.
func statusFor(err error) int {
	var remote *client.RemoteError
	switch {
	case errors.As(err, &remote):
		return remote.StatusCode
	case errors.Is(err, client.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, pagination.ErrInvalidOrder), errors.Is(err, explorer.ErrEmptyParameter):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrContextCancelled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (p *proxy) writeError(w http.ResponseWriter, resource string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		p.logger.Error().Err(err).Str("path", resource).Int("status_code", status).Msg("Blockfrost request failed")
	} else {
		p.logger.Debug().Err(err).Str("path", resource).Int("status_code", status).Msg("Blockfrost request rejected")
	}
	writeJSONError(w, status, err.Error())
}

// writeCSV renders records as CSV. pages is reported in HeaderPagesFetched
// when positive.
func (p *proxy) writeCSV(w http.ResponseWriter, resource string, records []json.RawMessage, pages int) {
	tbl, err := table.FromRecords(records)
	if err != nil {
		p.writeError(w, resource, err)
		return
	}
	if pages > 0 {
		w.Header().Set(HeaderPagesFetched, strconv.Itoa(pages))
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := tbl.WriteCSV(w); err != nil {
		// Status and part of the body are already sent.
		p.logger.Warn().Err(err).Str("path", resource).Msg("CSV write failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}
