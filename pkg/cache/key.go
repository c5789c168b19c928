package cache

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

const keyPrefix = "bf"

// CacheKey identifies one cached Blockfrost response.
type CacheKey struct {
	// Endpoint is host plus path, e.g. "cardano-mainnet.blockfrost.io/api/v0/epochs/200"
	Endpoint string

	// QueryParams are the query parameters (order, page, filters)
	QueryParams url.Values
}

// KeyFromURL builds a key from a full request URL.
func KeyFromURL(rawURL string) (CacheKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CacheKey{}, fmt.Errorf("parse url: %w", err)
	}
	return CacheKey{
		Endpoint:    u.Host + u.Path,
		QueryParams: u.Query(),
	}, nil
}

// String renders the Redis key. Query parameters are sorted by name and
// repeated values are joined with commas, so the order they appeared in the
// URL does not matter:
//
//	bf:cardano-mainnet.blockfrost.io/api/v0/pools:order=asc:page=2
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		b.WriteByte(':')
		b.WriteString(endpoint)
	}
	for _, name := range slices.Sorted(maps.Keys(k.QueryParams)) {
		fmt.Fprintf(&b, ":%s=%s", name, strings.Join(k.QueryParams[name], ","))
	}
	return b.String()
}
