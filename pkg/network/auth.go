package network

import (
	"fmt"
	"os"
	"strings"
)

// Proxies maps a URL scheme ("http", "https") to a proxy URL. Values are
// forwarded as-is; they are not validated here.
type Proxies map[string]string

// LookupFunc reads a configuration value, reporting whether it was set.
type LookupFunc func(key string) (string, bool)

// OSLookup reads from the process environment.
var OSLookup LookupFunc = os.LookupEnv

// MapLookup returns a LookupFunc backed by a fixed map.
func MapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// Auth is a resolved network together with the API key scoped to it.
// It is immutable once returned by a Resolver.
type Auth struct {
	network Network
	baseURL string
	apiKey  string
	proxies Proxies
}

// Network returns the resolved network.
func (a Auth) Network() Network { return a.network }

// BaseURL returns the API prefix requests are built against.
func (a Auth) BaseURL() string { return a.baseURL }

// APIKey returns the Blockfrost project id.
func (a Auth) APIKey() string { return a.apiKey }

// Proxies returns a copy of the proxy configuration.
func (a Auth) Proxies() Proxies {
	if a.proxies == nil {
		return nil
	}
	out := make(Proxies, len(a.proxies))
	for k, v := range a.proxies {
		out[k] = v
	}
	return out
}

// Proxy returns the proxy configured for a scheme.
func (a Auth) Proxy(scheme string) (string, bool) {
	v, ok := a.proxies[scheme]
	return v, ok
}

// Owns reports whether rawURL targets this Auth's base URL. The API key must
// never be sent anywhere else.
func (a Auth) Owns(rawURL string) bool {
	if a.baseURL == "" || !strings.HasPrefix(rawURL, a.baseURL) {
		return false
	}
	rest := rawURL[len(a.baseURL):]
	return rest == "" || rest[0] == '/' || rest[0] == '?'
}

// IsZero reports whether the Auth was never resolved.
func (a Auth) IsZero() bool {
	return !a.network.Valid()
}

// String hides the API key.
func (a Auth) String() string {
	return fmt.Sprintf("%s(%s)", a.network, a.baseURL)
}

// Resolver turns a network name and optional key into an Auth.
type Resolver struct {
	// Lookup supplies the per-network API key variables. Nil means no
	// variables are available.
	Lookup LookupFunc

	// BaseURL overrides the network's Blockfrost URL (self-hosted
	// deployments, tests).
	BaseURL string
}

// NewResolver returns a Resolver reading keys from the process environment.
func NewResolver() Resolver {
	return Resolver{Lookup: OSLookup}
}

// Resolve validates the network, then picks the API key: an explicit apiKey
// wins, otherwise the network's environment variable is used. A missing key
// fails immediately with ErrMissingCredentials.
func (r Resolver) Resolve(name, apiKey string, proxies Proxies) (Auth, error) {
	n, err := ParseNetwork(name)
	if err != nil {
		return Auth{}, err
	}

	key := apiKey
	if key == "" && r.Lookup != nil {
		if v, ok := r.Lookup(n.EnvVar()); ok {
			key = strings.TrimSpace(v)
		}
	}
	if key == "" {
		return Auth{}, fmt.Errorf("%w for %s: pass it explicitly or set %s",
			ErrMissingCredentials, n, n.EnvVar())
	}

	baseURL := n.BaseURL()
	if r.BaseURL != "" {
		baseURL = strings.TrimSuffix(r.BaseURL, "/")
	}

	var copied Proxies
	if proxies != nil {
		copied = make(Proxies, len(proxies))
		for k, v := range proxies {
			copied[k] = v
		}
	}

	return Auth{
		network: n,
		baseURL: baseURL,
		apiKey:  key,
		proxies: copied,
	}, nil
}

// Resolve resolves against the process environment.
func Resolve(name, apiKey string, proxies Proxies) (Auth, error) {
	return NewResolver().Resolve(name, apiKey, proxies)
}
