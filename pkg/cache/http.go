package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ResponseTTL returns how long a response may be cached. Cache-Control
// directives take precedence over Expires; without either, fallback is
// returned. A zero result means "do not cache".
func ResponseTTL(headers http.Header, fallback time.Duration) time.Duration {
	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			switch {
			case directive == "no-store", directive == "no-cache":
				return 0
			case strings.HasPrefix(directive, "max-age="):
				secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
				if err == nil {
					if secs <= 0 {
						return 0
					}
					return time.Duration(secs) * time.Second
				}
			}
		}
	}

	if expiresStr := headers.Get("Expires"); expiresStr != "" {
		expires, err := http.ParseTime(expiresStr)
		if err != nil {
			return fallback
		}
		ttl := time.Until(expires)
		if ttl < 0 {
			return 0
		}
		return ttl
	}

	return fallback
}
