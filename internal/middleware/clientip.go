package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address used to key rate limits and fingerprints.
// Proxy headers are honoured only when trustProxy is set: Cloudflare's
// CF-Connecting-IP first, then the first X-Forwarded-For hop. RemoteAddr is
// the fallback.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
			return ip
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
