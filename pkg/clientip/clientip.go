// Package clientip extracts real client IP addresses from HTTP requests.
//
// Proxy headers are checked in priority order, most reliable first:
//
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (leftmost entry is the original client)
//  4. X-Real-IP (nginx and other proxies)
//  5. RemoteAddr (direct connection)
//
// Every candidate is parsed and normalized with net.ParseIP; malformed
// headers and the special address 0.0.0.0 are skipped. When nothing valid is
// found, the raw RemoteAddr is returned so callers always get a non-empty
// string for logging.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders in priority order.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the client IP address for the request.
// It never panics and always returns a non-empty string.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For may contain a chain: "client, proxy1, proxy2".
		// Walk left to right and take the first valid entry.
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := normalize(strings.TrimSpace(candidate)); ip != "" {
				return ip
			}
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := normalize(host); ip != "" {
			return ip
		}
	}
	if ip := normalize(r.RemoteAddr); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// normalize validates and canonicalizes an IP string.
// Returns "" for invalid addresses and for 0.0.0.0, which some proxies send
// when they could not determine the client address.
func normalize(s string) string {
	ip := net.ParseIP(s)
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
