// Package fingerprint derives a stable client identifier from request
// headers for session hijack detection and anonymous visitor dedup.
//
// A fingerprint is the hex-encoded first half of a SHA-256 over the
// User-Agent, the Accept-* headers, and optionally the client IP, prefixed
// with a version tag ("v1:"). IP is excluded by default because mobile
// carriers and VPNs rotate addresses mid-session.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/movedesk/chatbot/pkg/clientip"
)

const (
	version = "v1:"
	// Half of SHA-256 keeps the identifier short while leaving collisions
	// out of practical reach for fingerprinting purposes.
	hashLen  = 16
	totalLen = len(version) + hashLen*2
)

var (
	// ErrInvalidFingerprint indicates the stored fingerprint has an
	// unrecognized format or version.
	ErrInvalidFingerprint = errors.New("fingerprint: invalid format")

	// ErrMismatch indicates the current request does not match the stored
	// fingerprint. Either the session was hijacked or the client's browser
	// configuration legitimately changed.
	ErrMismatch = errors.New("fingerprint: mismatch")
)

// Option configures fingerprint generation.
type Option func(*options)

type options struct {
	includeIP bool
}

// WithIP includes the client IP in the fingerprint. Causes false positives
// for mobile and VPN users; reserve it for visit dedup and other short-lived
// identifiers where drift does not lock anyone out.
func WithIP() Option {
	return func(o *options) { o.includeIP = true }
}

// Generate derives a fingerprint for the request in the form "v1:<hex>".
func Generate(r *http.Request, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	components := []string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
		r.Header.Get("Accept"),
	}
	if o.includeIP {
		components = append(components, clientip.GetIP(r))
	}

	// Drop empty components so a missing header hashes the same as an
	// absent one, then join with a delimiter to keep component boundaries
	// unambiguous.
	filtered := components[:0]
	for _, c := range components {
		if c != "" {
			filtered = append(filtered, c)
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(filtered, "|")))
	return version + hex.EncodeToString(sum[:hashLen])
}

// Validate compares the current request against a stored fingerprint.
// The same options used at generation time must be passed here.
func Validate(r *http.Request, stored string, opts ...Option) error {
	if !strings.HasPrefix(stored, version) || len(stored) != totalLen {
		return ErrInvalidFingerprint
	}
	if Generate(r, opts...) != stored {
		return ErrMismatch
	}
	return nil
}
