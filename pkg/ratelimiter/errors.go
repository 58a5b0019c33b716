package ratelimiter

import "errors"

// Package-level error definitions for rate limiter operations.
var (
	ErrInvalidConfig    = errors.New("ratelimiter: invalid configuration")
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")
)
