package handler

import (
	"context"
	"net/http"
)

// Context is the per-request context passed through the middleware chain.
// It embeds context.Context so handlers can pass it straight into blocking
// dependency calls.
type Context interface {
	context.Context

	// Request returns the incoming request.
	Request() *http.Request

	// ResponseWriter returns the writer for the response.
	ResponseWriter() http.ResponseWriter

	// Param returns the value of a URL path parameter.
	Param(key string) string

	// SetValue stores a request-scoped value retrievable via Value.
	// Middleware uses it to hand request IDs, sessions, and client info
	// down the chain.
	SetValue(key, val any)
}
