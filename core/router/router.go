// Package router is a thin generic layer over http.ServeMux that adapts
// handler.HandlerFunc handlers and applies a middleware chain. Pattern
// matching, method routing, and path parameters come from the standard mux;
// this package only adds typed contexts and centralized error handling.
package router

import (
	"net/http"

	"github.com/movedesk/chatbot/core/handler"
)

// Router dispatches requests to typed handlers through a middleware chain.
type Router[C handler.Context] struct {
	mux          *http.ServeMux
	middleware   []handler.Middleware[C]
	newContext   func(w http.ResponseWriter, r *http.Request) C
	errorHandler handler.ErrorHandler[C]
}

// New creates a router. newContext builds the per-request context;
// errorHandler receives errors returned by response renderers and is
// required because silently dropped errors hide broken handlers.
func New[C handler.Context](
	newContext func(w http.ResponseWriter, r *http.Request) C,
	errorHandler handler.ErrorHandler[C],
) *Router[C] {
	if newContext == nil {
		panic("router: newContext is required")
	}
	if errorHandler == nil {
		panic("router: errorHandler is required")
	}
	return &Router[C]{
		mux:          http.NewServeMux(),
		newContext:   newContext,
		errorHandler: errorHandler,
	}
}

// Use appends middleware applied to every handler registered afterwards.
// The first middleware added becomes the outermost.
func (rt *Router[C]) Use(mw ...handler.Middleware[C]) {
	rt.middleware = append(rt.middleware, mw...)
}

// Handle registers a handler for an http.ServeMux pattern
// (e.g. "POST /api/chat/message/").
func (rt *Router[C]) Handle(pattern string, h handler.HandlerFunc[C], mw ...handler.Middleware[C]) {
	chain := make([]handler.Middleware[C], 0, len(rt.middleware)+len(mw))
	chain = append(chain, rt.middleware...)
	chain = append(chain, mw...)
	wrapped := Chain(chain...)(h)

	rt.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := rt.newContext(w, r)
		resp := wrapped(ctx)
		if resp == nil {
			return
		}
		// Render against the context's current request so middleware
		// rewrites (wrapped bodies, derived contexts) stay visible.
		if err := resp(ctx.ResponseWriter(), ctx.Request()); err != nil {
			rt.errorHandler(ctx, err)
		}
	})
}

// ServeHTTP implements http.Handler.
func (rt *Router[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// Chain composes middleware into one, applying them in the order given:
// Chain(a, b, c) produces a(b(c(handler))).
func Chain[C handler.Context](mw ...handler.Middleware[C]) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}
