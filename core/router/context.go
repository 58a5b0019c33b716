package router

import (
	"net/http"
	"sync"
	"time"
)

// Context is the default handler.Context implementation.
// Context methods delegate to the request's context; values stored with
// SetValue shadow request context values of the same key.
type Context struct {
	w http.ResponseWriter
	r *http.Request

	mu     sync.RWMutex
	values map[any]any
}

// NewContext wraps a request/response pair. Exposed for middleware tests.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{w: w, r: r}
}

func (c *Context) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *Context) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *Context) Err() error                  { return c.r.Context().Err() }

func (c *Context) Value(key any) any {
	c.mu.RLock()
	val, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return val
	}
	return c.r.Context().Value(key)
}

// Request returns the incoming request.
func (c *Context) Request() *http.Request { return c.r }

// ResponseWriter returns the writer for the response.
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// Param returns the value of a URL path parameter, as matched by the
// http.ServeMux pattern the handler was registered under.
func (c *Context) Param(key string) string { return c.r.PathValue(key) }

// SetValue stores a request-scoped value.
func (c *Context) SetValue(key, val any) {
	c.mu.Lock()
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = val
	c.mu.Unlock()
}

// SetRequest replaces the wrapped request. Middleware that rewrites the
// body (size limiting, buffering) uses it to hand the wrapped reader down
// the chain.
func (c *Context) SetRequest(r *http.Request) { c.r = r }
