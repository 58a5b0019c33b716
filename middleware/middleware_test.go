package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/router"
)

// okHandler answers 200 with a tiny JSON body.
func okHandler(_ *router.Context) handler.Response {
	return response.JSON(map[string]string{"status": "ok"})
}

// exec runs the middleware chain against a recorded request and returns the
// recorder plus the rendering error, which the router would normally hand
// to the error handler.
func exec(
	t *testing.T,
	req *http.Request,
	h handler.HandlerFunc[*router.Context],
	mw ...handler.Middleware[*router.Context],
) (*httptest.ResponseRecorder, *router.Context, error) {
	t.Helper()

	rec := httptest.NewRecorder()
	ctx := router.NewContext(rec, req)

	wrapped := h
	for i := len(mw) - 1; i >= 0; i-- {
		wrapped = mw[i](wrapped)
	}

	resp := wrapped(ctx)
	if resp == nil {
		return rec, ctx, nil
	}
	return rec, ctx, resp(rec, req)
}
