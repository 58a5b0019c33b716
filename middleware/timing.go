package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/movedesk/chatbot/core/handler"
)

// ProcessingTime annotates every response with an X-Processing-Time header
// in milliseconds, measured from middleware entry to response rendering.
func ProcessingTime[C handler.Context]() handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			start := time.Now()
			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				ms := time.Since(start).Milliseconds()
				w.Header().Set("X-Processing-Time", strconv.FormatInt(ms, 10)+"ms")
				return resp(w, r)
			}
		}
	}
}
