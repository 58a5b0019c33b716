package response

import (
	"net/http"

	"github.com/movedesk/chatbot/core/handler"
)

// Error returns a response that propagates err to the router's error
// handler. Handlers use it to surface HTTPError values and classified
// dependency failures without rendering anything themselves.
func Error(err error) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		return err
	}
}
