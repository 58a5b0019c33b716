// Package health provides the liveness and readiness endpoints. Liveness
// answers as long as the process serves requests; readiness verifies the
// dependencies the chat pipeline cannot run without.
package health

import (
	"context"
	"log/slog"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
)

// Check probes one named dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Liveness reports that the process is up. No dependency checks: a live
// process with a broken database is restarted by nothing, readiness handles
// that.
func Liveness[C handler.Context]() handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		return response.JSON(map[string]string{"status": "alive"})
	}
}

// Readiness verifies every check and answers 503 when any fails. The body
// names each dependency's state so operators can see which one is down.
func Readiness[C handler.Context](log *slog.Logger, checks ...Check) handler.HandlerFunc[C] {
	if log == nil {
		log = logger.NewDiscard()
	}

	return func(ctx C) handler.Response {
		deps := make(map[string]string, len(checks))
		ready := true
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component("health"),
					logger.Dependency(check.Name),
					logger.Error(err))
				deps[check.Name] = "unavailable"
				ready = false
				continue
			}
			deps[check.Name] = "ok"
		}

		if !ready {
			return response.Error(response.ErrServiceUnavailable.WithDetails(map[string]any{
				"dependencies": deps,
			}))
		}
		return response.JSON(map[string]any{
			"status":       "ready",
			"dependencies": deps,
		})
	}
}
