package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
)

type degradationContextKey struct{}

// Probe checks one dependency's availability.
type Probe func(ctx context.Context) error

// AvailabilityConfig configures the availability gate.
type AvailabilityConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// Critical probes must pass for the request to proceed. A failing
	// critical dependency rejects with SERVICE_UNAVAILABLE.
	Critical map[string]Probe

	// Degradable probes mark the request as degraded instead of rejecting
	// it. Handlers read the mode to skip optional work.
	Degradable map[string]Probe

	// CacheTTL is how long probe results are reused (default: 60s).
	// Probing every dependency on every request would turn health checks
	// into load.
	CacheTTL time.Duration

	// ProbeTimeout bounds each probe call (default: 2s).
	ProbeTimeout time.Duration

	// Logger records dependency failures (default: discard).
	Logger *slog.Logger
}

// Availability gates requests on dependency health. Critical failures
// reject; degradable failures annotate the response with an
// X-Degradation-Mode header and let handlers adapt.
func Availability[C handler.Context](cfg AvailabilityConfig) handler.Middleware[C] {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDiscard()
	}

	probes := &probeCache{
		ttl:     cfg.CacheTTL,
		timeout: cfg.ProbeTimeout,
		results: make(map[string]probeResult),
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			for name, probe := range cfg.Critical {
				if err := probes.check(ctx, name, probe); err != nil {
					cfg.Logger.ErrorContext(ctx, "critical dependency unavailable",
						logger.Component("http"),
						logger.Dependency(name),
						logger.Error(err))
					return response.Error(response.ErrServiceUnavailable)
				}
			}

			var degraded []string
			for name, probe := range cfg.Degradable {
				if err := probes.check(ctx, name, probe); err != nil {
					cfg.Logger.WarnContext(ctx, "dependency degraded",
						logger.Component("http"),
						logger.Dependency(name),
						logger.Error(err))
					degraded = append(degraded, name)
				}
			}
			if len(degraded) == 0 {
				return next(ctx)
			}

			sort.Strings(degraded)
			mode := strings.Join(degraded, ",")
			ctx.SetValue(degradationContextKey{}, degraded)

			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set("X-Degradation-Mode", mode)
				return resp(w, r)
			}
		}
	}
}

// GetDegradation returns the names of degraded dependencies for this
// request, empty when everything is healthy.
func GetDegradation(ctx handler.Context) []string {
	degraded, _ := ctx.Value(degradationContextKey{}).([]string)
	return degraded
}

// IsDegraded reports whether the named dependency is degraded for this
// request.
func IsDegraded(ctx handler.Context, name string) bool {
	for _, d := range GetDegradation(ctx) {
		if d == name {
			return true
		}
	}
	return false
}

type probeResult struct {
	err       error
	checkedAt time.Time
}

// probeCache memoizes probe outcomes for the configured TTL.
type probeCache struct {
	ttl     time.Duration
	timeout time.Duration

	mu      sync.Mutex
	results map[string]probeResult
}

func (p *probeCache) check(ctx context.Context, name string, probe Probe) error {
	p.mu.Lock()
	if cached, ok := p.results[name]; ok && time.Since(cached.checkedAt) < p.ttl {
		p.mu.Unlock()
		return cached.err
	}
	p.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := probe(probeCtx)
	cancel()

	p.mu.Lock()
	p.results[name] = probeResult{err: err, checkedAt: time.Now()}
	p.mu.Unlock()
	return err
}
