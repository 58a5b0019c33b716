// Command server runs the chatbot backend: the HTTP API, the background
// maintenance scheduler, and the supporting Postgres and Redis wiring.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/config"
	"github.com/movedesk/chatbot/core/email"
	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/health"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/router"
	"github.com/movedesk/chatbot/core/scheduler"
	"github.com/movedesk/chatbot/core/security"
	"github.com/movedesk/chatbot/core/server"
	"github.com/movedesk/chatbot/core/session"
	"github.com/movedesk/chatbot/handlers"
	"github.com/movedesk/chatbot/integration/ai/openai"
	"github.com/movedesk/chatbot/integration/database/pg"
	redisdb "github.com/movedesk/chatbot/integration/database/redis"
	"github.com/movedesk/chatbot/integration/email/postmark"
	"github.com/movedesk/chatbot/middleware"
	"github.com/movedesk/chatbot/migrations"
	"github.com/movedesk/chatbot/pkg/breaker"
	"github.com/movedesk/chatbot/pkg/ratelimiter"
	"github.com/movedesk/chatbot/storage/postgres"
	redisstore "github.com/movedesk/chatbot/storage/redis"
)

type appConfig struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	RequestLimit  int64         `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RequestWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	AnomalyLimit  int64         `env:"SECURITY_ANOMALY_LIMIT" envDefault:"100"`
	AnomalyWindow time.Duration `env:"SECURITY_ANOMALY_WINDOW" envDefault:"1m"`

	SessionTTL           time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionAbsoluteTTL   time.Duration `env:"SESSION_ABSOLUTE_TTL" envDefault:"336h"`
	SessionMaxConcurrent int           `env:"SESSION_MAX_CONCURRENT" envDefault:"5"`

	ConversationIdle      time.Duration `env:"CONVERSATION_IDLE_TIMEOUT" envDefault:"30m"`
	ConversationRetention time.Duration `env:"CONVERSATION_RETENTION" envDefault:"2160h"`

	SweepInterval time.Duration `env:"MAINTENANCE_SWEEP_INTERVAL" envDefault:"5m"`
	PruneInterval time.Duration `env:"MAINTENANCE_PRUNE_INTERVAL" envDefault:"24h"`

	VisitWindow    time.Duration `env:"VISIT_DEDUP_WINDOW" envDefault:"1h"`
	ConfigCacheTTL time.Duration `env:"CHAT_CONFIG_CACHE_TTL" envDefault:"1m"`

	// TranscriptRecipient receives completed conversation transcripts when
	// the Postmark support address is not set.
	TranscriptRecipient string `env:"TRANSCRIPT_RECIPIENT" envDefault:"support@elatemoving.com"`

	// DevEmailDir is where the development sender drops transcript files
	// when Postmark credentials are absent.
	DevEmailDir string `env:"DEV_EMAIL_DIR" envDefault:"./var/outbox"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewDefault(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		app    appConfig
		pgCfg  pg.Config
		rdbCfg redisdb.Config
		aiCfg  openai.Config
		pmCfg  postmark.Config
		srvCfg server.Config
	)
	config.MustLoad(&app)
	config.MustLoad(&pgCfg)
	config.MustLoad(&rdbCfg)
	config.MustLoad(&aiCfg)
	config.MustLoad(&pmCfg)
	config.MustLoad(&srvCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pgCfg.ConnectionURL, migrations.FS); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	rdb, err := redisdb.Connect(ctx, rdbCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	flowStore := postgres.NewFlowStore(pool)
	if err := chat.Seed(ctx, flowStore); err != nil {
		return fmt.Errorf("seed flows: %w", err)
	}

	breakers := breaker.NewRegistry(breaker.Config{
		OnStateChange: func(name string, from, to breaker.State) {
			log.Warn("circuit breaker state changed",
				logger.Dependency(name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	provider, err := openai.New(aiCfg)
	if err != nil {
		return fmt.Errorf("openai provider: %w", err)
	}

	var sender email.EmailSender
	if pmCfg.Configured() {
		if sender, err = postmark.New(pmCfg); err != nil {
			return fmt.Errorf("postmark sender: %w", err)
		}
	} else {
		log.Warn("postmark not configured, transcripts go to the dev outbox",
			slog.String("dir", app.DevEmailDir))
		sender = email.NewDevSender(app.DevEmailDir)
	}

	recipient := pmCfg.SupportEmail
	if recipient == "" {
		recipient = app.TranscriptRecipient
	}
	notifier := chat.NewTranscriptNotifier(sender, breakers.Get("email"), recipient, log)

	chatSvc := chat.NewService(chat.ServiceParams{
		Conversations: postgres.NewConversationStore(pool),
		Flows:         flowStore,
		Configs: chat.NewCachedConfigs(
			postgres.NewConfigStore(pool),
			redisstore.NewCache(rdb, "chat"),
			app.ConfigCacheTTL,
		),
		Provider: provider,
		Breaker:  breakers.Get("openai"),
		Notifier: notifier,
		Logger:   log,
	})

	manager := session.NewManager(postgres.NewSessionStore(pool), log,
		session.WithTTL(app.SessionTTL),
		session.WithAbsoluteTTL(app.SessionAbsoluteTTL),
		session.WithMaxConcurrent(app.SessionMaxConcurrent))

	anomalies, err := ratelimiter.New(redisstore.NewRateLimitStore(rdb, "security"), ratelimiter.Config{
		Limit:  app.AnomalyLimit,
		Window: app.AnomalyWindow,
	})
	if err != nil {
		return fmt.Errorf("anomaly limiter: %w", err)
	}
	validator := security.NewValidator(anomalies, log)

	apiLimiter, err := ratelimiter.New(redisstore.NewRateLimitStore(rdb, "api"), ratelimiter.Config{
		Limit:  app.RequestLimit,
		Window: app.RequestWindow,
	})
	if err != nil {
		return fmt.Errorf("api limiter: %w", err)
	}

	pgProbe := pg.Healthcheck(pool)
	redisProbe := redisdb.Healthcheck(rdb)

	rt := router.New(router.NewContext, middleware.NewErrorHandler[*router.Context](middleware.ErrorHandlerConfig{
		Logger: log,
		Debug:  app.Debug,
	}))

	// Health checks, static assets, and favicons bypass the stateful
	// pipeline stages.
	exempt := func(ctx handler.Context) bool {
		p := ctx.Request().URL.Path
		return strings.HasPrefix(p, "/health") ||
			strings.HasPrefix(p, "/static/") ||
			strings.HasPrefix(p, "/media/") ||
			p == "/favicon.ico"
	}

	rt.Use(
		middleware.Recover[*router.Context](),
		middleware.RequestID[*router.Context](),
		middleware.ProcessingTime[*router.Context](),
		middleware.LoggingWithLogger[*router.Context](log),
		middleware.CORSWithConfig[*router.Context](middleware.CORSConfig{
			AllowedOrigins: app.AllowedOrigins,
		}),
		middleware.SecurityHeaders[*router.Context](),
		middleware.ClientIP[*router.Context](),
		middleware.Fingerprint[*router.Context](),
		middleware.Availability[*router.Context](middleware.AvailabilityConfig{
			Skip: exempt,
			Critical: map[string]middleware.Probe{
				"postgres": pgProbe,
				"redis":    redisProbe,
			},
			Degradable: map[string]middleware.Probe{
				"openai": breakerProbe(breakers, "openai"),
				"email":  breakerProbe(breakers, "email"),
			},
			Logger: log,
		}),
		middleware.BodyLimit[*router.Context](),
		middleware.RequireJSON[*router.Context](),
		middleware.RateLimitWithConfig[*router.Context](middleware.RateLimitConfig{
			Skip:    exempt,
			Limiter: apiLimiter,
			Logger:  log,
		}),
		middleware.SessionWithConfig[*router.Context](middleware.SessionConfig{
			Skip:      exempt,
			Manager:   manager,
			Validator: validator,
			Tracker:   redisstore.NewVisitTracker(rdb, app.VisitWindow),
			Logger:    log,
		}),
	)

	chatH := handlers.NewChat(chatSvc, log)
	sessH := handlers.NewSession(manager, chatSvc, log)

	rt.Handle("GET /health", health.Liveness[*router.Context]())
	rt.Handle("GET /health/ready", health.Readiness[*router.Context](log,
		health.Check{Name: "postgres", Probe: pgProbe},
		health.Check{Name: "redis", Probe: redisProbe}))

	rt.Handle("POST /api/chat/message", func(ctx *router.Context) handler.Response { return chatH.Message(ctx) })
	rt.Handle("GET /api/chat/greeting", func(ctx *router.Context) handler.Response { return chatH.Greeting(ctx) })
	rt.Handle("GET /api/chat/history", func(ctx *router.Context) handler.Response { return chatH.History(ctx) })
	rt.Handle("GET /api/session", func(ctx *router.Context) handler.Response { return sessH.Current(ctx) })
	rt.Handle("POST /api/session/end", func(ctx *router.Context) handler.Response { return sessH.End(ctx) })
	rt.Handle("GET /api/session/summary", func(ctx *router.Context) handler.Response { return sessH.Summary(ctx) })

	sched, err := scheduler.New(log,
		scheduler.Job{
			Name:     "session-sweep",
			Interval: app.SweepInterval,
			Run:      manager.SweepExpired,
		},
		scheduler.Job{
			Name:     "conversation-archive",
			Interval: app.SweepInterval,
			Run: func(ctx context.Context) (int64, error) {
				return chatSvc.ArchiveInactive(ctx, time.Now().Add(-app.ConversationIdle))
			},
		},
		scheduler.Job{
			Name:     "conversation-prune",
			Interval: app.PruneInterval,
			Timeout:  5 * time.Minute,
			Run: func(ctx context.Context) (int64, error) {
				return chatSvc.PruneInactive(ctx, time.Now().Add(-app.ConversationRetention))
			},
		},
	)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	srv := server.New(srvCfg, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(ctx, rt))
	g.Go(sched.Run(ctx))

	log.Info("chatbot backend started", slog.String("addr", srvCfg.Addr))
	return g.Wait()
}

// breakerProbe reports a dependency as unavailable while its circuit is
// open, so requests degrade instead of queueing behind a dead upstream.
func breakerProbe(reg *breaker.Registry, name string) middleware.Probe {
	return func(context.Context) error {
		if reg.Get(name).State() == breaker.StateOpen {
			return breaker.ErrOpen
		}
		return nil
	}
}
