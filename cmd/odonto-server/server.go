package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/odonto/odonto/internal/config"
	"github.com/odonto/odonto/internal/domain/appointment"
	"github.com/odonto/odonto/internal/domain/availability"
	"github.com/odonto/odonto/internal/domain/officehours"
	"github.com/odonto/odonto/internal/domain/reminder"
	"github.com/odonto/odonto/internal/domain/rescheduling"
	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
	"github.com/odonto/odonto/internal/platform/db"
	"github.com/odonto/odonto/internal/platform/directory"
	"github.com/odonto/odonto/internal/platform/events"
	"github.com/odonto/odonto/internal/platform/middleware"
	"github.com/odonto/odonto/internal/platform/notification"
	"github.com/odonto/odonto/internal/platform/telemetry"
)

const serviceName = "odonto-server"

// app is the assembled server plus everything that must be released on
// shutdown, in reverse order of acquisition.
type app struct {
	echo    *echo.Echo
	closers []func(context.Context) error
	logger  zerolog.Logger
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn().Err(err).Msg("shutdown step failed")
		}
	}
	a.closers = nil
}

type repositories struct {
	hours        officehours.Repository
	appointments appointment.Repository
	reminders    reminder.Repository
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{logger: logger}
	started := false
	defer func() {
		if !started {
			a.close(ctx)
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampling,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.onClose(shutdownTracing)

	var pool *pgxpool.Pool
	var repos repositories
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		logger.Info().Msg("connected to database")
		repos = repositories{
			hours:        officehours.NewRepoPG(pool),
			appointments: appointment.NewRepoPG(pool),
			reminders:    reminder.NewRepoPG(pool),
		}
	default:
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		repos = repositories{
			hours:        officehours.NewRepoMemory(),
			appointments: appointment.NewRepoMemory(),
			reminders:    reminder.NewRepoMemory(),
		}
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
		}, logger)
		a.onClose(func(context.Context) error { return kp.Close() })
		publisher = kp
		logger.Info().Str("brokers", cfg.KafkaBrokers).Msg("publishing domain events to kafka")
	}

	var sender notification.Sender = notification.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	people, err := directory.ParseSeed(cfg.DirectorySeed)
	if err != nil {
		return nil, fmt.Errorf("DIRECTORY_SEED: %w", err)
	}

	loc := cfg.Location()
	hoursSvc := officehours.NewService(repos.hours)
	apptSvc := appointment.NewService(repos.appointments, hoursSvc, publisher, loc)
	availSvc := availability.NewService(hoursSvc, apptSvc, loc)
	reschedSvc := rescheduling.NewService(apptSvc, availSvc, loc)
	reminderSvc := reminder.NewService(repos.reminders, apptSvc, publisher)
	dispatcher := reminder.NewDispatcher(apptSvc, directory.NewStatic(people...),
		notification.NewTemplateEngine(), sender, reminderSvc, loc, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(telemetry.Middleware(serviceName))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	api := e.Group("/api/v1")
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}

	limiter, err := rateLimiter(ctx, cfg, logger, a)
	if err != nil {
		return nil, err
	}
	api.Use(limiter)
	api.Use(middleware.Audit(logger))

	officehours.NewHandler(hoursSvc).RegisterRoutes(api)
	availability.NewHandler(availSvc).RegisterRoutes(api)
	appointment.NewHandler(apptSvc).RegisterRoutes(api)
	rescheduling.NewHandler(reschedSvc).RegisterRoutes(api)
	reminder.NewHandler(reminderSvc, dispatcher).RegisterRoutes(api)

	a.echo = e
	started = true
	return a, nil
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		jc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return jc
}

// rateLimiter shares limits across instances through Redis when REDIS_URL is
// set and falls back to per-process buckets otherwise.
func rateLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger, a *app) (echo.MiddlewareFunc, error) {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	if cfg.RedisURL == "" {
		return middleware.RateLimit(rl), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	a.onClose(func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup; rate limiter fails open")
	}

	perMinute := int(rl.RequestsPerSecond * 60)
	return middleware.NewRedisRateLimiter(rdb, perMinute, time.Minute, "odonto:rl").Middleware(logger, true), nil
}
