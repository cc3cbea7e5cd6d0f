// Package server wires the Metal Tracker server together: storage, caches,
// services, the HTTP API and the daily snapshot schedule. It also owns
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/auth"
	"github.com/dmitrijs2005/metaltracker/internal/server/config"
	"github.com/dmitrijs2005/metaltracker/internal/server/httpapi"
	"github.com/dmitrijs2005/metaltracker/internal/server/metrics"
	"github.com/dmitrijs2005/metaltracker/internal/server/prices"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/metaltracker/internal/server/services"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"golang.org/x/sync/errgroup"
)

const (
	denylistSize      = 100_000
	rateLimitPrefix   = "metaltracker:ratelimit"
	snapshotJobBudget = 30 * time.Minute
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	metrics  *metrics.Metrics
	location *time.Location

	users     *services.UserService
	snapshots *services.SnapshotService
	handler   http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.SnapshotTimezone)
	if err != nil {
		return nil, fmt.Errorf("snapshot timezone: %w", err)
	}
	for _, name := range cfg.GeneratedSecrets {
		logger.Warn(ctx, "secret not configured, using a random per-process value", "secret", name)
	}

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: cfg, logger: logger, db: db, metrics: metrics.New(), location: loc}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	if cfg.RedisURL != "" {
		client, err := OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = client
	}

	if err := app.wire(rm); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(rm repomanager.RepositoryManager) error {
	cfg := a.config

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenValidityDuration, cfg.TokenLeeway)
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	hasher, err := auth.NewKeyHasher(cfg.APIKeyPepper)
	if err != nil {
		return err
	}

	var denylist auth.Denylist
	if a.redis != nil {
		denylist = auth.NewRedisDenylist(a.redis)
	} else {
		a.logger.Warn(context.Background(), "redis not configured, token denylist is per process")
		md := auth.NewMemoryDenylist(denylistSize, cfg.AccessTokenValidityDuration+cfg.TokenLeeway)
		md.OnEarlyEviction(func(_ string, until time.Time) {
			a.logger.Warn(context.Background(), "token denylist full, a revoked token is valid again",
				"size", denylistSize, "token_expires_at", until)
		})
		denylist = md
	}

	rl, err := a.newLimiter()
	if err != nil {
		return err
	}

	ps := prices.NewClient(cfg.PriceSourceURL, cfg.PriceFetchTimeout, cfg.PriceCacheTTL, a.logger)

	a.users = services.NewUserService(a.db, rm, tokens, passwords, denylist, cfg.RefreshTokenValidityDuration, a.logger)
	keys := services.NewAPIKeyService(a.db, rm, hasher, a.logger)
	settings := services.NewSettingsService(a.db, rm)
	a.snapshots = services.NewSnapshotService(a.db, rm, ps, settings, a.logger)

	deps := httpapi.Deps{
		Users:     a.users,
		Keys:      keys,
		Gate:      services.NewGate(a.db, rm, tokens, denylist, keys),
		Positions: services.NewPositionService(a.db, rm, ps, settings, a.logger),
		Portfolio: services.NewPortfolioService(a.db, rm, ps, settings),
		Settings:  settings,
		Export: services.NewExportService(a.db, rm, services.S3Settings{
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			URLTTL:       cfg.ExportURLTTL,
		}, a.logger),
		Prices:             ps,
		Metrics:            a.metrics,
		Limiter:            rl,
		Sessions:           sessions.NewCookieStore([]byte(cfg.SessionKey)),
		Logger:             a.logger,
		FrontendURL:        cfg.FrontendURL,
		TrustForwardHeader: cfg.TrustForwardHeader,
		Checks:             a.readyChecks(),
	}
	if cfg.GoogleEnabled() {
		deps.OAuth = services.NewOAuthService(services.GoogleSettings{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}, a.users)
	}
	a.handler = httpapi.New(deps)
	return nil
}

func (a *App) newLimiter() (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(a.config.AuthRateLimit)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}

	var store limiter.Store
	if a.redis != nil {
		store, err = sredis.NewStoreWithOptions(a.redis, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
	}
	return limiter.New(store, rate, limiter.WithTrustForwardHeader(a.config.TrustForwardHeader)), nil
}

func (a *App) readyChecks() map[string]httpapi.ReadyCheck {
	checks := map[string]httpapi.ReadyCheck{
		"database": a.db.PingContext,
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	return checks
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// RunSnapshots takes the snapshot of the current day in the configured
// timezone and removes expired refresh tokens.
func (a *App) RunSnapshots(ctx context.Context) (*services.Report, error) {
	report, err := a.snapshots.RunDaily(ctx, time.Now().In(a.location))

	result := "success"
	switch {
	case report == nil:
		result = "failure"
	case err != nil:
		result = "partial"
	}
	a.metrics.SnapshotRuns.WithLabelValues(result).Inc()

	if n, perr := a.users.PurgeExpiredRefreshTokens(ctx); perr != nil {
		a.logger.Warn(ctx, "refresh token purge failed", "error", perr)
	} else if n > 0 {
		a.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	}
	return report, err
}

func (a *App) startScheduler(ctx context.Context) *cron.Cron {
	if a.config.SnapshotSchedule == "" {
		a.logger.Info(ctx, "snapshot schedule disabled")
		return nil
	}
	c := cron.New(cron.WithLocation(a.location), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(a.config.SnapshotSchedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, snapshotJobBudget)
		defer cancel()
		report, err := a.RunSnapshots(jobCtx)
		if err != nil {
			a.logger.Error(jobCtx, "snapshot run failed", "error", err)
		}
		if report != nil {
			a.logger.Info(jobCtx, "snapshot run finished",
				"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed)
		}
	})
	if err != nil {
		a.logger.Error(ctx, "invalid snapshot schedule", "schedule", a.config.SnapshotSchedule, "error", err)
		return nil
	}
	c.Start()
	a.logger.Info(ctx, "snapshot schedule started", "schedule", a.config.SnapshotSchedule, "timezone", a.location.String())
	return c
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down within ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.config.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	sched := a.startScheduler(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info(gctx, "server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if sched != nil {
			<-sched.Stop().Done()
		}
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn(context.Background(), "redis close", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(context.Background(), "db close", "error", err)
		}
	}
}

// OpenRedis connects to a redis:// or rediss:// URL and pings it.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
