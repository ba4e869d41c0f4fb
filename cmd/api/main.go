// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api serves the bcbbs login, captcha and public portal endpoints.
//
// Configuration comes from the environment (and .env in development). On
// start it connects Postgres and Redis, applies pending migrations, then
// listens until SIGINT or SIGTERM and drains in-flight requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/bcbbs/internal/api"
	"github.com/taibuivan/bcbbs/internal/platform/config"
	"github.com/taibuivan/bcbbs/internal/platform/constants"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/internal/platform/middleware"
	"github.com/taibuivan/bcbbs/internal/platform/migration"
	pgstore "github.com/taibuivan/bcbbs/internal/platform/postgres"
	redisstore "github.com/taibuivan/bcbbs/internal/platform/redis"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/internal/portal/lines"
	"github.com/taibuivan/bcbbs/internal/portal/search"
	"github.com/taibuivan/bcbbs/internal/users/auth"
)

// startupBudget bounds connecting and migrating so a wrong DATABASE_URL fails fast.
const startupBudget = 30 * time.Second

func main() {
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("startup_failure", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server_stopped_cleanly")
}

func run(log *slog.Logger) error {
	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
	}
	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("captcha_store", cfg.CaptchaStore),
		slog.Int("trusted_proxy_ranges", len(cfg.TrustedProxyRanges())),
	)

	// appCtx ends on the first SIGINT/SIGTERM and stops the background loops.
	appCtx, stop := signal.NotifyContext(ctxutil.WithLogger(context.Background(), log), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancelStartup := context.WithTimeout(appCtx, startupBudget)
	defer cancelStartup()

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis_close_failed", slog.Any("error", err))
		}
	}()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return err
	}

	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	if err != nil {
		return err
	}
	rotationRoles, err := parseRoles(cfg.PasswordRotationRoles)
	if err != nil {
		return fmt.Errorf("PASSWORD_ROTATION_ROLES: %w", err)
	}

	authService := auth.NewService(auth.ServiceDependencies{
		Principals: auth.NewPrincipalRepository(pool),
		Hasher:     sec.BcryptHasher{},
		Tokens:     tokens,
		Captcha: auth.NewCaptchaGate(newChallengeStore(appCtx, cfg, pool, rdb),
			auth.WithCaptchaTTL(cfg.CaptchaTTL),
			auth.WithCaptchaLength(cfg.CaptchaLength),
		),
		Policy:         auth.NewLifecyclePolicy(rotationRoles...),
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	captchaLimiter := middleware.RateLimit(appCtx, constants.CaptchaRateLimitRPS, constants.CaptchaRateLimitBurst)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	server := api.NewServer(appCtx, cfg, log, tokens, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, captchaLimiter),
		Lines:     lines.NewHandler(lines.NewService(lines.NewPostgresRepository(pool))),
		Search:    search.NewHandler(search.NewService(search.NewPostgresRepository(pool))),
	})

	return serve(appCtx, log, server)
}

// serve runs server until ctx ends, then drains for constants.ShutdownTimeout.
func serve(ctx context.Context, log *slog.Logger, server *api.Server) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- server.ListenAndServe() }()

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown_signal_received", slog.Duration("drain_timeout", constants.ShutdownTimeout))
	}

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// newChallengeStore picks the captcha backend named by CAPTCHA_STORE. Only the
// SQL table needs the purge loop; Redis keys expire on their own.
func newChallengeStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client) auth.ChallengeStore {
	if cfg.CaptchaStore == config.CaptchaStoreRedis {
		return auth.NewRedisChallengeRepository(rdb)
	}

	store := auth.NewPostgresChallengeRepository(pool)
	go auth.PurgeChallenges(ctx, store, constants.CaptchaPurgeInterval)
	return store
}

// parseRoles skips blank entries left by a trailing comma.
func parseRoles(names []string) ([]sec.UserRole, error) {
	roles := make([]sec.UserRole, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		role, err := sec.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
