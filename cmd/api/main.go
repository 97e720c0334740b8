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
	redis "github.com/redis/go-redis/v9"

	"github.com/splax/reportdesk/internal/app/migrate"
	httpx "github.com/splax/reportdesk/internal/http"
	"github.com/splax/reportdesk/internal/repository"
	"github.com/splax/reportdesk/internal/repository/memory"
	"github.com/splax/reportdesk/internal/repository/postgres"
	"github.com/splax/reportdesk/internal/service/auth"
	"github.com/splax/reportdesk/internal/service/report"
	"github.com/splax/reportdesk/internal/service/users"
	"github.com/splax/reportdesk/internal/session"
	"github.com/splax/reportdesk/pkg/config"
	"github.com/splax/reportdesk/pkg/logger"
)

type store interface {
	repository.UserRepository
	repository.ReportRepository
	Ping(context.Context) error
}

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Production() && cfg.SessionSecret == "supersecuresecret" {
		log.Error("SESSION_SECRET must be set in production")
		os.Exit(1)
	}

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.SessionDriver == config.DriverRedis || cfg.RateLimitRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis ping failed", "addr", cfg.RedisAddr, "error", err)
		}
	}

	sessionStore, err := openSessionStore(cfg, rdb)
	if err != nil {
		log.Error("failed to open session store", "driver", cfg.SessionDriver, "error", err)
		os.Exit(1)
	}
	defer sessionStore.Close()

	sessions, err := session.NewManager(sessionStore, session.Options{
		CookieName: cfg.SessionCookieName,
		Secret:     cfg.SessionSecret,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.SessionCookieSecure,
	})
	if err != nil {
		log.Error("failed to configure sessions", "error", err)
		os.Exit(1)
	}

	authSvc := auth.New(repo, log)
	guard := auth.NewGuard(repo, log, cfg.SessionAllowOrphaned)
	userSvc := users.New(repo, log)
	reportSvc := report.New(repo, log)

	limiter := httpx.NewMemoryRateLimiter()
	if cfg.RateLimitRedis && rdb != nil {
		limiter.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, log)
	}

	router := httpx.NewRouter(log, sessions, authSvc, guard, userSvc, reportSvc, limiter, repo.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver, "sessions", cfg.SessionDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		runner, err := migrate.New(pool, cfg.MigrationsDir, log)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("configure migrations: %w", err)
		}
		if err := runner.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := runner.Ensure(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openSessionStore(cfg config.APIConfig, rdb *redis.Client) (session.Store, error) {
	switch cfg.SessionDriver {
	case config.DriverMemory:
		return session.NewMemoryStore(), nil
	case config.DriverRedis:
		return session.NewRedisStore(rdb, cfg.SessionSecret)
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.SessionDriver)
	}
}
