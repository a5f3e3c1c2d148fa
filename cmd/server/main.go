package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/config"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/logging"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
	"github.com/JonMunkholm/quizadmin/internal/web"
)

func main() {
	// Overload so a local .env wins over stale shell exports.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"auth_required", cfg.Security.RequireAuth,
		"redis_cache", cfg.Cache.RedisURL != "",
	)
	if !cfg.Security.RequireAuth {
		slog.Warn("authentication disabled, every request runs as super admin")
	}

	ctx := context.Background()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := store.Migrate(ctx, pool); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	st := store.New(pool)

	var cache core.StatsCache
	if cfg.Cache.RedisURL != "" {
		rc, err := core.NewRedisStatsCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	dashboards := core.NewDashboards(st, cache, cfg.Cache.DashboardTTL)
	audit := core.NewAuditService(st)
	imports := core.NewService(core.Deps{Questions: st, Audit: audit, Dashboards: dashboards}, cfg.Import)
	catalog := core.NewCatalog(st, question.NewValidator(), audit, dashboards)

	server := web.NewServer(cfg, web.Deps{
		Imports:  imports,
		Catalog:  catalog,
		Reader:   st,
		Verifier: auth.NewVerifier(cfg.Security.JWTSecret, cfg.Security.JWTIssuer),
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go core.NewArchiveScheduler(st, cfg.Archive).Start(jobCtx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := imports.Limiter().Status(); status.Active > 0 {
			slog.Info("stopping running imports", "active", status.Active)
		}
		if err := imports.Shutdown(shutdownCtx); err != nil {
			slog.Warn("imports did not stop in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
