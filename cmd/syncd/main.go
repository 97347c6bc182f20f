// Package main - entry point for the sync daemon.
//
// The daemon owns the whole pipeline:
//   - periodic roster sync from the Flexge partner API into Notion
//   - weekly reset that archives last week's pages and advances the epoch
//   - HTTP control surface for manual triggers, status and health
//
// All state is in-memory and rebuilt at startup by warming the dedup cache
// from the Notion database, so the process can be restarted at any time.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/config"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/application/command"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/infrastructure/external/flexge"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/infrastructure/external/notion"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/infrastructure/scheduler"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/infrastructure/scheduler/jobs"
	httpiface "github.com/mikaelzzzz/flexge-notion-sync/internal/interface/http"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/interface/http/handlers"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting sync daemon",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing external clients...")

	flexgeConfig := flexge.DefaultClientConfig(cfg.Flexge.BaseURL, cfg.Flexge.APIKey)
	flexgeConfig.Timeout = cfg.Flexge.RequestTimeout
	flexgeConfig.Logger = log
	flexgeConfig.Debug = cfg.App.Debug
	source := flexge.NewClient(flexgeConfig)

	notionConfig := notion.DefaultClientConfig(cfg.Notion.Token, cfg.Notion.DatabaseID)
	notionConfig.BaseURL = cfg.Notion.BaseURL
	notionConfig.Timeout = cfg.Notion.RequestTimeout
	notionConfig.Logger = log
	notionConfig.Debug = cfg.App.Debug
	target := notion.NewClient(notionConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. DOMAIN STATE
	// ─────────────────────────────────────────────────────────────────────────
	now := time.Now().UTC()
	keeper := syncdomain.NewKeeper(now)
	cache := syncdomain.NewDedupCache()
	log.Info("epoch initialized", "epoch", keeper.Current().Label())

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	coordinator := command.NewRunCoordinator()
	status := command.NewRunStatus()
	syncHandler := command.NewSyncRosterHandler(source, target, cache, keeper, log)
	resetHandler := command.NewWeeklyResetHandler(target, cache, keeper, command.DefaultWeeklyResetConfig(), log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. WARM START
	// ─────────────────────────────────────────────────────────────────────────
	// Rebuild the dedup cache from the pages already in Notion, so a restart
	// mid-week does not re-create or rewrite up-to-date pages. Failure is
	// not fatal: a cold cache only costs redundant updates.
	warmer := command.NewCacheWarmer(target, cache, keeper, log)
	if seeded, warmErr := warmer.Warm(ctx); warmErr != nil {
		log.Warn("cache warm-up failed, starting cold", "error", warmErr)
	} else {
		log.Info("cache warmed from current pages", "entries", seeded)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("starting scheduler...",
			"sync_interval", cfg.Scheduler.SyncInterval.String(),
			"weekly_reset_cron", cfg.Scheduler.WeeklyResetCron,
		)

		sched = scheduler.NewScheduler(log)

		syncJob := jobs.NewSyncRosterJob(coordinator, syncHandler, status, log)
		if err := sched.Register(syncJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SyncInterval)); err != nil {
			return fmt.Errorf("failed to register sync job: %w", err)
		}

		resetCron, err := scheduler.ParseCronExpression(cfg.Scheduler.WeeklyResetCron)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_WEEKLY_RESET_CRON: %w", err)
		}
		resetJob := jobs.NewWeeklyResetJob(coordinator, resetHandler, status, log)
		if err := sched.Register(resetJob, resetCron); err != nil {
			return fmt.Errorf("failed to register weekly reset job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Warn("scheduler disabled, only manual triggers are available")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP CONTROL SURFACE
	// ─────────────────────────────────────────────────────────────────────────
	var server *httpiface.Server
	var serverErrCh <-chan error

	if cfg.HTTP.Enabled {
		healthChecker := handlers.NewCompositeHealthChecker()
		healthChecker.AddCheck("flexge", handlers.NewProviderCheck("flexge", source))
		healthChecker.AddCheck("notion", handlers.NewProviderCheck("notion", target))

		serverConfig := httpiface.DefaultConfig()
		serverConfig.Host = cfg.HTTP.Host
		serverConfig.Port = cfg.HTTP.Port
		serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
		serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
		serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
		serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
		serverConfig.APIKeys = cfg.HTTP.APIKeys

		server = httpiface.NewServer(serverConfig, httpiface.Dependencies{
			Coordinator:   coordinator,
			SyncHandler:   syncHandler,
			ResetHandler:  resetHandler,
			Status:        status,
			Keeper:        keeper,
			Cache:         cache,
			Logger:        setupHTTPLogger(cfg),
			HealthChecker: healthChecker,
		})

		log.Info("starting HTTP control surface", "address", server.Address())
		serverErrCh = server.StartAsync()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SIGNAL HANDLING
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("sync daemon is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server failed", "error", err)
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging for the daemon. JSON in
// production for log aggregators, text in development for readability.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseSlogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// setupHTTPLogger configures the request logger used by the HTTP layer.
func setupHTTPLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

func parseSlogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
