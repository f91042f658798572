package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ttsgateway/internal/api"
	"github.com/nikhilbhutani/ttsgateway/internal/cache"
	"github.com/nikhilbhutani/ttsgateway/internal/config"
	"github.com/nikhilbhutani/ttsgateway/internal/database"
	"github.com/nikhilbhutani/ttsgateway/internal/dispatch"
	"github.com/nikhilbhutani/ttsgateway/internal/metrics"
	"github.com/nikhilbhutani/ttsgateway/internal/schema"
	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers"
	"github.com/nikhilbhutani/ttsgateway/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	validator, err := schema.NewValidator()
	if err != nil {
		slog.Error("failed to compile schemas", "error", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(promReg)
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	var store storage.AudioStore
	switch cfg.Storage.Backend {
	case "supabase":
		store = storage.NewSupabaseStore(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.Bucket)
	default:
		local, err := storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			slog.Error("failed to prepare audio directory", "dir", cfg.Storage.LocalDir, "error", err)
			os.Exit(1)
		}
		store = local
	}

	// Database connection (optional, usage is not recorded without it)
	var (
		db       *pgxpool.Pool
		recorder usage.Recorder = usage.Nop{}
		pgUsage  *usage.PgRecorder
	)
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			slog.Warn("database unavailable, running without usage log", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath, logger); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			pgUsage = usage.NewPgRecorder(db)
			recorder = pgUsage
		}
	}

	// Redis connection (optional, voice catalogs are not cached without it)
	var (
		voiceCache *cache.Cache
		wrap       providers.Wrapper
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		c := cache.NewCache(rdb, "ttsgw:")
		if err := c.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, voice catalogs will be fetched live", "error", err)
		}
		voiceCache = c
		wrap = func(p tts.Provider) tts.Provider {
			return cache.NewCachedProvider(p, c, cfg.Redis.VoiceCacheTTL, logger)
		}
	}

	registry := tts.NewRegistry()
	ids, err := providers.Register(ctx, registry, cfg.Providers, store, wrap, logger)
	if err != nil {
		slog.Error("failed to register providers", "error", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		slog.Warn("no providers configured")
	}
	slog.Info("providers registered", "providers", registry.List())

	dispatcher := dispatch.New(registry, validator,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(m),
		dispatch.WithUsageRecorder(recorder),
		dispatch.WithStatusConcurrency(cfg.Server.StatusConcurrency),
	)

	deps := api.Deps{
		Dispatcher: dispatcher,
		DB:         db,
		Cache:      voiceCache,
		Gatherer:   promReg,
		Logger:     logger,
	}
	if pgUsage != nil {
		deps.Usage = pgUsage
	}

	// Setup router
	router := api.NewRouter(cfg, deps)
	handler := router.Setup()

	done := make(chan struct{})
	if rl := router.Limiter(); rl != nil {
		go rl.Cleanup(done, time.Minute)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting TTS gateway", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	close(done)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// newLogger builds the process logger: JSON in production, tint for local
// development.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
