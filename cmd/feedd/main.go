// Package main is the entrypoint of the Bazario feed engine daemon.
//
// feedd wires the signal store, the aggregate cache, and the ranking
// pipeline together, subscribes the engine to the marketplace event
// stream, and runs the trending decay sweep until shut down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bazario/bazario-feed/config"
	"github.com/bazario/bazario-feed/internal/infrastructure/messaging"
	"github.com/bazario/bazario-feed/internal/infrastructure/persistence/postgres"
	"github.com/bazario/bazario-feed/internal/infrastructure/persistence/redis"
	"github.com/bazario/bazario-feed/internal/infrastructure/service"
	"github.com/bazario/bazario-feed/internal/ranking"
	"github.com/bazario/bazario-feed/pkg/logger"
	"github.com/bazario/bazario-feed/pkg/timeutil"
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
	// CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.AddCaller,
	})
	log.Info("starting feedd",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// SIGNAL STORE
	// ─────────────────────────────────────────────────────────────────────────

	pgConfig := postgres.DefaultConfig()
	pgConfig.URL = cfg.Database.URL
	pgConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	pgConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgConfig.QueryTimeout = cfg.Database.QueryTimeout

	conn, err := postgres.NewConnection(ctx, pgConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to signal store: %w", err)
	}
	defer conn.Close()
	log.Info("connected to signal store")

	contentRepo := postgres.NewContentRepository(conn)
	signalRepo := postgres.NewSignalRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// AGGREGATE CACHE
	// ─────────────────────────────────────────────────────────────────────────

	redisConfig := redis.DefaultConfig()
	redisConfig.URL = cfg.Redis.URL
	redisConfig.Host = cfg.Redis.Host
	redisConfig.Port = cfg.Redis.Port
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConns = cfg.Redis.MinIdleConns
	redisConfig.DialTimeout = cfg.Redis.DialTimeout
	redisConfig.ReadTimeout = cfg.Redis.ReadTimeout
	redisConfig.WriteTimeout = cfg.Redis.WriteTimeout

	cache, err := redis.NewCache(redisConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to aggregate cache: %w", err)
	}
	defer cache.Close()
	log.Info("connected to aggregate cache")

	feedCache := redis.NewFeedCache(cache, cfg.Feed.FeedTTL, log)
	profileCache := redis.NewProfileCache(cache, cfg.Feed.InterestsTTL, cfg.Feed.PreferencesTTL, log)
	trendingCache := redis.NewTrendingCache(cache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// RANKING PIPELINE
	// ─────────────────────────────────────────────────────────────────────────

	clock := timeutil.SystemClock{}

	extractor := ranking.NewExtractor(
		signalRepo, contentRepo, profileCache,
		clock, cfg.Feed.SignalHistoryLimit, log,
	)

	generatorCfg := ranking.DefaultGeneratorConfig()
	generatorCfg.PerSourceLimit = cfg.Feed.PerSourceLimit
	generatorCfg.SourceTimeout = cfg.Feed.SourceTimeout
	generatorCfg.FollowedWindow = cfg.Feed.FollowedWindow
	generatorCfg.TrendingK = cfg.Feed.TrendingK
	generator := ranking.NewGenerator(
		contentRepo, signalRepo, trendingCache,
		clock, generatorCfg, log,
	)

	scorer := ranking.NewScorer(clock)

	feedService := service.NewFeedService(
		feedCache, trendingCache, contentRepo,
		extractor, generator, scorer,
		clock,
		service.FeedServiceConfig{
			MaxFeedSize:    cfg.Feed.MaxFeedSize,
			DefaultPerPage: cfg.Feed.DefaultPerPage,
			TrendingK:      cfg.Feed.TrendingK,
		},
		log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// EVENT BUS AND BACKGROUND WORK
	// ─────────────────────────────────────────────────────────────────────────

	bus := messaging.NewInMemoryBus(10, log)
	messaging.RegisterFeedHandlers(bus, feedService)

	go feedService.RunTrendingDecay(ctx, cfg.Feed.TrendingDecayInterval, cfg.Feed.TrendingDecayFactor)

	log.Info("feedd ready")

	// ─────────────────────────────────────────────────────────────────────────
	// GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		_ = bus.Close()
		close(done)
	}()
	select {
	case <-done:
		log.Info("feedd stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timed out, exiting")
	}

	return nil
}
