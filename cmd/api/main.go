package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sqlexpansion/internal/adapter/repo"
	"sqlexpansion/internal/expansion"
	"sqlexpansion/internal/http/handlers"
	httpapi "sqlexpansion/internal/http/httpapi"
	"sqlexpansion/internal/infra"
	"sqlexpansion/internal/infra/credentials"
	"sqlexpansion/internal/infra/geoip"
	"sqlexpansion/internal/middleware"
	"sqlexpansion/internal/resultstore"
	"sqlexpansion/internal/stage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, storeSize, closeStore := mustResultStore(ctx, cfg, logger)
	defer closeStore()

	var (
		pool    *pgxpool.Pool
		journal *repo.TransitionRepositoryPG
		creds   *credentials.Store
	)
	if cfg.JournalEnabled() {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		journal = repo.NewTransitionRepository(runner)
		creds = credentials.NewStore(runner)
	}

	stages := mustStages(ctx, cfg, creds, logger)

	opts := []expansion.Option{expansion.WithLogger(logger)}
	if journal != nil {
		opts = append(opts, expansion.WithJournal(journal))
	}
	svc, err := expansion.NewService(stages, store, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build expansion service")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else {
		defer resolver.Close()
		lookup = resolver.Lookup()
	}

	app := handlers.NewApp(svc, logger, cfg.DefaultLanguage)
	app.StoreSize = storeSize
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:             logger,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:          cfg.JWTSecret,
		DefaultLocale:      cfg.DefaultLocale,
		CountryLookup:      lookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on %s", server.Addr())
		return server.Start()
	})
	if journal != nil {
		g.Go(func() error {
			purgeJournal(gctx, journal, cfg.JournalRetention, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server")
		}
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Int64("active_runs", svc.Active()).Msg("expansion runs still active at shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}

func mustResultStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (resultstore.Store, func() int, func()) {
	switch cfg.ResultStore {
	case infra.ResultStoreRedis:
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		logger.Info().Dur("ttl", cfg.ResultTTL).Msg("result store: redis")
		return resultstore.NewRedis(client, cfg.ResultTTL), nil, func() { _ = client.Close() }
	default:
		mem := resultstore.NewMemory(cfg.ResultMaxEntries, cfg.ResultTTL)
		logger.Info().Dur("ttl", cfg.ResultTTL).Int("max_entries", cfg.ResultMaxEntries).Msg("result store: memory")
		return mem, mem.Len, func() {}
	}
}

func mustStages(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger zerolog.Logger) stage.Registry {
	var fileCfg *stage.FileConfig
	if cfg.PipelinesConfigPath != "" {
		var err error
		fileCfg, err = stage.LoadConfigFile(cfg.PipelinesConfigPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.PipelinesConfigPath).Msg("failed to load stage config")
		}
	}

	apiKey := cfg.PipelinesAPIKey
	if apiKey == "" && creds != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		key, err := creds.PipelinesAPIKey(lookupCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read stored pipelines api key")
		}
		apiKey = key
	}

	reg, err := stage.BuildRegistry(fileCfg, stage.RemoteOptions{
		BaseURL: cfg.PipelinesBaseURL,
		APIKey:  apiKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stage registry")
	}
	return reg
}

func purgeJournal(ctx context.Context, journal *repo.TransitionRepositoryPG, retention time.Duration, logger zerolog.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(ctx, time.Minute)
			n, err := journal.PurgeBefore(purgeCtx, time.Now().Add(-retention))
			cancel()
			if err != nil {
				logger.Warn().Err(err).Msg("journal purge failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("deleted", n).Msg("journal purged")
			}
		}
	}
}
