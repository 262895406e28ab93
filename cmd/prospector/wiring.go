package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/prospector/internal/adapter/chromedp_browser"
	natsadapter "github.com/user/prospector/internal/adapter/nats"
	"github.com/user/prospector/internal/adapter/postgres"
	redis_adapter "github.com/user/prospector/internal/adapter/redis"
	"github.com/user/prospector/internal/adapter/sqlite"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/internal/usecase"
	"github.com/user/prospector/pkg/config"
	"github.com/user/prospector/pkg/metrics"
)

func pacingFromConfig(cfg *config.Config) usecase.PacingConfig {
	delay := func(base, jitter int) usecase.Delay {
		return usecase.Delay{Base: config.Millis(base), Jitter: config.Millis(jitter)}
	}
	return usecase.PacingConfig{
		PageLoad:      delay(cfg.DelayPageLoadMS, cfg.DelayPageLoadJitterMS),
		AfterSearch:   delay(cfg.DelayAfterSearchMS, cfg.DelayAfterSearchJitterMS),
		BetweenScroll: delay(cfg.DelayBetweenScrollMS, cfg.DelayBetweenScrollJitterMS),
		DetailSettle:  delay(cfg.DelayDetailSettleMS, 0),
		BetweenItems:  delay(cfg.DelayBetweenItemsMS, cfg.DelayBetweenItemsJitterMS),
		BetweenAreas:  delay(cfg.DelayBetweenAreasMS, cfg.DelayBetweenAreasJitterMS),
		LayoutSettle:  delay(cfg.DelayLayoutSettleMS, 0),
	}
}

func harvesterConfig(cfg *config.Config) usecase.HarvesterConfig {
	hc := usecase.DefaultHarvesterConfig()
	hc.MaxAreas = cfg.MaxAreas
	hc.MaxPerArea = cfg.MaxPerArea
	hc.MaxScrolls = cfg.MaxScrolls
	hc.PageLoadTimeout = config.Seconds(cfg.PageLoadTimeoutSeconds)
	return hc
}

func inspectorConfig(cfg *config.Config) usecase.InspectorConfig {
	ic := usecase.DefaultInspectorConfig()
	ic.NavigationTimeout = config.Seconds(cfg.InspectTimeoutSeconds)
	ic.ModernYear = cfg.ModernYear
	return ic
}

func browserConfig(cfg *config.Config) chromedp_browser.Config {
	bc := chromedp_browser.DefaultConfig()
	bc.Headless = cfg.BrowserHeadless
	bc.AcceptLanguage = cfg.BrowserAcceptLanguage
	bc.Proxy = cfg.BrowserProxy
	bc.NavigationsPerSecond = cfg.NavigationsPerSecond
	if uas := cfg.UserAgents(); len(uas) > 0 {
		bc.UserAgents = uas
	}
	return bc
}

// openStore connects the configured record store, applying migrations when
// migrate is set.
func openStore(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (repository.ProspectRepository, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := sqlite.Migrate(ctx, db, logger); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.SQLitePath))
		return sqlite.NewProspectRepo(db), nil
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		logger.Info("postgresql connection pool established")
		return postgres.NewProspectRepo(pool), nil
	}
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (repository.EventPublisher, error) {
	if cfg.NATSURL == "" {
		return natsadapter.NoopPublisher{}, nil
	}
	return natsadapter.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
}

// services are the use cases shared by the serve and harvest commands.
type services struct {
	launch    repository.BrowserLauncher
	validator *usecase.Validator
	harvester *usecase.Harvester
}

// newServices wires the verdict pipeline and harvester. rdb may be nil, which
// disables the verdict and seen caches.
func newServices(cfg *config.Config, store repository.ProspectRepository, rdb *redis.Client, logger *zap.Logger, m *metrics.Metrics) services {
	pacing := pacingFromConfig(cfg)
	pacer := usecase.NewPacer()
	launch := chromedp_browser.NewLauncher(browserConfig(cfg), logger)

	opts := []usecase.ValidatorOption{usecase.WithBrowserLauncher(launch)}
	var seen repository.SeenRepository
	if rdb != nil {
		opts = append(opts, usecase.WithVerdictCache(redis_adapter.NewVerdictCache(rdb), config.Hours(cfg.VerdictCacheTTLHours)))
		seen = redis_adapter.NewSeenRepo(rdb)
	}

	inspector := usecase.NewSiteInspector(inspectorConfig(cfg), pacer, pacing.LayoutSettle, logger, m)
	validator := usecase.NewValidator(
		usecase.NewDomainClassifier(usecase.DefaultDomainLists()),
		inspector,
		logger,
		m,
		opts...,
	)
	harvester := usecase.NewHarvester(harvesterConfig(cfg), pacing, usecase.HarvesterDeps{
		Launch:    launch,
		Validator: validator,
		Store:     store,
		Seen:      seen,
		Pacer:     pacer,
		Logger:    logger,
		Metrics:   m,
	})
	return services{launch: launch, validator: validator, harvester: harvester}
}
