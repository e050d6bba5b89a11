package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketgate/internal/cache"
	"github.com/sawpanic/marketgate/internal/cache/store"
	"github.com/sawpanic/marketgate/internal/config"
	"github.com/sawpanic/marketgate/internal/facade"
	"github.com/sawpanic/marketgate/internal/metrics"
	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
	"github.com/sawpanic/marketgate/internal/persistence/postgres"
	"github.com/sawpanic/marketgate/internal/provider"
	"github.com/sawpanic/marketgate/internal/resilience"
	"github.com/sawpanic/marketgate/internal/router"
)

// runtime bundles everything a command needs after bootstrap
type runtime struct {
	cfg      config.Config
	client   *facade.Client
	registry *provider.Registry
	checker  *resilience.HealthChecker
	tiered   *cache.TieredCache
	db       *sqlx.DB
}

// bootstrap loads config and wires the full stack. Without a database the
// repository is skipped and L2 falls back to an in-process store; without
// providers configured, two simulated feeds are registered so the CLI
// works out of the box.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := log.Logger
	registry := provider.NewRegistry(logger)
	registerSimProviders(registry)

	rt := router.New(registry, logger)
	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		RecoveryTimeout:  time.Duration(cfg.Circuit.RecoveryTimeout) * time.Second,
		HalfOpenMaxCalls: cfg.Circuit.HalfOpenMaxCalls,
	})
	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:     cfg.Providers.MaxRetries,
		BaseDelay:       time.Second,
		MaxDelay:        time.Duration(cfg.Providers.MaxBackoffSeconds) * time.Second,
		ExponentialBase: cfg.Providers.BackoffFactor,
		Jitter:          true,
	}, logger)

	var limiters *provider.LimiterSet
	if cfg.Providers.RateLimit {
		limiters = provider.NewLimiterSet()
	}
	executor := resilience.NewExecutor(breakers, retrier, limiters, logger)

	metricsReg := metrics.NewRegistry()
	if err := metricsReg.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("metrics registration failed: %w", err)
	}

	run := &runtime{cfg: cfg, registry: registry}

	var repo *persistence.Repository
	if cfg.Database.Enabled {
		db, err := postgres.Connect(ctx, postgres.Config{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			QueryTimeout: time.Duration(cfg.Database.QueryTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("database bootstrap failed: %w", err)
		}
		run.db = db
		repo = postgres.NewRepository(db, time.Duration(cfg.Database.QueryTimeoutSec)*time.Second)
	}

	if cfg.Cache.Enabled {
		tiered, err := buildCache(cfg, run.db)
		if err != nil {
			return nil, err
		}
		run.tiered = tiered
	}

	run.checker = resilience.NewHealthChecker(registry, resilience.HealthConfig{
		Interval:         cfg.HealthInterval(),
		ProbeTimeout:     time.Duration(cfg.Health.TimeoutSeconds) * time.Second,
		FailureThreshold: cfg.Health.FailureThreshold,
		SuccessThreshold: cfg.Health.SuccessThreshold,
	}, logger)

	run.checker.Observe(func(name string, success bool, status provider.HealthStatus, latency time.Duration) {
		metricsReg.ObserveHealth(name, string(status))
		metricsReg.ProbeLatency.WithLabelValues(name).Observe(latency.Seconds())
		metricsReg.BreakerState.WithLabelValues(name).Set(float64(breakers.Get(name).State()))
	})

	if repo != nil {
		statusRepo := repo.Status
		run.checker.Observe(func(name string, success bool, status provider.HealthStatus, latency time.Duration) {
			h, _ := registry.Health(name)
			err := statusRepo.SaveProviderStatus(context.Background(), persistence.ProviderStatus{
				Provider:      name,
				Status:        string(status),
				LastProbe:     h.LastProbe,
				LatencyMs:     float64(latency.Microseconds()) / 1000,
				TotalProbes:   h.TotalProbes,
				TotalFailures: h.TotalFailures,
			})
			if err != nil {
				log.Warn().Err(err).Str("provider", name).Msg("failed to persist provider status")
			}
		})
	}

	run.client = facade.NewClient(registry, rt, executor, facade.Options{
		Cache:      run.tiered,
		Repository: repo,
		Metrics:    metricsReg,
		Timeout:    cfg.ProviderTimeout(),
	}, logger)

	return run, nil
}

func (r *runtime) close() {
	if r.db != nil {
		r.db.Close()
	}
}

func buildCache(cfg config.Config, db *sqlx.DB) (*cache.TieredCache, error) {
	l1, err := cache.NewL1Cache(cfg.Cache.MemorySize)
	if err != nil {
		return nil, err
	}

	policy := cache.TTLPolicy{
		Tick:     time.Duration(cfg.Cache.TTL.Tick) * time.Second,
		Minute:   time.Duration(cfg.Cache.TTL.Minute) * time.Second,
		Intraday: time.Duration(cfg.Cache.TTL.Intraday) * time.Second,
		Daily:    time.Duration(cfg.Cache.TTL.Daily) * time.Second,
		Weekly:   time.Duration(cfg.Cache.TTL.Weekly) * time.Second,
		Default:  time.Duration(cfg.Cache.TTL.Default) * time.Second,
	}

	var l2 store.Store
	switch {
	case cfg.Cache.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		l2 = store.NewRedisStore(client, "")
	case db != nil:
		l2 = store.NewSQLStore(db, 10*time.Second)
	default:
		l2 = store.NewMemoryStore()
	}

	return cache.NewTieredCache(l1, l2, policy, log.Logger), nil
}

// registerSimProviders seeds the registry with two synthetic feeds so the
// CLI is usable without vendor credentials.
func registerSimProviders(registry *provider.Registry) {
	fast := provider.NewSimProvider("sim-fast", provider.Capability{
		AssetKinds:           []models.AssetKind{models.AssetStock, models.AssetCrypto, models.AssetIndex},
		Markets:              []models.Market{models.MarketUS, models.MarketCrypto, models.MarketGlobal},
		Timeframes:           []models.Timeframe{models.Timeframe1m, models.Timeframe5m, models.Timeframe1h, models.Timeframe1d},
		MaxSymbolsPerRequest: 50,
		SupportsRealtime:     true,
		SupportsHistorical:   true,
		DataDelaySeconds:     0,
		RateLimit:            provider.RateLimitSpec{RequestsPerSecond: 50, Burst: 100},
	})
	slow := provider.NewSimProvider("sim-deep", provider.Capability{
		AssetKinds:           []models.AssetKind{models.AssetStock, models.AssetFund, models.AssetIndex},
		Markets:              []models.Market{models.MarketUS, models.MarketCN, models.MarketHK},
		Timeframes:           []models.Timeframe{models.Timeframe1d, models.Timeframe1w, models.Timeframe1M},
		MaxSymbolsPerRequest: 500,
		SupportsHistorical:   true,
		DataDelaySeconds:     900,
		RateLimit:            provider.RateLimitSpec{RequestsPerSecond: 5, Burst: 10},
	})

	for _, p := range []provider.Provider{fast, slow} {
		if err := registry.Register(p); err != nil {
			log.Warn().Err(err).Msg("sim provider registration failed")
		}
	}
}
