package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"almeone-contact-api/config"
	"almeone-contact-api/pkg/database"
	"almeone-contact-api/pkg/email"
	"almeone-contact-api/pkg/metrics"
	"almeone-contact-api/pkg/ratelimit"
	"almeone-contact-api/pkg/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// newRateLimitStore builds the store selected by RATE_LIMIT_STORE. The
// returned func releases its connections and background work.
func newRateLimitStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (ratelimit.Store, func(), error) {
	switch cfg.RateLimit.Store {
	case config.StoreRedis:
		client, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("Rate limiting backed by Redis")
		return ratelimit.NewRedisStore(client, ""), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		pool, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		store := ratelimit.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("prepare rate limit table: %w", err)
		}

		sweepCtx, cancel := context.WithCancel(ctx)
		go func() {
			ticker := time.NewTicker(cfg.RateLimit.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case now := <-ticker.C:
					n, err := store.DeleteExpired(sweepCtx, now)
					if err != nil && !errors.Is(err, context.Canceled) {
						log.Warn("rate limit sweep failed", "error", err)
						continue
					}
					if n > 0 {
						log.Debug("rate limit windows expired", "deleted", n)
					}
				}
			}
		}()
		log.Info("Rate limiting backed by Postgres")
		return store, func() { cancel(); pool.Close() }, nil

	default:
		store := ratelimit.NewMemoryStore()
		sweepCtx, cancel := context.WithCancel(ctx)
		store.StartSweeper(sweepCtx, cfg.RateLimit.SweepInterval)
		log.Info("Rate limiting backed by process memory; limits are per instance")
		return store, cancel, nil
	}
}

// newDispatcher wires the configured provider. A provider that is missing
// settings does not stop the server; submissions report it instead.
func newDispatcher(cfg *config.Config, log *slog.Logger) (*email.Dispatcher, error) {
	provider, err := email.NewProviderFromConfig(cfg, log)
	if err != nil {
		if errors.Is(err, email.ErrProviderNotConfigured) {
			log.Warn("Email provider not fully configured - contact form will be unavailable", "error", err)
			return email.NewUnconfiguredDispatcher(err, log), nil
		}
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("load DISPLAY_TIMEZONE: %w", err)
	}

	return email.NewDispatcher(provider, email.NewRenderer(cfg.AppEnv, loc), email.DispatcherConfig{
		NotificationEmail: cfg.Email.NotificationEmail,
		SendTimeout:       cfg.Email.Timeout,
	}, log), nil
}

// newMetricsRegistry returns nil when metrics are disabled.
func newMetricsRegistry(cfg *config.Config) prometheus.Gatherer {
	if !cfg.MetricsEnabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterContactMetrics(reg)
	return reg
}
