package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/internal/ledger"
	"github.com/newdim001/biz-pro/internal/observability"
	"github.com/newdim001/biz-pro/internal/platform/cache"
	"github.com/newdim001/biz-pro/internal/platform/db"
	"github.com/newdim001/biz-pro/internal/platform/lock"
	"github.com/newdim001/biz-pro/internal/store"
	"github.com/newdim001/biz-pro/internal/store/memory"
	"github.com/newdim001/biz-pro/internal/store/postgres"
	"github.com/newdim001/biz-pro/internal/valuation"
)

// Container holds the long-lived collaborators shared by the binaries.
type Container struct {
	Config   *Config
	Logger   *slog.Logger
	Store    store.Store
	Redis    *redis.Client
	Metrics  *observability.Metrics
	Ledger   *ledger.Service
	Users    *auth.Service
	Sessions *auth.SessionManager
}

// Build connects the store and Redis and assembles the services. The
// caller owns the container and must Close it.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.Store = st

	client, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Redis = client

	values := valuation.NewService(st, valuation.NewCache(client, cfg.CacheTTL), logger)
	c.Ledger = ledger.NewService(st, lock.NewRedisLocker(client, cfg.LockTTL), logger, cfg.LedgerConfig(),
		ledger.WithMetrics(c.Metrics), ledger.WithValuation(values))
	c.Users = auth.NewService(st, cfg.BcryptCost)
	c.Sessions = auth.NewSessionManager(client, cfg.SessionTTL)
	return c, nil
}

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	if cfg.StoreDriver == StoreMemory {
		return memory.New(), nil
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	st := postgres.New(pool)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Bootstrap creates the administrator and seeds the configured units.
func (c *Container) Bootstrap(ctx context.Context) error {
	if c.Config.AdminPassword != "" {
		_, created, err := c.Users.EnsureAdmin(ctx, c.Config.AdminUsername, c.Config.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			c.Logger.Info("administrator created", slog.String("username", c.Config.AdminUsername))
		}
	}
	if !c.Config.Seed {
		return nil
	}
	res, err := c.Ledger.Seed(ctx, c.Config.SeedInput())
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if len(res.Units) > 0 || len(res.Partners) > 0 {
		c.Logger.Info("ledger seeded", slog.Any("units", res.Units), slog.Int("partners", len(res.Partners)))
	}
	return nil
}

// RedisOpt returns the asynq connection settings for the configured Redis.
func (c *Container) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Config.RedisAddr, Password: c.Config.RedisPassword, DB: c.Config.RedisDB}
}

// HealthChecks lists the dependency probes for /healthz.
func (c *Container) HealthChecks() map[string]HealthCheck {
	checks := map[string]HealthCheck{"store": c.Store.Ping}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases connections.
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}
