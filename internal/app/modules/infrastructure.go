package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"factorymanager.io/manager/internal/api/handlers"
	"factorymanager.io/manager/internal/config"
	"factorymanager.io/manager/internal/governance/audit"
	"factorymanager.io/manager/internal/infrastructure"
	"factorymanager.io/manager/internal/jobs"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/pkg/worker"
	"factorymanager.io/manager/internal/quota"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/repository/postgres"
)

// RiverInserter is the enqueue side of the River client.
type RiverInserter = jobs.Inserter

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Redis       *redis.Client
	Pools       *worker.Pools
	Store       repository.Store
	Location    *time.Location
	ActionLogs  *audit.Logger
	RiverClient *river.Client[pgx.Tx]
}

// NewInfrastructure opens the database, the optional Redis quota backend
// and the worker pools.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	loc, err := cfg.Quota.Location()
	if err != nil {
		return nil, fmt.Errorf("quota timezone: %w", err)
	}

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		AuditPoolSize:   cfg.Worker.AuditPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	infra := &Infrastructure{
		Config:   cfg,
		DB:       db,
		Pools:    pools,
		Store:    postgres.NewStore(db.Pool),
		Location: loc,
	}

	if cfg.Quota.Backend == config.QuotaBackendRedis {
		rdb, err := infrastructure.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		infra.Redis = rdb
		infra.Store.Quota = quota.NewRedisStore(rdb, infra.Store.Principals)
	}
	logger.Info("Quota store selected",
		zap.String("backend", cfg.Quota.Backend),
		zap.String("timezone", loc.String()),
	)

	infra.ActionLogs = audit.NewLogger(infra.Store.ActionLogs, pools)
	return infra, nil
}

// InitRiver builds the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Readiness returns the probes behind GET /health/ready.
func (i *Infrastructure) Readiness() map[string]handlers.ReadinessCheck {
	checks := map[string]handlers.ReadinessCheck{}
	if i.DB != nil && i.DB.Pool != nil {
		pool := i.DB.Pool
		checks["database"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	if i.Redis != nil {
		rdb := i.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
