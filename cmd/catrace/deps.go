package main

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/catrace/backend/internal/core/ports"
	"github.com/catrace/backend/internal/core/service"
	"github.com/catrace/backend/internal/infrastructure/config"
	"github.com/catrace/backend/internal/infrastructure/db/memory"
	mongodb "github.com/catrace/backend/internal/infrastructure/db/mongo"
	"github.com/catrace/backend/internal/infrastructure/db/postgres"
	"github.com/catrace/backend/internal/infrastructure/db/redis"
	"github.com/catrace/backend/internal/pkg/clock"
)

const connectWait = 30 * time.Second

// openStore connects the storage driver selected by STORAGE_DRIVER. With
// DB_AUTO_MIGRATE set, pending postgres migrations run before the store is
// returned.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		return memory.New(), nil

	case config.DriverMongo:
		db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  connectWait,
		}, log)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Storage.Driver).Wrap(err)
		}
		store := mongodb.NewStore(db, cfg.Storage.QueryTimeout)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, oops.Code("DB_INDEX_FAILED").Wrap(err)
		}
		return store, nil

	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()
		pool, err := postgres.Connect(ctx, postgres.Config{
			URL:         dsn,
			MaxConns:    cfg.Postgres.MaxConns,
			ConnectWait: connectWait,
		}, log)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Storage.Driver).Wrap(err)
		}
		if cfg.Storage.AutoMigrate {
			if err := migrateUp(dsn, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return postgres.NewStore(pool, cfg.Storage.QueryTimeout), nil
	}

	return nil, cfg.ValidateStorage()
}

func migrateUp(dsn string, log zerolog.Logger) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database schema up to date")
	return nil
}

// newLimiter returns the login rate limiter. With REDIS_ADDR set the window
// is shared through Redis and the client is returned for readiness checks;
// otherwise the limiter is in-process and the client is nil.
func newLimiter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.RateLimiter, *goredis.Client, error) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("login rate limiter is in-process")
		return service.NewFixedWindowLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window, clock.Real{}), nil, nil
	}

	client, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return nil, nil, oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("login rate limiter is backed by redis")
	return redis.NewRateLimiter(client, cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window), client, nil
}
