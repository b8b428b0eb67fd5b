package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/meowbot/core/config"
	"github.com/m3rciful/meowbot/core/logger"
	"github.com/m3rciful/meowbot/core/storage"
)

// Options control the generic bootstrap pipeline. A nil Redis or Postgres
// config skips that store.
type Options struct {
	Config   *coreconfig.Config
	Redis    *storage.RedisConfig
	Postgres *storage.PostgresConfig

	LoggerInit      func(*coreconfig.Config) error
	ConnectRedis    func(context.Context, storage.RedisConfig) (*redis.Client, error)
	ConnectPostgres func(context.Context, storage.PostgresConfig) (*sqlx.DB, error)
	Migrate         func(context.Context, storage.PostgresConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Redis *redis.Client
	DB    *sqlx.DB
}

// Close releases opened connections.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, connects the configured stores, and applies migrations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Redis != nil {
		connect := opts.ConnectRedis
		if connect == nil {
			connect = storage.ConnectRedis
		}
		client, err := connect(ctx, *opts.Redis)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}

	if opts.Postgres != nil {
		connect := opts.ConnectPostgres
		if connect == nil {
			connect = storage.ConnectPostgres
		}
		db, err := connect(ctx, *opts.Postgres)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db

		migrate := opts.Migrate
		if migrate == nil {
			migrate = storage.RunMigrations
		}
		if err := migrate(ctx, *opts.Postgres); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	return res, nil
}
