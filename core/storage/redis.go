package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/meowbot/core/logger"
)

// ConnectRedis opens a redis client and verifies connectivity with PING.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(pingCtx).Err()
	took := time.Since(start)
	if err != nil {
		logger.Redis.Error("redis ping failed",
			slog.String("event", "redis.connect"),
			slog.String("addr", cfg.Addr()),
			slog.Int("db", cfg.DB),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Redis.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("addr", cfg.Addr()),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return client, nil
}
