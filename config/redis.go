package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var RedisModule = fx.Module("redis", fx.Provide(NewRedisClient))

// NewRedisClient returns nil when REDIS_ADDR is unset; callers treat a nil
// client as "feature off".
func NewRedisClient(lc fx.Lifecycle, cfg *Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		zap.L().Info("[Redis] not configured, rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				zap.L().Warn("[Redis] ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}
