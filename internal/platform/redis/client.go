package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
)

// RedisClient is the subset of go-redis the cache layer relies on.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

var Module = fx.Module(
	"redis",
	fx.Provide(NewClientWithLifecycle),
)

// NewClient создаёт клиент и проверяет соединение
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info().
		Str("host", cfg.Redis.Host).
		Int("port", cfg.Redis.Port).
		Int("db", cfg.Redis.DB).
		Msg("Redis client initialized")

	return client, nil
}

// NewClientWithLifecycle возвращает nil-клиент, если Redis отключён в конфигурации;
// кэш в этом случае работает в режиме no-op.
func NewClientWithLifecycle(lc fx.Lifecycle, cfg *config.Config) (RedisClient, error) {
	if !cfg.Redis.Enabled {
		logger.Warn().Msg("Redis disabled, cache will be bypassed")
		return nil, nil
	}

	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Closing Redis connection")
			return client.Close()
		},
	})

	return client, nil
}
