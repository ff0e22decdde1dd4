package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/platform/redis"
)

// ErrCacheMiss возвращается, когда ключ отсутствует в кэше
var ErrCacheMiss = errors.New("cache miss")

// Ключи кэша
const (
	CreatorKey         = "creator:%s"
	CategoriesKey      = "categories"
	ChannelsTopKey     = "channels:top:%d"
	ChannelsTrendKey   = "channels:trending:%d"
	ChannelListPattern = "channels:*"
)

// Cache описывает операции, которыми пользуются сервисы
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error
}

var Module = fx.Module(
	"cache",
	fx.Provide(New),
)

// New возвращает Redis-кэш или no-op реализацию, если клиент не настроен
func New(client redis.RedisClient, cfg *config.Config) Cache {
	if client == nil {
		return NoopCache{}
	}
	return NewCacheService(client, cfg.Redis.CacheTTL)
}

type CacheService struct {
	redisClient redis.RedisClient
	defaultTTL  time.Duration
}

func NewCacheService(redisClient redis.RedisClient, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		redisClient: redisClient,
		defaultTTL:  defaultTTL,
	}
}

// Get получает значение из кэша
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set сохраняет значение в кэш; ttl <= 0 означает TTL по умолчанию
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	return c.redisClient.Set(ctx, key, data, ttl).Err()
}

// Delete удаляет значения из кэша
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

// DeletePattern удаляет все ключи по паттерну, обходя keyspace через SCAN
func (c *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetOrSet получает значение из кэша или вычисляет и сохраняет новое.
// Ошибки Redis не прерывают запрос: значение берётся из setter.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	value, err := setter()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	return copyValue(value, dest)
}

// NoopCache используется, когда Redis отключён
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) error { return ErrCacheMiss }

func (NoopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (NoopCache) Delete(context.Context, ...string) error { return nil }

func (NoopCache) DeletePattern(context.Context, string) error { return nil }

func (NoopCache) GetOrSet(_ context.Context, _ string, dest interface{}, _ time.Duration, setter func() (interface{}, error)) error {
	value, err := setter()
	if err != nil {
		return err
	}
	return copyValue(value, dest)
}

func copyValue(value, dest interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CreatorKeys возвращает ключи кэша для автора по id и slug
func CreatorKeys(id, slug string) []string {
	keys := []string{fmt.Sprintf(CreatorKey, id)}
	if slug != "" {
		keys = append(keys, fmt.Sprintf(CreatorKey, slug))
	}
	return keys
}
