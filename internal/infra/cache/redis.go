package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCache хранит кэш game_id категорий одним JSON-значением в Redis.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedis создаёт кэш поверх Redis.
func NewRedis(client *redis.Client, key string) *RedisCache {
	return &RedisCache{client: client, key: key}
}

// Load читает кэш. Отсутствующий ключ считается пустым кэшем.
func (c *RedisCache) Load(ctx context.Context) (map[string]int64, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]int64{}, nil
		}
		return nil, fmt.Errorf("чтение кэша из redis: %w", err)
	}
	games := map[string]int64{}
	if err := json.Unmarshal(raw, &games); err != nil {
		return map[string]int64{}, nil
	}
	return games, nil
}

// Store перезаписывает кэш целиком.
func (c *RedisCache) Store(ctx context.Context, games map[string]int64) error {
	raw, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("сериализация кэша: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("запись кэша в redis: %w", err)
	}
	return nil
}
