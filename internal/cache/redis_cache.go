package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"posdesk/internal/domain"
)

type RedisBarcodeCache struct {
	client *redis.Client
}

func NewRedisBarcodeCache(addr string, password string, db int) *RedisBarcodeCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisBarcodeCache{client: client}
}

func (c *RedisBarcodeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisBarcodeCache) Close() error {
	return c.client.Close()
}

func (c *RedisBarcodeCache) Get(ctx context.Context, key string) (*domain.BarcodeInfo, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var info domain.BarcodeInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return nil, false, err
	}
	return &info, true, nil
}

func (c *RedisBarcodeCache) Set(ctx context.Context, key string, value *domain.BarcodeInfo, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
