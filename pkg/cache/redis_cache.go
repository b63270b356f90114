// Package cache holds extracted document text in Redis so chat requests
// do not re-download and re-parse the same PDFs.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DocTextCache maps upload IDs to their extracted text.
type DocTextCache interface {
	GetText(ctx context.Context, uploadID string) (string, bool, error)
	SetText(ctx context.Context, uploadID, text string) error
	DeleteText(ctx context.Context, uploadID string) error
}

// RedisDocTextCache keeps extracted text in Redis with TTL.
type RedisDocTextCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDocTextCache(addr, password string, ttl time.Duration) *RedisDocTextCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisDocTextCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

func (c *RedisDocTextCache) GetText(ctx context.Context, uploadID string) (string, bool, error) {
	val, err := c.client.Get(ctx, docTextKey(uploadID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisDocTextCache) SetText(ctx context.Context, uploadID, text string) error {
	return c.client.Set(ctx, docTextKey(uploadID), text, c.ttl).Err()
}

func (c *RedisDocTextCache) DeleteText(ctx context.Context, uploadID string) error {
	if err := c.client.Del(ctx, docTextKey(uploadID)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func docTextKey(uploadID string) string {
	return fmt.Sprintf("doc:text:%s", uploadID)
}
