// Package cache holds the Redis-backed API key cache used by authentication.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/utils"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultUserTTL = 5 * time.Minute
	userKeyPrefix  = "timjs:user:"
)

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisUserCache stores authenticated users keyed by a digest of their API
// key. Redis errors are logged and reported as misses.
type RedisUserCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisUserCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisUserCache {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return &RedisUserCache{client: client, ttl: ttl, logger: logger}
}

func userKey(apiKey string) string {
	return userKeyPrefix + utils.Fingerprint(apiKey)
}

func (c *RedisUserCache) Get(ctx context.Context, apiKey string) (*models.User, bool) {
	raw, err := c.client.Get(ctx, userKey(apiKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "user cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	user, err := decodeUser(raw, apiKey)
	if err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt user cache entry", slog.Any("error", err))
		c.Invalidate(ctx, apiKey)
		return nil, false
	}
	return user, true
}

func (c *RedisUserCache) Set(ctx context.Context, user *models.User) {
	if user == nil || user.APIKey == "" {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		c.logger.WarnContext(ctx, "user cache encode failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, userKey(user.APIKey), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "user cache write failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
}

func (c *RedisUserCache) Invalidate(ctx context.Context, apiKey string) {
	if apiKey == "" {
		return
	}
	if err := c.client.Del(ctx, userKey(apiKey)).Err(); err != nil {
		c.logger.WarnContext(ctx, "user cache invalidation failed", slog.Any("error", err))
	}
}

// decodeUser restores the API key, which the JSON form never carries.
func decodeUser(raw []byte, apiKey string) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, errors.New("cached user has no id")
	}
	user.APIKey = apiKey
	return &user, nil
}
