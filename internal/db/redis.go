package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/staynest/backend/internal/config"
)

const consumedTokenKeyPrefix = "consumed_reset:"

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisConsumedTokens records used reset-token IDs so a reset token cannot
// be replayed before its natural expiry. Keys carry a TTL equal to the
// token's remaining lifetime, after which the signature check alone is
// enough to reject the token.
type RedisConsumedTokens struct {
	client *redis.Client
}

func NewRedisConsumedTokens(client *redis.Client) *RedisConsumedTokens {
	return &RedisConsumedTokens{client: client}
}

// Consume marks the token ID as used. It returns true on first use and
// false when the ID was already recorded.
func (r *RedisConsumedTokens) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.client.SetNX(ctx, consumedTokenKeyPrefix+jti, 1, ttl).Result()
}

// LogConsumedTokens is the fallback when no Redis is configured. It keeps
// the original system's behavior: consumption is logged but not enforced.
type LogConsumedTokens struct{}

func NewLogConsumedTokens() *LogConsumedTokens {
	return &LogConsumedTokens{}
}

func (l *LogConsumedTokens) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	log.Printf("[AUTH] reset token consumed (jti=%s, enforcement disabled)", jti)
	return true, nil
}
