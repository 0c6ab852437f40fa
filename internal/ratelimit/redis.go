package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setNXer is the slice of the redis client the limiter needs.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis shares the cooldown across bot instances. The key expires with the
// window, so entries never need eviction.
type Redis struct {
	client setNXer
	prefix string
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client setNXer, logger zerolog.Logger) *Redis {
	return &Redis{client: client, prefix: "reply_cooldown", logger: logger}
}

// CheckAndUpdate uses SET NX PX window. Redis errors fail closed.
func (r *Redis) CheckAndUpdate(ctx context.Context, userID, channelID string, window time.Duration) bool {
	k := r.prefix + ":" + channelID + ":" + userID
	ok, err := r.client.SetNX(ctx, k, time.Now().UnixMilli(), window).Result()
	if err != nil {
		r.logger.Warn().Err(err).Str("user", userID).Str("channel", channelID).Msg("ratelimit: redis unavailable, skipping reply")
		return false
	}
	return ok
}
