package data

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
)

const seenKeyPrefix = "autoreply:seen:"

// redisSeenRepo deduplicates message ids with SET NX and a TTL.
// Redis failures fail open: the message is treated as new.
type redisSeenRepo struct {
	client    *redis.Client
	retention time.Duration
	log       zerolog.Logger
}

// NewRedisSeenRepo creates a Redis-backed seen store
func NewRedisSeenRepo(client *redis.Client, retention time.Duration, logger zerolog.Logger) repo.SeenRepo {
	return &redisSeenRepo{
		client:    client,
		retention: retention,
		log:       logger.With().Str("component", "seen_redis").Logger(),
	}
}

// IsSeen reports whether id was seen within the retention window, recording it if not
func (r *redisSeenRepo) IsSeen(ctx context.Context, id string) bool {
	ok, err := r.client.SetNX(ctx, seenKeyPrefix+id, time.Now().Unix(), r.retention).Result()
	if err != nil {
		r.log.Warn().Err(err).Str("msg_id", id).Msg("redis dedup failed, treating message as new")
		return false
	}
	return !ok
}
