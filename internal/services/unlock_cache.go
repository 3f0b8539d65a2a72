package services

import (
	"atlas-service/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

// RedisUnlockCache keeps computed unlock status hot for a short TTL so the
// dashboard polling does not recompute month arithmetic on every request.
// Staleness is bounded by the TTL; exam-date changes invalidate eagerly.
type RedisUnlockCache struct {
	client *redis_v9.Client
	ttl    time.Duration
}

func NewRedisUnlockCache(client *redis_v9.Client, ttl time.Duration) *RedisUnlockCache {
	return &RedisUnlockCache{
		client: client,
		ttl:    ttl,
	}
}

func unlockCacheKey(userID string) string {
	return fmt.Sprintf("atlas:unlock-status:%s", userID)
}

func (c *RedisUnlockCache) Get(ctx context.Context, userID string) (*models.UnlockStatus, bool) {
	data, err := c.client.Get(ctx, unlockCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis_v9.Nil {
			log.Printf("Failed to read unlock cache for user %s: %v", userID, err)
		}
		return nil, false
	}

	var status models.UnlockStatus
	if err := json.Unmarshal(data, &status); err != nil {
		log.Printf("Failed to decode cached unlock status for user %s: %v", userID, err)
		return nil, false
	}

	return &status, true
}

func (c *RedisUnlockCache) Set(ctx context.Context, userID string, status *models.UnlockStatus) {
	data, err := json.Marshal(status)
	if err != nil {
		log.Printf("Failed to encode unlock status for user %s: %v", userID, err)
		return
	}

	if err := c.client.Set(ctx, unlockCacheKey(userID), data, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache unlock status for user %s: %v", userID, err)
	}
}

func (c *RedisUnlockCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, unlockCacheKey(userID)).Err(); err != nil {
		log.Printf("Failed to invalidate unlock cache for user %s: %v", userID, err)
	}
}
