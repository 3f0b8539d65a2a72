package services

import (
	"context"
	"fmt"
	"log"

	redis_v9 "github.com/redis/go-redis/v9"
)

// Tier is the subscription level another service computed. This service only
// reads the cached value to size listing windows; billing itself lives
// elsewhere.
type Tier string

const (
	TierFree    Tier = "free"
	TierPlus    Tier = "plus"
	TierPremium Tier = "premium"
)

// TierProvider resolves a user's subscription tier.
type TierProvider interface {
	GetTier(ctx context.Context, userID string) Tier
}

// RedisTierProvider reads the tier the subscription consumer cached. Any
// miss or failure degrades to the free tier rather than blocking the
// request.
type RedisTierProvider struct {
	client *redis_v9.Client
}

func NewRedisTierProvider(client *redis_v9.Client) *RedisTierProvider {
	return &RedisTierProvider{client: client}
}

func tierCacheKey(userID string) string {
	return fmt.Sprintf("atlas:user-tier:%s", userID)
}

func (p *RedisTierProvider) GetTier(ctx context.Context, userID string) Tier {
	value, err := p.client.Get(ctx, tierCacheKey(userID)).Result()
	if err != nil {
		if err != redis_v9.Nil {
			log.Printf("Failed to read tier for user %s: %v", userID, err)
		}
		return TierFree
	}

	switch Tier(value) {
	case TierPlus, TierPremium:
		return Tier(value)
	default:
		return TierFree
	}
}

// HistoryWindow is the default weak-spot listing size for a tier, used when
// the caller does not pass an explicit limit.
func HistoryWindow(tier Tier) int {
	switch tier {
	case TierPremium:
		return 50
	case TierPlus:
		return 25
	default:
		return 10
	}
}
