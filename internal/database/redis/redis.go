package redis

import (
	"atlas-service/internal/config"
	"context"
	"log"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

var Redis_Client *redis_v9.Client

func init() {
	cfg := config.ServiceConfig.Redis

	Redis_Client = redis_v9.NewClient(&redis_v9.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Redis_Client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: failed to ping Redis at %s: %v", cfg.Address, err)
	} else {
		log.Printf("Connected to Redis at %s", cfg.Address)
	}
}

func DisconnectRedis() {
	if Redis_Client == nil {
		return
	}
	if err := Redis_Client.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}
}
