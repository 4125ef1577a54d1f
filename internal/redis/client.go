package redisdb

import (
	"github.com/redis/go-redis/v9"
	"standingwave/internal/config"
)

// NewClient builds the session store client, or nil when auth is disabled.
func NewClient(cfg *config.Config) *redis.Client {
	if !cfg.AuthEnabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
