package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/audiencehub/config"
)

var redisClient *redis.Client

// InitRedis creates the shared Redis client. When no host is configured, or the
// server does not answer, the client stays nil and callers use their in-memory fallbacks.
func InitRedis(cfg config.AppConfig) *redis.Client {
	if cfg.RedisHost == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis unavailable at %s, using in-memory fallbacks: %v", rc.Options().Addr, err)
		_ = rc.Close()
		return nil
	}
	redisClient = rc
	return redisClient
}

// GetRedis returns the shared client, or nil when Redis is not in use.
func GetRedis() *redis.Client {
	return redisClient
}
