package cmd

import "github.com/redis/go-redis/v9"

func newRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: redisAddr})
}
