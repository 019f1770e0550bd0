package heyao

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisPointerKey = "heyaobot:last_image"

// RedisPointerStore keeps the per-session pointers in a redis hash, so a
// restarted bot can still clean up images left in a scratch directory that
// outlives the process.
type RedisPointerStore struct {
	client *redis.Client
}

func NewRedisPointerStore(client *redis.Client) *RedisPointerStore {
	return &RedisPointerStore{client: client}
}

func (s *RedisPointerStore) Last(ctx context.Context, sessionKey string) (string, error) {
	val, err := s.client.HGet(ctx, redisPointerKey, sessionKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("pointer lookup for %s: %w", sessionKey, err)
	}
	return val, nil
}

func (s *RedisPointerStore) Set(ctx context.Context, sessionKey, path string) error {
	if err := s.client.HSet(ctx, redisPointerKey, sessionKey, path).Err(); err != nil {
		return fmt.Errorf("pointer update for %s: %w", sessionKey, err)
	}
	return nil
}
