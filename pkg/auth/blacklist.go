package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "blacklist:"

// Blacklist records revoked session tokens until they expire.
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RedisBlacklist struct {
	rdb *redis.Client
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
