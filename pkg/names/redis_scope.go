package names

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisScope is a Scope backed by a Redis set. Batch runs seed it once from
// the durable snapshot queries and then answer every probe without touching
// the relational store.
type RedisScope struct {
	client *redis.Client
	key    string
}

// NewRedisScope creates a scope over the Redis set at key.
func NewRedisScope(client *redis.Client, key string) *RedisScope {
	return &RedisScope{client: client, key: key}
}

// NewRedisClient creates a Redis client for the given address.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *RedisScope) Contains(ctx context.Context, normalized string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, normalized).Result()
	if err != nil {
		return false, fmt.Errorf("redis scope lookup for %q: %w", normalized, err)
	}
	return ok, nil
}

// Seed replaces the set contents with the given normalized names.
func (s *RedisScope) Seed(ctx context.Context, names []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	const batch = 512
	for i := 0; i < len(names); i += batch {
		end := i + batch
		if end > len(names) {
			end = len(names)
		}
		members := make([]interface{}, 0, end-i)
		for _, n := range names[i:end] {
			members = append(members, Normalize(n))
		}
		pipe.SAdd(ctx, s.key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis scope seed failed: %w", err)
	}
	return nil
}

// Add records one more normalized name in the set.
func (s *RedisScope) Add(ctx context.Context, name string) error {
	if err := s.client.SAdd(ctx, s.key, Normalize(name)).Err(); err != nil {
		return fmt.Errorf("redis scope add failed: %w", err)
	}
	return nil
}

// RedisOwnerScope is an OwnerScope storing one Redis set per owner.
type RedisOwnerScope struct {
	client *redis.Client
	prefix string
}

// NewRedisOwnerScope creates an owner scope whose sets live under
// "<prefix>:<ownerID>".
func NewRedisOwnerScope(client *redis.Client, prefix string) *RedisOwnerScope {
	return &RedisOwnerScope{client: client, prefix: prefix}
}

func (s *RedisOwnerScope) ownerKey(ownerID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, ownerID)
}

func (s *RedisOwnerScope) Contains(ctx context.Context, ownerID, normalized string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.ownerKey(ownerID), normalized).Result()
	if err != nil {
		return false, fmt.Errorf("redis owner scope lookup for %q: %w", normalized, err)
	}
	return ok, nil
}

// SeedOwner replaces one owner's set with the given normalized names.
func (s *RedisOwnerScope) SeedOwner(ctx context.Context, ownerID string, names []string) error {
	key := s.ownerKey(ownerID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(names) > 0 {
		members := make([]interface{}, 0, len(names))
		for _, n := range names {
			members = append(members, Normalize(n))
		}
		pipe.SAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis owner scope seed failed: %w", err)
	}
	return nil
}
