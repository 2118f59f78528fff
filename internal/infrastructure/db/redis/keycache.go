package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyCache shares fetched identity-provider key sets across replicas so a
// key rotation costs one upstream fetch per TTL window, not one per replica.
type KeyCache struct {
	client *redis.Client
}

// NewKeyCache creates a KeyCache wrapping the given Redis client.
func NewKeyCache(client *redis.Client) *KeyCache {
	return &KeyCache{client: client}
}

// Get returns the cached document, or "" without error on a miss.
func (k *KeyCache) Get(ctx context.Context, key string) (string, error) {
	doc, err := k.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("key cache get: %w", err)
	}
	return doc, nil
}

// Set stores the document, expiring after ttl.
func (k *KeyCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}
