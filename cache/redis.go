package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister mirrors the snapshot into a single Redis hash
// (field = source text, value = translation).
type RedisPersister struct {
	client *redis.Client
	key    string
}

// RedisConfig holds configuration for the Redis persister.
type RedisConfig struct {
	URL string // Redis connection URL (e.g., "redis://localhost:6379")
	Key string // Hash key holding the snapshot (default: "memotl:translations")
}

const defaultRedisKey = "memotl:translations"

// NewRedisPersister connects to Redis with the given configuration.
func NewRedisPersister(cfg RedisConfig) (*RedisPersister, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisPersisterFromClient(client, cfg.Key), nil
}

// NewRedisPersisterFromClient creates a RedisPersister from an existing Redis client.
func NewRedisPersisterFromClient(client *redis.Client, key string) *RedisPersister {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisPersister{
		client: client,
		key:    key,
	}
}

// Load reads the hash. Redis does not keep field order, so entries come back
// sorted by key.
func (p *RedisPersister) Load(ctx context.Context) ([]Entry, error) {
	values, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.key, err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: values[k]})
	}
	return entries, nil
}

// Save replaces the hash with entries in one MULTI/EXEC transaction.
func (p *RedisPersister) Save(ctx context.Context, entries []Entry) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(entries) == 0 {
			return nil
		}

		fields := make([]interface{}, 0, 2*len(entries))
		for _, e := range entries {
			fields = append(fields, e.Key, e.Value)
		}
		pipe.HSet(ctx, p.key, fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", p.key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPersister) Close() error {
	return p.client.Close()
}

// Ping tests the Redis connection.
func (p *RedisPersister) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Verify RedisPersister implements Persister
var _ Persister = (*RedisPersister)(nil)
