// Package session provides a Redis write-through cache for the session
// gate. Postgres stays authoritative for credentials; the cache absorbs the
// per-call validate-and-rotate traffic. Tokens are stored hashed so raw
// bearer credentials never reach Redis.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is the cached identity for one session.
type Entry struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	AccessLevel int    `json:"access_level"`
	TokenHash   string `json:"token_hash"`
}

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCache(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewCacheWithClient(client, ttl), nil
}

// NewCacheWithClient wraps an existing client; used by tests with
// miniredis.
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, prefix: "session:", ttl: ttl}
}

func (c *Cache) key(session string) string {
	return c.prefix + session
}

// Put records the current token hash and identity for a session,
// overwriting whatever rotation came before.
func (c *Cache) Put(ctx context.Context, session string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal session entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(session), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache session: %w", err)
	}
	return nil
}

// Lookup returns the cached entry for a session. A miss is (nil, nil); the
// gate falls back to the store.
func (c *Cache) Lookup(ctx context.Context, session string) (*Entry, error) {
	data, err := c.client.Get(ctx, c.key(session)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal session entry: %w", err)
	}
	return &entry, nil
}

// Invalidate drops a session from the cache.
func (c *Cache) Invalidate(ctx context.Context, session string) error {
	if err := c.client.Del(ctx, c.key(session)).Err(); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
