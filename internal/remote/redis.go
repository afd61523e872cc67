package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"radius-go/internal/radius"
)

// mgetBatch bounds the number of keys fetched per MGET round trip.
const mgetBatch = 256

// RedisStore keeps each remote path as a string key holding a JSON value.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at url and verifies the
// connection. Every key is namespaced under prefix.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
// The store takes ownership and closes the client on Close.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisStore) key(path string) string {
	return r.prefix + path
}

// ReadSnapshot scans every key under path and fetches the values in batches.
func (r *RedisStore) ReadSnapshot(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(r.key(p+"/"))+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", p, err)
	}

	leaves := make(map[string][]byte, len(keys))
	for start := 0; start < len(keys); start += mgetBatch {
		end := min(start+mgetBatch, len(keys))
		batch := keys[start:end]

		vals, err := r.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue // deleted between SCAN and MGET
			}
			leaves[strings.TrimPrefix(batch[i], r.prefix)] = []byte(s)
		}
	}

	return AssembleChildren(p, leaves), nil
}

// Write stores the JSON encoding of value at path.
func (r *RedisStore) Write(ctx context.Context, path string, value any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", p, err)
	}
	if err := r.client.Set(ctx, r.key(p), data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Compile-time check that RedisStore implements radius.RemoteStore interface
var _ radius.RemoteStore = (*RedisStore)(nil)
