// Package cache provides TTL memoization backed by Redis with a transparent
// in-process fallback.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache is the memoization contract shared by every component.
type Cache interface {
	// Get decodes the value stored under key into dst. It reports false on a
	// miss, an expired entry, or a value that cannot be decoded.
	Get(ctx context.Context, key string, dst any) bool
	// Set stores value under key for ttl. A ttl <= 0 uses the default TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	// Delete removes key.
	Delete(ctx context.Context, key string)
	// Clear removes every key under the cache prefix.
	Clear(ctx context.Context) error
}

// remote is the subset of the Redis client the cache uses.
type remote interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// Options configures a Store.
type Options struct {
	RedisURL    string
	Prefix      string
	DefaultTTL  time.Duration
	DialTimeout time.Duration
}

// Store implements Cache. Every operation goes to Redis when it is reachable
// and to the in-process map otherwise; callers cannot tell the difference.
type Store struct {
	remote     remote
	mem        *memory
	prefix     string
	defaultTTL time.Duration
}

// New builds a Store. An empty RedisURL, an unparseable URL, or a failed ping
// leaves the store on the in-process map only.
func New(ctx context.Context, opts Options) *Store {
	s := &Store{
		mem:        newMemory(),
		prefix:     opts.Prefix,
		defaultTTL: opts.DefaultTTL,
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = time.Hour
	}
	if opts.RedisURL == "" {
		zap.L().Info("cache: no redis url, using in-process cache")
		return s
	}

	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		zap.L().Warn("cache: invalid redis url, using in-process cache", zap.Error(err))
		return s
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	client := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zap.L().Warn("cache: redis unreachable, using in-process cache",
			zap.String("addr", ro.Addr),
			zap.Error(err),
		)
		_ = client.Close()
		return s
	}

	zap.L().Info("cache: connected to redis", zap.String("addr", ro.Addr))
	s.remote = client
	return s
}

// Distributed reports whether the store is talking to Redis.
func (s *Store) Distributed() bool { return s.remote != nil }

func (s *Store) key(k string) string { return s.prefix + k }

// Get implements Cache.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	k := s.key(key)

	if s.remote != nil {
		raw, err := s.remote.Get(ctx, k).Bytes()
		switch {
		case err == nil:
			return decode(k, raw, dst)
		case !errors.Is(err, redis.Nil):
			zap.L().Warn("cache: redis get failed, reading in-process cache", zap.String("key", k), zap.Error(err))
		}
	}

	raw, ok := s.mem.get(k)
	if !ok {
		return false
	}
	return decode(k, raw, dst)
}

// Set implements Cache.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		zap.L().Warn("cache: encode value", zap.String("key", key), zap.Error(err))
		return false
	}
	k := s.key(key)

	if s.remote != nil {
		err := s.remote.Set(ctx, k, raw, ttl).Err()
		if err == nil {
			return true
		}
		zap.L().Warn("cache: redis set failed, writing in-process cache", zap.String("key", k), zap.Error(err))
	}

	s.mem.set(k, raw, ttl)
	return true
}

// Delete implements Cache.
func (s *Store) Delete(ctx context.Context, key string) {
	k := s.key(key)
	if s.remote != nil {
		if err := s.remote.Del(ctx, k).Err(); err != nil {
			zap.L().Warn("cache: redis delete failed", zap.String("key", k), zap.Error(err))
		}
	}
	s.mem.delete(k)
}

// Clear implements Cache.
func (s *Store) Clear(ctx context.Context) error {
	s.mem.clear(s.prefix)
	if s.remote == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := s.remote.Scan(ctx, cursor, s.prefix+"*", 500).Result()
		if err != nil {
			return eris.Wrap(err, "cache: scan keys")
		}
		if len(keys) > 0 {
			if err := s.remote.Del(ctx, keys...).Err(); err != nil {
				return eris.Wrap(err, "cache: delete keys")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the Redis connection, if any.
func (s *Store) Close() error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Close()
}

func decode(key string, raw []byte, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		zap.L().Debug("cache: undecodable entry treated as miss", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remember returns the cached value for key, or calls fn and caches its result
// when fn succeeds and keep, if non-nil, accepts it. A nil Cache always calls
// fn.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, keep func(T) bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var v T
	if c == nil {
		return fn(ctx)
	}
	if c.Get(ctx, key, &v) {
		return v, nil
	}
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	if keep == nil || keep(v) {
		c.Set(ctx, key, v, ttl)
	}
	return v, nil
}
