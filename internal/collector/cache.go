package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"MetalSentinel/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a Store when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// RedisStore keeps entries in Redis under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: "metalsentinel:"}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type freshKey struct{}

// Fresh marks ctx so a CachedFetcher skips cached reads. The provider response still replaces
// the stored entry.
func Fresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

func isFresh(ctx context.Context) bool {
	v, _ := ctx.Value(freshKey{}).(bool)
	return v
}

// CachedFetcher wraps a Fetcher and caches each history download. Keys include the current
// date, so a new trading day always misses.
type CachedFetcher struct {
	Fetcher Fetcher
	Store   Store
	TTL     time.Duration
	now     func() time.Time
}

func NewCachedFetcher(f Fetcher, store Store, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Fetcher: f, Store: store, TTL: ttl, now: time.Now}
}

func (c *CachedFetcher) Name() string { return c.Fetcher.Name() + "+cache" }

func (c *CachedFetcher) key(symbol string, start time.Time) string {
	return fmt.Sprintf("history:%s:%s:%s:%s", c.Fetcher.Name(), symbol,
		model.DateOf(start).Format(model.DateLayout), model.DateOf(c.now()).Format(model.DateLayout))
}

// FetchHistory serves from the store when possible, unless ctx is marked Fresh. Store failures
// are logged and fall through to the provider.
func (c *CachedFetcher) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]model.PriceBar, error) {
	key := c.key(symbol, start)
	if !isFresh(ctx) {
		if bars, ok := c.lookup(ctx, key); ok {
			return bars, nil
		}
	}

	bars, err := c.Fetcher.FetchHistory(ctx, symbol, start)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return bars, nil
	}
	if data, err := json.Marshal(bars); err == nil {
		if err := c.Store.Set(ctx, key, data, c.TTL); err != nil {
			zap.L().Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return bars, nil
}

func (c *CachedFetcher) lookup(ctx context.Context, key string) ([]model.PriceBar, bool) {
	data, err := c.Store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			zap.L().Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var bars []model.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		zap.L().Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return bars, true
}
