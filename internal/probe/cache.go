package probe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/timeline"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	cacheKeyPrefix  = "reelforge:duration:"
)

// ErrCacheMiss is returned by a Store when the key is absent or expired.
var ErrCacheMiss = errors.New("probe: cache miss")

// Store is the key/value backend of the duration cache.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisStore keeps durations in redis so every instance shares them.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis creates a client and checks connectivity.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// MemoryStore is a process-local Store used when redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Cached wraps a prober with a duration cache keyed by URL hash. Cache
// failures are logged and bypassed; only probe failures reach the caller.
type Cached struct {
	prober timeline.DurationProber
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(prober timeline.DurationProber, store Store, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{prober: prober, store: store, ttl: ttl, logger: logger}
}

// CacheKey returns the cache key of a URL.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *Cached) ProbeDuration(ctx context.Context, url string) (float64, error) {
	key := CacheKey(url)

	v, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if d, perr := strconv.ParseFloat(v, 64); perr == nil && d > 0 {
			return d, nil
		}
		c.warn("discarding malformed cached duration", url, nil)
	case !errors.Is(err, ErrCacheMiss):
		c.warn("duration cache read failed", url, err)
	}

	d, err := c.prober.ProbeDuration(ctx, url)
	if err != nil {
		return 0, err
	}

	if err := c.store.Set(ctx, key, strconv.FormatFloat(d, 'f', -1, 64), c.ttl); err != nil {
		c.warn("duration cache write failed", url, err)
	}
	return d, nil
}

func (c *Cached) warn(msg, url string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, "url", logging.SanitizeURL(url), "error", err)
}
