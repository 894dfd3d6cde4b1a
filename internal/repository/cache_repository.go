package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/session-auth-api/pkg/errors"
)

var (
	// ErrCacheUnavailable marks transport failures talking to the shared cache.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrCorruptEntry marks a cached value that could not be decoded.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

type cacheObserver interface {
	ObserveCacheOperation(op, result string, duration time.Duration)
}

// CacheRepository is a domain-agnostic JSON key-value store with TTLs on top of Redis.
// Every mutation maps to a single Redis command, so operations on one key are atomic.
type CacheRepository struct {
	client   redis.UniversalClient
	logger   *zap.Logger
	observer cacheObserver
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client redis.UniversalClient, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// WithObserver attaches a latency observer to every command.
func (r *CacheRepository) WithObserver(observer cacheObserver) *CacheRepository {
	r.observer = observer
	return r
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return ErrCacheUnavailable
	}

	start := time.Now()
	raw, err := r.client.Get(ctx, key).Bytes()
	r.observe("get", start, err)
	if err != nil {
		return r.classify("get", err)
	}
	return decode(raw, dest)
}

// GetDel atomically reads and removes a key. Of several concurrent callers on the
// same key at most one observes the value; the rest get ErrCacheMiss.
func (r *CacheRepository) GetDel(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return ErrCacheUnavailable
	}

	start := time.Now()
	raw, err := r.client.GetDel(ctx, key).Bytes()
	r.observe("getdel", start, err)
	if err != nil {
		return r.classify("getdel", err)
	}
	return decode(raw, dest)
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return ErrCacheUnavailable
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	start := time.Now()
	err = r.client.Set(ctx, key, payload, ttl).Err()
	r.observe("set", start, err)
	if err != nil {
		return r.classify("set", err)
	}
	return nil
}

// SetNX stores the value only when the key does not exist yet. It reports whether the write happened.
func (r *CacheRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, ErrCacheUnavailable
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal cache value: %w", err)
	}

	start := time.Now()
	ok, err := r.client.SetNX(ctx, key, payload, ttl).Result()
	r.observe("setnx", start, err)
	if err != nil {
		return false, r.classify("setnx", err)
	}
	return ok, nil
}

// Delete removes a key. Missing keys are not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return ErrCacheUnavailable
	}
	start := time.Now()
	err := r.client.Del(ctx, key).Err()
	r.observe("del", start, err)
	if err != nil {
		return r.classify("del", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return ErrCacheUnavailable
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return r.classify("ping", err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *CacheRepository) observe(op string, start time.Time, err error) {
	if r.observer == nil {
		return
	}
	result := "hit"
	switch {
	case errors.Is(err, redis.Nil):
		result = "miss"
	case err != nil:
		result = "error"
	}
	r.observer.ObserveCacheOperation(op, result, time.Since(start))
}

func (r *CacheRepository) classify(op string, err error) error {
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	// keys may embed credentials, so only the operation is logged
	r.logger.Warn("redis command failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("redis %s: %w: %v", op, ErrCacheUnavailable, err)
}

func decode(raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return nil
}
