// Package cache memoizes rendered pages in Redis so repeated runs over the
// same search hits skip the reader proxy.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/util"
)

const (
	DefaultTTL = 24 * time.Hour

	keyPrefix = "page:"

	// opTimeout bounds each cache round trip.
	opTimeout = 2 * time.Second
)

var errMiss = errors.New("cache miss")

// store is the subset of Redis the fetcher needs.
type store interface {
	get(ctx context.Context, key string) (string, error)
	set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errMiss
	}
	return v, err
}

func (s redisStore) set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Logger   *log.Logger
}

// RedisFetcher wraps a Fetcher with a Redis read-through cache. Cache errors
// are logged and the fetch goes straight to the wrapped fetcher.
type RedisFetcher struct {
	next   research.Fetcher
	store  store
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

var _ research.Fetcher = (*RedisFetcher)(nil)

// NewRedisFetcher connects to Redis. A failed ping is logged and the fetcher
// still works, uncached until Redis becomes reachable.
func NewRedisFetcher(ctx context.Context, next research.Fetcher, opts Options) *RedisFetcher {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	f := newFetcher(next, redisStore{client: client}, opts)
	f.client = client

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		f.logger.Printf("page cache unavailable: addr=%s error=%q", opts.Addr, util.RedactSecrets(err.Error()))
	}
	return f
}

func newFetcher(next research.Fetcher, s store, opts Options) *RedisFetcher {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisFetcher{next: next, store: s, ttl: ttl, logger: logger}
}

func (f *RedisFetcher) Fetch(ctx context.Context, url string) (string, error) {
	key := Key(url)

	getCtx, cancel := context.WithTimeout(ctx, opTimeout)
	page, err := f.store.get(getCtx, key)
	cancel()
	switch {
	case err == nil:
		return page, nil
	case !errors.Is(err, errMiss):
		f.logger.Printf("run=%s page cache read failed: error=%q", research.RunIDFromContext(ctx), util.RedactSecrets(err.Error()))
	}

	page, err = f.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	setCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := f.store.set(setCtx, key, page, f.ttl); err != nil {
		f.logger.Printf("run=%s page cache write failed: error=%q", research.RunIDFromContext(ctx), util.RedactSecrets(err.Error()))
	}
	return page, nil
}

// Close releases the Redis connection pool.
func (f *RedisFetcher) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

// Key is the cache key for a page URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}
