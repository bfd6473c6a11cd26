package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
)

// DefaultAverageTTL bounds how long a class average is reused.
const DefaultAverageTTL = 6 * time.Hour

// AverageCache keeps class averages per course group.
type AverageCache interface {
	Get(ctx context.Context, groupID string) (*ClassAverage, bool)
	Set(ctx context.Context, avg *ClassAverage) error
}

// MemoryCache is an in-process AverageCache scoped to one session.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*ClassAverage
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*ClassAverage)}
}

func (m *MemoryCache) Get(_ context.Context, groupID string) (*ClassAverage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	avg, ok := m.entries[groupID]
	return avg, ok
}

func (m *MemoryCache) Set(_ context.Context, avg *ClassAverage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[avg.GroupID] = avg
	return nil
}

// RedisCache shares class averages between processes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisCache(client, ttl), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultAverageTTL
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "sabis:class_average:"}
}

func (r *RedisCache) Get(ctx context.Context, groupID string) (*ClassAverage, bool) {
	raw, err := r.client.Get(ctx, r.prefix+groupID).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug.Printf("Redis error: %v", err)
		return nil, false
	}

	var avg ClassAverage
	if err := json.Unmarshal(raw, &avg); err != nil {
		logger.Debug.Printf("Dropping unreadable class average for group %s: %v", groupID, err)
		return nil, false
	}
	return &avg, true
}

func (r *RedisCache) Set(ctx context.Context, avg *ClassAverage) error {
	raw, err := json.Marshal(avg)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+avg.GroupID, raw, r.ttl).Err()
}

// Close releases the redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
