package alerting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore remembers when each alert last notified
type CooldownStore interface {
	Get(ctx context.Context, alertID int64) (last time.Time, ok bool, err error)
	Set(ctx context.Context, alertID int64, at time.Time) error
}

// MemoryCooldownStore keeps cooldown state for the life of the process
type MemoryCooldownStore struct {
	mu   sync.Mutex
	last map[int64]time.Time
}

func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{last: make(map[int64]time.Time)}
}

func (m *MemoryCooldownStore) Get(_ context.Context, alertID int64) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[alertID]
	return t, ok, nil
}

func (m *MemoryCooldownStore) Set(_ context.Context, alertID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[alertID] = at
	return nil
}

// redisKV is the subset of *redis.Client the cooldown store uses
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCooldownStore keeps cooldown state in Redis so it survives restarts.
// Keys expire once the cooldown has elapsed.
type RedisCooldownStore struct {
	redis redisKV
	ttl   time.Duration
}

// NewRedisCooldownStore creates a store whose keys live for ttl
func NewRedisCooldownStore(client redisKV, ttl time.Duration) *RedisCooldownStore {
	return &RedisCooldownStore{redis: client, ttl: ttl}
}

func cooldownKey(alertID int64) string {
	return "alert_cooldown:" + strconv.FormatInt(alertID, 10)
}

func (s *RedisCooldownStore) Get(ctx context.Context, alertID int64) (time.Time, bool, error) {
	data, err := s.redis.Get(ctx, cooldownKey(alertID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get cooldown from Redis: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, data)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse cooldown %q: %w", data, err)
	}
	return t, true, nil
}

func (s *RedisCooldownStore) Set(ctx context.Context, alertID int64, at time.Time) error {
	if err := s.redis.Set(ctx, cooldownKey(alertID), at.UTC().Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cooldown in Redis: %w", err)
	}
	return nil
}
