package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docal-console/internal/types"
)

// Cache key prefixes.
const (
	keySubjects = "subjects"
	keySchedule = "schedule"
)

// SubjectCache caches proxy query results so the dashboard does not hammer
// the proxy on every page load. A nil SubjectCache is a no-op: every load
// misses and every store succeeds.
type SubjectCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewSubjectCache creates a cache service with the given TTL.
func NewSubjectCache(redis *RedisCache, ttl time.Duration) *SubjectCache {
	return &SubjectCache{redis: redis, ttl: ttl}
}

// key builds a namespaced cache key, normalized to lowercase.
func key(parts ...string) string {
	return strings.ToLower(strings.Join(parts, ":"))
}

// StoreSubjects caches the sanitized subject table.
func (c *SubjectCache) StoreSubjects(ctx context.Context, platform string, subjects []types.Subject) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := json.Marshal(subjects)
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}
	return c.redis.Set(ctx, key(keySubjects, platform), data, c.ttl)
}

// LoadSubjects returns the cached subject table, or ErrCacheMiss.
func (c *SubjectCache) LoadSubjects(ctx context.Context, platform string) ([]types.Subject, error) {
	if c == nil || c.redis == nil {
		return nil, ErrCacheMiss
	}
	data, err := c.redis.Get(ctx, key(keySubjects, platform))
	if err != nil {
		return nil, err
	}
	var subjects []types.Subject
	if err := json.Unmarshal(data, &subjects); err != nil {
		return nil, fmt.Errorf("unmarshal cached subjects: %w", err)
	}
	return subjects, nil
}

// InvalidateSubjects drops the cached subject table, e.g. after a
// successful submission changed server-side state.
func (c *SubjectCache) InvalidateSubjects(ctx context.Context, platform string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, key(keySubjects, platform))
}

// StoreSchedule caches a caller's schedule rows.
func (c *SubjectCache) StoreSchedule(ctx context.Context, caller string, rows []types.ScheduleRecord) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	return c.redis.Set(ctx, key(keySchedule, caller), data, c.ttl)
}

// LoadSchedule returns a caller's cached schedule rows, or ErrCacheMiss.
func (c *SubjectCache) LoadSchedule(ctx context.Context, caller string) ([]types.ScheduleRecord, error) {
	if c == nil || c.redis == nil {
		return nil, ErrCacheMiss
	}
	data, err := c.redis.Get(ctx, key(keySchedule, caller))
	if err != nil {
		return nil, err
	}
	var rows []types.ScheduleRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal cached schedule: %w", err)
	}
	return rows, nil
}
