package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/docal-console/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*SubjectCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSubjectCache(NewRedisCacheWithClient(client), ttl), mr
}

func TestSubjectCacheRoundTrip(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	subjects := []types.Subject{
		{Username: "alice", TweetCount: 3, Trust: types.TrustScam, Investigate: 2},
		{Username: "bob"},
	}
	require.NoError(t, cache.StoreSubjects(ctx, "twitter", subjects))

	loaded, err := cache.LoadSubjects(ctx, "twitter")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Username)
	assert.Equal(t, 2, loaded[0].Investigate)
}

func TestSubjectCacheMiss(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	_, err := cache.LoadSubjects(context.Background(), "twitter")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSubjectCacheInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.StoreSubjects(ctx, "twitter", []types.Subject{{Username: "alice"}}))
	require.NoError(t, cache.InvalidateSubjects(ctx, "twitter"))

	_, err := cache.LoadSubjects(ctx, "twitter")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSubjectCacheExpiry(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.StoreSubjects(ctx, "twitter", []types.Subject{{Username: "alice"}}))
	mr.FastForward(2 * time.Minute)

	_, err := cache.LoadSubjects(ctx, "twitter")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestScheduleCacheRoundTrip(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	rows := []types.ScheduleRecord{{
		Username: "alice",
		TweetIDs: []string{"1", "2"},
		Caller:   "caller-addr",
	}}
	require.NoError(t, cache.StoreSchedule(ctx, "Caller-Addr", rows))

	// Keys are case-normalized.
	loaded, err := cache.LoadSchedule(ctx, "caller-addr")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, []string{"1", "2"}, loaded[0].TweetIDs)
}

func TestNilCacheIsNoOp(t *testing.T) {
	var cache *SubjectCache
	ctx := context.Background()

	assert.NoError(t, cache.StoreSubjects(ctx, "twitter", nil))
	assert.NoError(t, cache.InvalidateSubjects(ctx, "twitter"))

	_, err := cache.LoadSubjects(ctx, "twitter")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = cache.LoadSchedule(ctx, "caller")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
