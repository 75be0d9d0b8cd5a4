package share

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisStore runs against a real server named by GROWCALC_TEST_REDIS,
// e.g. redis://127.0.0.1:6379/15. The database is used with a unique prefix.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("GROWCALC_TEST_REDIS")
	if url == "" {
		t.Skip("GROWCALC_TEST_REDIS not set")
	}
	ctx := context.Background()

	prefix := "growcalc_test:" + time.Now().Format("150405.000000") + ":"
	store, err := OpenRedis(ctx, url, prefix)
	require.NoError(t, err)
	defer store.Close()

	r := singleRecord()
	r.ID = "share_redis"
	r.CreatedAt = time.Now()
	r.ExpiresAt = time.Now().Add(time.Minute)
	require.NoError(t, store.Put(ctx, r))

	ttl, err := store.rdb.TTL(ctx, prefix+r.ID).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Single.FinalValue, got.Single.FinalValue)

	st, err := store.Stats(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Active: 1}, st)

	// Pretend the clock moved past ExpiresAt while the key is still alive.
	removed, err := store.Cleanup(ctx, r.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, r.ID), ErrNotFound)

	// A record already stale when stored is kept without a TTL for Cleanup.
	stale := singleRecord()
	stale.ID = "share_redis_stale"
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Put(ctx, stale))

	ttl, err = store.rdb.TTL(ctx, prefix+stale.ID).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)

	removed, err = store.Cleanup(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
