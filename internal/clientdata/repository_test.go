package clientdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/aristath/fincalc/internal/testing"
)

type cachedPayload struct {
	Ticker string  `msgpack:"ticker"`
	Value  float64 `msgpack:"value"`
}

func newTestCacheRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn())
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := newTestCacheRepo(t)

	in := cachedPayload{Ticker: "SBER", Value: 1234.56}
	require.NoError(t, repo.Store("calc:sber", in, time.Hour))

	var out cachedPayload
	found, err := repo.GetIfFresh("calc:sber", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetIfFreshMissingKey(t *testing.T) {
	repo := newTestCacheRepo(t)

	var out cachedPayload
	found, err := repo.GetIfFresh("absent", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIfFreshExpired(t *testing.T) {
	repo := newTestCacheRepo(t)

	require.NoError(t, repo.Store("calc:sber", cachedPayload{Ticker: "SBER"}, -time.Minute))

	var out cachedPayload
	found, err := repo.GetIfFresh("calc:sber", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreReplacesExisting(t *testing.T) {
	repo := newTestCacheRepo(t)

	require.NoError(t, repo.Store("calc:sber", cachedPayload{Value: 1}, time.Hour))
	require.NoError(t, repo.Store("calc:sber", cachedPayload{Value: 2}, time.Hour))

	var out cachedPayload
	found, err := repo.GetIfFresh("calc:sber", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2.0, out.Value)
}

func TestDelete(t *testing.T) {
	repo := newTestCacheRepo(t)

	require.NoError(t, repo.Store("calc:sber", cachedPayload{}, time.Hour))
	require.NoError(t, repo.Delete("calc:sber"))

	var out cachedPayload
	found, err := repo.GetIfFresh("calc:sber", &out)
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is not an error.
	require.NoError(t, repo.Delete("absent"))
}

func TestDeleteExpired(t *testing.T) {
	repo := newTestCacheRepo(t)

	require.NoError(t, repo.Store("stale-1", cachedPayload{}, -time.Hour))
	require.NoError(t, repo.Store("stale-2", cachedPayload{}, -time.Minute))
	require.NoError(t, repo.Store("fresh", cachedPayload{Value: 7}, time.Hour))

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var out cachedPayload
	found, err := repo.GetIfFresh("fresh", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7.0, out.Value)
}

func TestCalculationCacheRoundTrip(t *testing.T) {
	repo := newTestCacheRepo(t)
	cache := NewCalculationCache(repo, 0) // zero ttl selects the default

	require.NoError(t, cache.Store("calc:gazp", cachedPayload{Ticker: "GAZP", Value: 42}))

	var out cachedPayload
	found, err := cache.Get("calc:gazp", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "GAZP", out.Ticker)
	assert.Equal(t, 42.0, out.Value)
}
