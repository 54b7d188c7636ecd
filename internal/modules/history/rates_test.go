package history

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/aristath/fincalc/internal/testing"
)

func newTestRateRepo(t *testing.T) *RateRepository {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewRateRepository(db.Conn(), zerolog.Nop())
}

func TestRateForYearMissing(t *testing.T) {
	repo := newTestRateRepo(t)

	rate, found, err := repo.RateForYear(2015)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, rate)
}

func TestUpsertRate(t *testing.T) {
	repo := newTestRateRepo(t)

	require.NoError(t, repo.UpsertRate(2023, 12.0))

	rate, found, err := repo.RateForYear(2023)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 12.0, rate)

	// Re-upserting the same year overwrites.
	require.NoError(t, repo.UpsertRate(2023, 13.5))
	rate, found, err = repo.RateForYear(2023)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 13.5, rate)
}

func TestSeedDefaults(t *testing.T) {
	repo := newTestRateRepo(t)

	// A manually set rate survives seeding.
	require.NoError(t, repo.UpsertRate(2024, 17.5))

	require.NoError(t, repo.SeedDefaults())

	rate, found, err := repo.RateForYear(2021)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4.5, rate)

	rate, found, err = repo.RateForYear(2024)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 17.5, rate)

	// Seeding twice is a no-op.
	require.NoError(t, repo.SeedDefaults())
	rate, _, err = repo.RateForYear(2024)
	require.NoError(t, err)
	assert.Equal(t, 17.5, rate)
}
