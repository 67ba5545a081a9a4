package repository

import (
	"context"
	"testing"
	"time"

	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRepository(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("Stats", func(t *testing.T) {
		got, err := repo.GetStats(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		stats := &models.DashboardStats{TotalBookings: 5}
		require.NoError(t, repo.SetStats(ctx, stats, 0))
		stats.TotalBookings = 99

		got, err = repo.GetStats(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 5, got.TotalBookings)

		now = now.Add(2 * time.Minute)
		got, err = repo.GetStats(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("InvalidateStats", func(t *testing.T) {
		version, err := repo.StatsVersion(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.SetStats(ctx, &models.DashboardStats{TotalBookings: 1}, version))
		require.NoError(t, repo.InvalidateStats(ctx))
		got, err := repo.GetStats(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		next, err := repo.StatsVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, version+1, next)
	})

	t.Run("StaleStatsAreDropped", func(t *testing.T) {
		version, err := repo.StatsVersion(ctx)
		require.NoError(t, err)
		// a booking write lands while the aggregate is being computed
		require.NoError(t, repo.InvalidateStats(ctx))
		require.NoError(t, repo.SetStats(ctx, &models.DashboardStats{TotalBookings: 1}, version))

		got, err := repo.GetStats(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "booking:user:456"
		allowed, _ := repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.False(t, allowed)

		now = now.Add(time.Second + 10*time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
	})
}
