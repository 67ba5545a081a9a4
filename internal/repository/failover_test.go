package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tourdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *mockCache) StatsVersion(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCache) SetStats(ctx context.Context, stats *models.DashboardStats, version int64) error {
	args := m.Called(ctx, stats, version)
	return args.Error(0)
}

func (m *mockCache) InvalidateStats(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (r *FailoverCacheRepository) setDown(down bool, lastCheck time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isDown = down
	r.lastCheck = lastCheck
}

func (r *FailoverCacheRepository) down() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDown
}

func TestFailoverCacheRepository(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		stats := &models.DashboardStats{TotalBookings: 1}
		primary.On("GetStats", ctx).Return(stats, nil).Once()

		got, err := repo.GetStats(ctx)
		assert.NoError(t, err)
		assert.Equal(t, stats, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		stats := &models.DashboardStats{TotalBookings: 2}
		primary.On("GetStats", ctx).Return(nil, errors.New("fail")).Once()
		fallback.On("GetStats", ctx).Return(stats, nil).Once()

		got, err := repo.GetStats(ctx)
		assert.NoError(t, err)
		assert.Equal(t, stats, got)
		assert.True(t, repo.down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		repo.setDown(true, time.Now())
		fallback.On("GetStats", ctx).Return(nil, nil).Once()
		fallback.On("CheckRateLimit", ctx, "k66", 10, time.Minute).Return(true, nil).Once()

		_, err := repo.GetStats(ctx)
		assert.NoError(t, err)
		allowed, err := repo.CheckRateLimit(ctx, "k66", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryDropsStaleStats", func(t *testing.T) {
		repo.setDown(true, time.Now().Add(-2*time.Minute))
		primary.On("GetStats", ctx).Return(&models.DashboardStats{TotalBookings: 1}, nil).Once()
		primary.On("InvalidateStats", ctx).Return(nil).Once()

		got, err := repo.GetStats(ctx)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, repo.down())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.setDown(true, time.Now().Add(-2*time.Minute))
		primary.On("GetStats", ctx).Return(nil, errors.New("still fail")).Once()
		fallback.On("GetStats", ctx).Return(nil, nil).Once()

		_, err := repo.GetStats(ctx)
		assert.NoError(t, err)
		assert.True(t, repo.down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetStatsFailover", func(t *testing.T) {
		repo.setDown(false, time.Time{})
		stats := &models.DashboardStats{TotalBookings: 4}
		primary.On("SetStats", ctx, stats, int64(2)).Return(errors.New("fail")).Once()
		fallback.On("SetStats", ctx, stats, int64(2)).Return(nil).Once()

		assert.NoError(t, repo.SetStats(ctx, stats, 2))
		assert.True(t, repo.down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateClearsBoth", func(t *testing.T) {
		repo.setDown(false, time.Time{})
		fallback.On("InvalidateStats", ctx).Return(nil).Once()
		primary.On("InvalidateStats", ctx).Return(nil).Once()

		assert.NoError(t, repo.InvalidateStats(ctx))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateWhilePrimaryFails", func(t *testing.T) {
		repo.setDown(false, time.Time{})
		fallback.On("InvalidateStats", ctx).Return(nil).Once()
		primary.On("InvalidateStats", ctx).Return(errors.New("fail")).Once()

		assert.NoError(t, repo.InvalidateStats(ctx))
		assert.True(t, repo.down())
	})

	t.Run("CheckRateLimitFailover", func(t *testing.T) {
		repo.setDown(false, time.Time{})
		primary.On("CheckRateLimit", ctx, "k6", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "k6", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k6", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
