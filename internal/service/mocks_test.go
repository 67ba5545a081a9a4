package service

import (
	"context"
	"sync"

	"tourdesk/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tour), args.Error(1)
}

func (m *mockStore) GetBookedGuests(ctx context.Context, tourID, excludeBookingID int64) (int, error) {
	args := m.Called(ctx, tourID, excludeBookingID)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CustomerExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// fakeStatsCache is an in-process StatsCache that counts invalidations.
type fakeStatsCache struct {
	mu          sync.Mutex
	stats       *models.DashboardStats
	invalidated int
	version     int64
}

func (c *fakeStatsCache) GetStats(_ context.Context) (*models.DashboardStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, nil
}

func (c *fakeStatsCache) StatsVersion(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

func (c *fakeStatsCache) SetStats(_ context.Context, stats *models.DashboardStats, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version == c.version {
		c.stats = stats
	}
	return nil
}

func (c *fakeStatsCache) InvalidateStats(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	c.invalidated++
	c.version++
	return nil
}

func (c *fakeStatsCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}

func ptr[T any](v T) *T {
	return &v
}
