package repository

import (
	"context"
	"sync"
	"time"

	"tourdesk/internal/models"
)

// MemoryCacheRepository is the single-process stand-in for Redis.
type MemoryCacheRepository struct {
	mu         sync.Mutex
	stats      *models.DashboardStats
	statsUntil time.Time
	statsTTL   time.Duration
	statsVer   int64
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCacheRepository(statsTTL time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{
		statsTTL:   statsTTL,
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemoryCacheRepository) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stats == nil || (r.statsTTL > 0 && r.now().After(r.statsUntil)) {
		return nil, nil
	}
	cp := *r.stats
	return &cp, nil
}

func (r *MemoryCacheRepository) StatsVersion(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsVer, nil
}

// SetStats is a no-op when the cache was invalidated after version was read.
func (r *MemoryCacheRepository) SetStats(ctx context.Context, stats *models.DashboardStats, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if version != r.statsVer {
		return nil
	}
	cp := *stats
	r.stats = &cp
	r.statsUntil = r.now().Add(r.statsTTL)
	return nil
}

func (r *MemoryCacheRepository) InvalidateStats(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = nil
	r.statsVer++
	return nil
}

func (r *MemoryCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
