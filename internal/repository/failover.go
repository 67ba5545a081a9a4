package repository

import (
	"context"
	"sync"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheRepository serves from primary until a call fails, then from
// fallback, probing primary again once per recovery interval.
type FailoverCacheRepository struct {
	primary  domain.CacheRepository
	fallback domain.CacheRepository
	logger   *zerolog.Logger

	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverCacheRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.isDown || time.Since(r.lastCheck) > recoveryInterval
}

func (r *FailoverCacheRepository) markDown(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isDown {
		r.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	}
	r.isDown = true
	r.lastCheck = time.Now()
}

// markUp clears the down flag and reports whether primary was down before.
func (r *FailoverCacheRepository) markUp() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	recovered := r.isDown
	if recovered {
		r.logger.Info().Msg("Primary cache recovered")
	}
	r.isDown = false
	return recovered
}

func (r *FailoverCacheRepository) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	if r.usePrimary() {
		stats, err := r.primary.GetStats(ctx)
		if err == nil {
			if r.markUp() {
				// writes made during the outage never invalidated primary
				return nil, r.primary.InvalidateStats(ctx)
			}
			return stats, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetStats(ctx)
}

func (r *FailoverCacheRepository) StatsVersion(ctx context.Context) (int64, error) {
	if r.usePrimary() {
		version, err := r.primary.StatsVersion(ctx)
		if err == nil {
			return version, nil
		}
		r.markDown(err)
	}
	return r.fallback.StatsVersion(ctx)
}

func (r *FailoverCacheRepository) SetStats(ctx context.Context, stats *models.DashboardStats, version int64) error {
	if r.usePrimary() {
		err := r.primary.SetStats(ctx, stats, version)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetStats(ctx, stats, version)
}

// InvalidateStats clears the fallback copy and, when reachable, the primary.
func (r *FailoverCacheRepository) InvalidateStats(ctx context.Context) error {
	if err := r.fallback.InvalidateStats(ctx); err != nil {
		return err
	}
	if r.usePrimary() {
		err := r.primary.InvalidateStats(ctx)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
