package service

import (
	"context"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

// DashboardService serves the booking statistics aggregate, going through the
// stats cache when one is configured.
type DashboardService struct {
	repo   domain.StatsRepository
	cache  domain.StatsCache
	now    func() time.Time
	logger *zerolog.Logger
}

func NewDashboardService(repo domain.StatsRepository, cache domain.StatsCache, logger *zerolog.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		cache:  cache,
		now:    time.Now,
		logger: logger,
	}
}

// Stats returns the cached aggregate or computes and caches a fresh one. A
// write that invalidates the cache while the aggregate is computed keeps the
// result out of the cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	cacheable := s.cache != nil
	var version int64
	if cacheable {
		cached, err := s.cache.GetStats(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("stats cache read failed")
		} else if cached != nil {
			return cached, nil
		}
		if version, err = s.cache.StatsVersion(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("stats cache version read failed")
			cacheable = false
		}
	}

	stats, err := s.repo.GetDashboardStats(ctx, s.now())
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetStats(ctx, stats, version); err != nil {
			s.logger.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return stats, nil
}
