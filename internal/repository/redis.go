package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourdesk/internal/config"
	"tourdesk/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	statsKey        = "tourdesk:stats:dashboard"
	statsVersionKey = "tourdesk:stats:version"
	rateLimitPrefix = "tourdesk:rate_limit:"
)

var errNilClient = errors.New("redis client is nil")

// RedisCacheRepository keeps the dashboard aggregate and rate limit counters
// in Redis so that every API instance shares them.
type RedisCacheRepository struct {
	client   *redis.Client
	statsTTL time.Duration
}

// NewRedisClient builds a client from configuration without connecting.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCacheRepository(client *redis.Client, statsTTL time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{
		client:   client,
		statsTTL: statsTTL,
	}
}

// GetStats returns nil without error when nothing is cached.
func (r *RedisCacheRepository) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	val, err := r.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats from redis: %w", err)
	}

	var stats models.DashboardStats
	if err := json.Unmarshal(val, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &stats, nil
}

// StatsVersion returns the invalidation counter, zero before the first
// invalidation.
func (r *RedisCacheRepository) StatsVersion(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, errNilClient
	}
	version, err := r.client.Get(ctx, statsVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get stats version from redis: %w", err)
	}
	return version, nil
}

// SetStats stores stats only while the invalidation counter still equals
// version. The check and the write run under WATCH so an invalidation from
// another instance aborts the write.
func (r *RedisCacheRepository) SetStats(ctx context.Context, stats *models.DashboardStats, version int64) error {
	if r.client == nil {
		return errNilClient
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, statsVersionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey, data, r.statsTTL)
			return nil
		})
		return err
	}, statsVersionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set stats in redis: %w", err)
	}
	return nil
}

func (r *RedisCacheRepository) InvalidateStats(ctx context.Context) error {
	if r.client == nil {
		return errNilClient
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsVersionKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete stats from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts one hit for key and reports whether the count is
// still within limit for the current window.
func (r *RedisCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	redisKey := rateLimitPrefix + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
