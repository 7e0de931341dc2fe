// Package cache implements the ephemeral Redis warm-start cache: the last
// reconciled series per symbol+range and the last tick per symbol, kept
// under a short TTL so a freshly added widget has something to draw while
// its history fetch is in flight.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/models"
)

// RedisClient handles Redis caching operations
type RedisClient struct {
	client *redis.Client
	logger *logrus.Entry
	ttl    time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
		MaxRetries:   2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		logger: logger.WithField("component", "redis"),
		ttl:    cfg.CacheTTL,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Health checks Redis health
func (rc *RedisClient) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// SetSeries caches the reconciled series for a symbol+range pairing.
func (rc *RedisClient) SetSeries(ctx context.Context, symbol string, rng models.RangeToken, points []models.PricePoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	return rc.client.Set(ctx, seriesKey(symbol, rng), data, rc.ttl).Err()
}

// GetSeries returns the cached series for a symbol+range pairing, or nil
// when nothing is cached.
func (rc *RedisClient) GetSeries(ctx context.Context, symbol string, rng models.RangeToken) ([]models.PricePoint, error) {
	data, err := rc.client.Get(ctx, seriesKey(symbol, rng)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	var points []models.PricePoint
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series: %w", err)
	}

	return points, nil
}

// SetTick caches the latest tick for a symbol.
func (rc *RedisClient) SetTick(ctx context.Context, symbol string, tick *models.Tick) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("failed to marshal tick: %w", err)
	}

	return rc.client.Set(ctx, tickKey(symbol), data, rc.ttl).Err()
}

// GetTick returns the cached latest tick for a symbol, or nil.
func (rc *RedisClient) GetTick(ctx context.Context, symbol string) (*models.Tick, error) {
	data, err := rc.client.Get(ctx, tickKey(symbol)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tick: %w", err)
	}

	var tick models.Tick
	if err := json.Unmarshal([]byte(data), &tick); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tick: %w", err)
	}

	return &tick, nil
}

func seriesKey(symbol string, rng models.RangeToken) string {
	return fmt.Sprintf("series:%s:%s", symbol, rng)
}

func tickKey(symbol string) string {
	return fmt.Sprintf("tick:%s", symbol)
}
