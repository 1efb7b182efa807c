package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"owlet-sync/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	latestKey = "owlet:vitals:latest"
	recentKey = "owlet:vitals:recent"
)

// RealtimeCache 生命体征实时缓存
// latest 为最新一条读数（带 TTL），recent 为按保留时长截断的滚动列表（最新在前）
type RealtimeCache struct {
	redisClient *redis.Client
	latestTTL   time.Duration
	recentCap   int64
	logger      *zap.Logger
}

// NewRealtimeCache 创建实时缓存
// recentCap 为滚动列表的最大条数（按保留时长和进样间隔推算）
func NewRealtimeCache(redisClient *redis.Client, latestTTL time.Duration, recentCap int64, logger *zap.Logger) *RealtimeCache {
	return &RealtimeCache{
		redisClient: redisClient,
		latestTTL:   latestTTL,
		recentCap:   recentCap,
		logger:      logger,
	}
}

// SetLatest 写入最新读数
func (c *RealtimeCache) SetLatest(ctx context.Context, reading models.VitalReading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	if err := c.redisClient.Set(ctx, latestKey, data, c.latestTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache latest reading: %w", err)
	}
	return nil
}

// GetLatest 读取最新读数，缓存未命中时返回 nil
func (c *RealtimeCache) GetLatest(ctx context.Context) (*models.VitalReading, error) {
	data, err := c.redisClient.Get(ctx, latestKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	var reading models.VitalReading
	if err := json.Unmarshal([]byte(data), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest reading: %w", err)
	}
	return &reading, nil
}

// AppendRecent 将读数插入滚动列表头部并按容量截断
func (c *RealtimeCache) AppendRecent(ctx context.Context, reading models.VitalReading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	pipe := c.redisClient.TxPipeline()
	pipe.LPush(ctx, recentKey, data)
	pipe.LTrim(ctx, recentKey, 0, c.recentCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append recent reading: %w", err)
	}
	return nil
}

// RecentCount 滚动列表当前条数
func (c *RealtimeCache) RecentCount(ctx context.Context) (int64, error) {
	return c.redisClient.LLen(ctx, recentKey).Result()
}
