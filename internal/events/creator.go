package events

import (
	"context"
	"time"

	"owlet-sync/internal/models"
	"owlet-sync/internal/timeutil"

	"go.uber.org/zap"
)

// DuplicateWindow 重复抑制窗口：最近一条同类型事件落在该窗口内则跳过创建
const DuplicateWindow = 300 * time.Second

// storeClient 事件库客户端接口（用于测试）
type storeClient interface {
	Recent(ctx context.Context) ([]models.SleepEvent, error)
	Create(ctx context.Context, event models.SleepEvent) error
}

// archiver 事件归档接口（用于测试，可为空）
type archiver interface {
	Archive(ctx context.Context, event models.SleepEvent) error
}

// Creator 睡眠事件创建器
// 创建前查询事件库做重复抑制；事件库不可达时按"无重复"处理
// 创建成功后尽力归档到数据库（归档失败只记录日志）
type Creator struct {
	client  storeClient
	archive archiver // nil 时不归档
	clock   timeutil.Clock
	logger  *zap.Logger
}

// NewCreator 创建事件创建器
func NewCreator(client storeClient, archive archiver, clock timeutil.Clock, logger *zap.Logger) *Creator {
	return &Creator{client: client, archive: archive, clock: clock, logger: logger}
}

// ShouldCreate 检查是否应创建指定类型的事件（重复抑制）
func (c *Creator) ShouldCreate(ctx context.Context, eventType string) bool {
	events, err := c.client.Recent(ctx)
	if err != nil {
		// 查不到历史事件就假定没有重复
		c.logger.Warn("Could not check for duplicate events", zap.Error(err))
		return true
	}
	if len(events) == 0 {
		return true
	}

	last := events[0]
	if last.Type == eventType && c.clock.Now().UTC().Sub(last.Time) < DuplicateWindow {
		c.logger.Info("Skipping duplicate event",
			zap.String("type", eventType),
			zap.Time("last_event_time", last.Time),
		)
		return false
	}
	return true
}

// Create 创建一个事件并尽力归档
func (c *Creator) Create(ctx context.Context, eventType, icon, notes string) error {
	now := c.clock.Now().UTC()
	event := models.SleepEvent{
		ID:    now.UnixMilli(),
		Type:  eventType,
		Icon:  icon,
		Time:  now,
		Notes: notes,
	}

	if err := c.client.Create(ctx, event); err != nil {
		return err
	}
	c.logger.Info("Created event", zap.String("type", eventType))

	if c.archive != nil {
		if err := c.archive.Archive(ctx, event); err != nil {
			c.logger.Warn("Failed to archive event",
				zap.String("type", eventType),
				zap.Error(err),
			)
		}
	}
	return nil
}
