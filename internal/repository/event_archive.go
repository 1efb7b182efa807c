package repository

import (
	"context"
	"database/sql"
	"fmt"

	"owlet-sync/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventArchiveRepository 睡眠事件的数据库归档
// 事件库本身是权威存储，这里只做备份；归档失败由调用方降级处理
type EventArchiveRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventArchiveRepository 创建事件归档 Repository
func NewEventArchiveRepository(db *sql.DB, logger *zap.Logger) *EventArchiveRepository {
	return &EventArchiveRepository{db: db, logger: logger}
}

// Archive 归档一个睡眠事件
func (r *EventArchiveRepository) Archive(ctx context.Context, event models.SleepEvent) error {
	query := `
		INSERT INTO sleep_events (
			id,
			event_id,
			event_type,
			icon,
			event_time,
			notes,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(),
		event.ID,
		event.Type,
		event.Icon,
		event.Time,
		event.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to archive sleep event: %w", err)
	}

	r.logger.Debug("Sleep event archived",
		zap.Int64("event_id", event.ID),
		zap.String("type", event.Type),
	)
	return nil
}
