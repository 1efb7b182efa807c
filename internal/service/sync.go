package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"owlet-sync/internal/aggregator"
	"owlet-sync/internal/config"
	"owlet-sync/internal/database"
	"owlet-sync/internal/events"
	"owlet-sync/internal/ingest"
	"owlet-sync/internal/models"
	"owlet-sync/internal/owlet"
	"owlet-sync/internal/repository"
	"owlet-sync/internal/sleep"
	"owlet-sync/internal/timeutil"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	dailyCleanupInterval = 24 * time.Hour
	hourlyUpdateInterval = time.Hour
	eventIcon            = "😴"
	eventNotes           = "Detected by Owlet"
)

// deviceClient 设备 API 客户端接口（用于测试）
type deviceClient interface {
	Authenticate(ctx context.Context) error
	FetchDeviceData(ctx context.Context) (*owlet.DeviceSnapshot, error)
	Close()
}

// eventCreator 事件创建器接口（用于测试）
type eventCreator interface {
	ShouldCreate(ctx context.Context, eventType string) bool
	Create(ctx context.Context, eventType, icon, notes string) error
}

// SyncService 同步编排器
// 一个轮询周期：补算触发 -> 小时聚合触发 -> 认证 -> 拉取 -> 进样 -> 睡眠检测
// 所有周期状态都是本结构的显式字段，严格单周期串行执行
type SyncService struct {
	config *config.Config
	logger *zap.Logger
	tz     *timeutil.Converter
	clock  timeutil.Clock

	device   deviceClient
	repo     *repository.FileRepository
	cache    *repository.RealtimeCache
	minutes  *aggregator.MinuteAggregator
	hourly   *aggregator.HourlyUpdater
	backfill *aggregator.Backfill
	tracker  *sleep.Tracker
	creator  eventCreator

	redisClient *redis.Client
	db          *sql.DB

	lastCleanupTime     time.Time
	lastHourlyUpdate    time.Time
	lastHistorySaveTime time.Time
}

// NewSyncService 创建同步服务并初始化全部依赖
func NewSyncService(cfg *config.Config, logger *zap.Logger) (*SyncService, error) {
	tz := timeutil.NewConverter(cfg.Sync.Timezone, logger)
	clock := timeutil.NewClock()

	repo, err := repository.NewFileRepository(cfg.Sync.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file repository: %w", err)
	}

	// 初始化Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 滚动列表容量按保留时长和进样间隔推算
	historyInterval := cfg.Sync.HistoryIntervalSeconds
	if historyInterval <= 0 {
		historyInterval = 60
	}
	recentCap := int64(cfg.Sync.RetentionHours*3600) / int64(historyInterval)
	if recentCap < 1 {
		recentCap = 1
	}
	latestTTL := 2 * time.Duration(cfg.SyncInterval()) * time.Second
	cache := repository.NewRealtimeCache(redisClient, latestTTL, recentCap, logger)

	// 事件归档（可选）
	var db *sql.DB
	var archive *repository.EventArchiveRepository
	if cfg.Archive.Enabled {
		db, err = database.NewPostgresDB(&cfg.Archive.Database)
		if err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		archive = repository.NewEventArchiveRepository(db, logger)
	}

	device := owlet.NewClient(cfg.Owlet.Region, cfg.Owlet.Email, cfg.Owlet.Password, cfg.Owlet.APIBase, logger)
	eventsClient := events.NewClient(cfg.Events.Endpoint, logger)

	var creator *events.Creator
	if archive != nil {
		creator = events.NewCreator(eventsClient, archive, clock, logger)
	} else {
		creator = events.NewCreator(eventsClient, nil, clock, logger)
	}

	summarizer := aggregator.NewSummarizer(tz, repo, logger)

	return &SyncService{
		config:      cfg,
		logger:      logger,
		tz:          tz,
		clock:       clock,
		device:      device,
		repo:        repo,
		cache:       cache,
		minutes:     aggregator.NewMinuteAggregator(tz, repo, logger),
		hourly:      aggregator.NewHourlyUpdater(tz, repo, clock, logger),
		backfill:    aggregator.NewBackfill(tz, summarizer, repo, clock, logger),
		tracker:     sleep.NewTracker(logger),
		creator:     creator,
		redisClient: redisClient,
		db:          db,
	}, nil
}

// Sync 执行一个同步周期
// 拉取失败中止本周期，聚合和事件逻辑全部跳过
func (s *SyncService) Sync(ctx context.Context) error {
	s.logger.Debug("Starting sync cycle")

	// 每日补算触发（24 小时一次）
	if s.shouldPerformDailyCleanup() {
		s.logger.Info("Performing daily cleanup")
		s.backfill.Reconcile(s.config.Sync.BackfillMaxDays)
		s.lastCleanupTime = s.clock.Now()
	}

	// 小时聚合触发（1 小时一次）
	if s.shouldUpdateHourly() {
		s.logger.Info("Updating today's hourly data")
		if err := s.hourly.Update(); err != nil {
			s.logger.Error("Failed to update hourly data", zap.Error(err))
		}
		s.lastHourlyUpdate = s.clock.Now()
	}

	if err := s.device.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	snapshot, err := s.device.FetchDeviceData(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch device data: %w", err)
	}

	vital := ingest.Extract(snapshot, s.clock.Now())

	if err := s.repo.SaveLatest(vital); err != nil {
		s.logger.Error("Failed to save latest reading", zap.Error(err))
	}
	if err := s.cache.SetLatest(ctx, vital); err != nil {
		s.logger.Warn("Failed to cache latest reading", zap.Error(err))
	}
	if err := s.cache.AppendRecent(ctx, vital); err != nil {
		s.logger.Warn("Failed to append recent reading", zap.Error(err))
	}

	// 按进样间隔进入分钟聚合
	if s.shouldSaveToHistory() {
		if _, err := s.minutes.Process(vital); err != nil {
			s.logger.Error("Failed to process reading", zap.Error(err))
		} else {
			s.lastHistorySaveTime = s.clock.Now()
		}
	}

	// 睡眠事件检测
	if s.config.Events.AutoCreate {
		s.checkSleepTransition(ctx, vital)
	}

	s.logger.Debug("Sync cycle completed")
	return nil
}

// checkSleepTransition 检测睡眠状态翻转并创建事件（带重复抑制）
func (s *SyncService) checkSleepTransition(ctx context.Context, vital models.VitalReading) {
	transition := s.tracker.Observe(vital)
	if transition == nil {
		return
	}

	eventType := models.EventSleepEnd
	if transition.To {
		eventType = models.EventSleepStart
	}

	if !s.creator.ShouldCreate(ctx, eventType) {
		return
	}
	if err := s.creator.Create(ctx, eventType, eventIcon, eventNotes); err != nil {
		s.logger.Error("Failed to create sleep event",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

// Run 持续运行同步循环，直到 ctx 取消
// 单个周期失败只记录日志，循环不会终止
func (s *SyncService) Run(ctx context.Context) error {
	interval := time.Duration(s.config.SyncInterval()) * time.Second
	s.logger.Info("Starting sync loop", zap.Duration("interval", interval))

	for {
		if err := s.Sync(ctx); err != nil {
			s.logger.Error("Sync cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Sync loop interrupted")
			return nil
		case <-time.After(interval):
		}
	}
}

// Stop 优雅关闭：冲刷未完成的分钟桶并释放连接
func (s *SyncService) Stop() {
	if s.minutes.Flush() {
		s.logger.Info("Flushed partial minute bucket on shutdown")
	}
	s.device.Close()
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}
}

func (s *SyncService) shouldPerformDailyCleanup() bool {
	if s.lastCleanupTime.IsZero() {
		return true
	}
	return s.clock.Now().Sub(s.lastCleanupTime) >= dailyCleanupInterval
}

func (s *SyncService) shouldUpdateHourly() bool {
	if s.lastHourlyUpdate.IsZero() {
		return true
	}
	return s.clock.Now().Sub(s.lastHourlyUpdate) >= hourlyUpdateInterval
}

func (s *SyncService) shouldSaveToHistory() bool {
	if s.lastHistorySaveTime.IsZero() {
		return true
	}
	interval := time.Duration(s.config.Sync.HistoryIntervalSeconds) * time.Second
	return s.clock.Now().Sub(s.lastHistorySaveTime) >= interval
}
