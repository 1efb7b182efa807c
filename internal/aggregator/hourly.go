package aggregator

import (
	"sort"
	"time"

	"owlet-sync/internal/models"
	"owlet-sync/internal/repository"
	"owlet-sync/internal/timeutil"

	"go.uber.org/zap"
)

// HourlyUpdater 小时聚合器
// 对刚结束的一小时窗口 [now-1h, now] 聚合当天的分钟记录，
// 按小时 upsert 到当天进行中的小时文档；预期每小时触发一次
type HourlyUpdater struct {
	tz     *timeutil.Converter
	repo   *repository.FileRepository
	clock  timeutil.Clock
	logger *zap.Logger
}

// NewHourlyUpdater 创建小时聚合器
func NewHourlyUpdater(tz *timeutil.Converter, repo *repository.FileRepository, clock timeutil.Clock, logger *zap.Logger) *HourlyUpdater {
	return &HourlyUpdater{tz: tz, repo: repo, clock: clock, logger: logger}
}

// Update 聚合过去一小时并更新当天小时文档
// 窗口内没有分钟记录时为空操作
func (u *HourlyUpdater) Update() error {
	now := u.clock.Now()
	today := u.tz.LocalDate(now)
	windowStart := now.Add(-time.Hour)

	records := u.repo.LoadMinutes(today)

	// 窗口两端均为闭区间
	var window []models.MinuteRecord
	for _, rec := range records {
		if !rec.Timestamp.Before(windowStart) && !rec.Timestamp.After(now) {
			window = append(window, rec)
		}
	}
	if len(window) == 0 {
		u.logger.Debug("No minute records in past hour", zap.String("date", today))
		return nil
	}

	// 槽位按窗口起点的本地小时标注，触发延迟时仍指向数据实际所在的小时
	hour := u.tz.ToLocal(windowStart).Hour()
	startUTC := windowStart.UTC()
	endUTC := now.UTC()
	bucket := models.HourBucket{
		Hour:           hour,
		TimestampStart: &startUTC,
		TimestampEnd:   &endUTC,
		Aggregate:      AggregateRecords(window),
	}

	doc := u.repo.LoadTodaysHourly()
	if doc.Date != today {
		// 文档里的日期已不是今天，整体重置
		doc = models.TodaysHourly{Date: today}
	}

	// 按小时 upsert，再按小时升序排序
	replaced := false
	for i := range doc.Hourly {
		if doc.Hourly[i].Hour == hour {
			doc.Hourly[i] = bucket
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Hourly = append(doc.Hourly, bucket)
	}
	sort.Slice(doc.Hourly, func(i, j int) bool {
		return doc.Hourly[i].Hour < doc.Hourly[j].Hour
	})

	doc.LastUpdate = now.UTC()
	doc.TotalHours = len(doc.Hourly)

	if err := u.repo.SaveTodaysHourly(doc); err != nil {
		return err
	}

	u.logger.Info("Hourly bucket updated",
		zap.String("date", today),
		zap.Int("hour", hour),
		zap.Int("data_points", bucket.DataPoints),
	)
	return nil
}
