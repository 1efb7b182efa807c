package aggregator

import (
	"sort"

	"owlet-sync/internal/models"
	"owlet-sync/internal/repository"
	"owlet-sync/internal/timeutil"

	"go.uber.org/zap"
)

// Summarizer 日汇总器
// 读取某日历日的全部分钟记录，产出含日级聚合和 24 小时分解的汇总文档
// 自身总是重新计算；"已有汇总则跳过" 的策略由补算调用方负责
type Summarizer struct {
	tz     *timeutil.Converter
	repo   *repository.FileRepository
	logger *zap.Logger
}

// NewSummarizer 创建日汇总器
func NewSummarizer(tz *timeutil.Converter, repo *repository.FileRepository, logger *zap.Logger) *Summarizer {
	return &Summarizer{tz: tz, repo: repo, logger: logger}
}

// Summarize 汇总一个日历日，该日没有分钟数据时返回 nil
func (s *Summarizer) Summarize(date string) *models.DailySummary {
	records := s.repo.LoadMinutes(date)
	if len(records) == 0 {
		return nil
	}

	// 按时间升序排序，首末时间戳取排序后的两端，不依赖存储的插入顺序
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	// 按本地时区的小时分桶
	var hourRecords [24][]models.MinuteRecord
	for _, rec := range records {
		hour := s.tz.ToLocal(rec.Timestamp).Hour()
		hourRecords[hour] = append(hourRecords[hour], rec)
	}

	hourly := make([]models.HourBucket, 0, 24)
	for hour := 0; hour < 24; hour++ {
		bucket := models.HourBucket{Hour: hour}
		if len(hourRecords[hour]) > 0 {
			bucket.Aggregate = AggregateRecords(hourRecords[hour])
		}
		hourly = append(hourly, bucket)
	}

	daily := AggregateRecords(records)

	summary := &models.DailySummary{
		Date:            date,
		TotalDataPoints: daily.DataPoints,
		FirstTimestamp:  records[0].Timestamp,
		LastTimestamp:   records[len(records)-1].Timestamp,
		Daily:           daily,
		Hourly:          hourly,
	}

	s.logger.Info("Daily summary computed",
		zap.String("date", date),
		zap.Int("minute_records", len(records)),
		zap.Int("total_data_points", summary.TotalDataPoints),
	)
	return summary
}
