package aggregator

import (
	"time"

	"owlet-sync/internal/repository"
	"owlet-sync/internal/timeutil"

	"go.uber.org/zap"
)

// Backfill 补算调节器
// 扫描所有按日分钟存储，为回溯窗口内还没有日汇总的日期生成汇总
// 已存在的汇总永不覆盖，分钟存储永不删除
type Backfill struct {
	tz         *timeutil.Converter
	summarizer *Summarizer
	repo       *repository.FileRepository
	clock      timeutil.Clock
	logger     *zap.Logger
}

// NewBackfill 创建补算调节器
func NewBackfill(tz *timeutil.Converter, summarizer *Summarizer, repo *repository.FileRepository, clock timeutil.Clock, logger *zap.Logger) *Backfill {
	return &Backfill{tz: tz, summarizer: summarizer, repo: repo, clock: clock, logger: logger}
}

// Reconcile 为缺失汇总的日期生成汇总，返回生成数量
// 只处理已结束的日历日：当天（及之后）的分钟存储还在增长，不能定格成汇总
// maxDays 之前的日期跳过
func (b *Backfill) Reconcile(maxDays int) int {
	now := b.clock.Now().In(b.tz.Location())
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.tz.Location())

	generated := 0
	for _, date := range b.repo.ListMinuteDates() {
		dayStart, err := time.ParseInLocation(timeutil.DateFormat, date, b.tz.Location())
		if err != nil {
			b.logger.Warn("Skipping minute store with unparseable date",
				zap.String("date", date),
				zap.Error(err),
			)
			continue
		}

		if !dayStart.Before(todayStart) {
			continue
		}
		// 按日历日比较回溯窗口，跨夏令时的天数不受小时差影响
		if dayStart.AddDate(0, 0, maxDays).Before(todayStart) {
			continue
		}
		if b.repo.SummaryExists(date) {
			continue
		}

		summary := b.summarizer.Summarize(date)
		if summary == nil {
			continue
		}
		if err := b.repo.SaveDailySummary(summary); err != nil {
			b.logger.Error("Failed to save daily summary",
				zap.String("date", date),
				zap.Error(err),
			)
			continue
		}
		generated++
	}

	if generated > 0 {
		b.logger.Info("Backfill generated summaries", zap.Int("generated", generated))
	}
	return generated
}
