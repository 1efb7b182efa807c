package aggregator

import (
	"errors"

	"owlet-sync/internal/models"
	"owlet-sync/internal/repository"
	"owlet-sync/internal/timeutil"

	"go.uber.org/zap"
)

// ErrInvalidReading 输入记录缺少时间戳
var ErrInvalidReading = errors.New("invalid reading: missing timestamp")

// MinuteAggregator 分钟聚合器
// 按本地时区分钟桶缓冲原始读数；跨过分钟边界时对上一桶求平均，
// 生成 MinuteRecord 并写入对应日历日的分钟存储
// 仅由单个同步周期串行调用，不做并发保护
type MinuteAggregator struct {
	tz     *timeutil.Converter
	repo   *repository.FileRepository
	logger *zap.Logger

	// 分钟桶缓冲：本地分钟起始 Unix 秒 -> 该分钟的原始读数
	buffers    map[int64][]models.VitalReading
	currentKey int64 // 0 = 尚无打开的桶
}

// NewMinuteAggregator 创建分钟聚合器
func NewMinuteAggregator(tz *timeutil.Converter, repo *repository.FileRepository, logger *zap.Logger) *MinuteAggregator {
	return &MinuteAggregator{
		tz:      tz,
		repo:    repo,
		logger:  logger,
		buffers: make(map[int64][]models.VitalReading),
	}
}

// Process 处理一条读数，返回是否触发了分钟记录落盘
// 当读数落入新的分钟桶时，先关闭上一个桶再缓冲当前读数
func (a *MinuteAggregator) Process(reading models.VitalReading) (bool, error) {
	if reading.Timestamp.IsZero() {
		return false, ErrInvalidReading
	}

	key := a.tz.MinuteKey(reading.Timestamp)

	emitted := false
	if a.currentKey != 0 && key != a.currentKey {
		a.closeBucket(a.currentKey)
		emitted = true
	}

	a.buffers[key] = append(a.buffers[key], reading)
	a.currentKey = key
	return emitted, nil
}

// Flush 关闭当前未完成的分钟桶（优雅关机时调用，避免丢掉最后一分钟）
func (a *MinuteAggregator) Flush() bool {
	if a.currentKey == 0 {
		return false
	}
	a.closeBucket(a.currentKey)
	a.currentKey = 0
	return true
}

// closeBucket 对指定分钟桶求平均并写入按日分钟存储
func (a *MinuteAggregator) closeBucket(key int64) {
	readings := a.buffers[key]
	defer delete(a.buffers, key)

	if len(readings) == 0 {
		return
	}

	var heartRates, oxygenSats, temperatures []float64
	for _, r := range readings {
		if r.HeartRate != nil {
			heartRates = append(heartRates, *r.HeartRate)
		}
		if r.OxygenSaturation != nil {
			oxygenSats = append(oxygenSats, *r.OxygenSaturation)
		}
		if r.SkinTemperature != nil {
			temperatures = append(temperatures, *r.SkinTemperature)
		}
	}

	record := models.MinuteRecord{
		Timestamp:           a.tz.MinuteStart(key),
		HeartRateAvg:        mean(heartRates, 1),
		OxygenSaturationAvg: mean(oxygenSats, 1),
		SkinTemperatureAvg:  mean(temperatures, 2),
		DataPoints:          len(readings),
	}

	date := a.tz.MinuteLocalDate(key)
	if err := a.repo.PrependMinute(date, record); err != nil {
		a.logger.Error("Failed to persist minute record",
			zap.String("date", date),
			zap.Time("minute", record.Timestamp),
			zap.Error(err),
		)
		return
	}

	a.logger.Debug("Minute record persisted",
		zap.String("date", date),
		zap.Time("minute", record.Timestamp),
		zap.Int("data_points", record.DataPoints),
	)
}
