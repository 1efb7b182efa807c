package models

import "time"

// MetricStats 一个数值序列的 avg/min/max 统计
type MetricStats struct {
	Avg *float64 `json:"avg"`
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Aggregate 一组分钟记录的聚合结果（小时级和天级共用）
// 序列为空的指标不输出对应字段
type Aggregate struct {
	DataPoints       int          `json:"data_points"`
	HeartRate        *MetricStats `json:"heart_rate,omitempty"`
	OxygenSaturation *MetricStats `json:"oxygen_saturation,omitempty"`
	SkinTemperature  *MetricStats `json:"skin_temperature,omitempty"`
}

// HourBucket 一个小时槽位的聚合
// DailySummary.Hourly 固定 24 个槽位，空槽位只有 hour 和 data_points
// TodaysHourly 中的槽位额外带有窗口起止时间
type HourBucket struct {
	Hour           int        `json:"hour"`
	TimestampStart *time.Time `json:"timestamp_start,omitempty"`
	TimestampEnd   *time.Time `json:"timestamp_end,omitempty"`
	Aggregate
}

// DailySummary 一个日历日（本地时区）的最终汇总文档
// 文件存在即视为该日已汇总，不会被覆盖
type DailySummary struct {
	Date            string       `json:"date"`
	TotalDataPoints int          `json:"total_data_points"`
	FirstTimestamp  time.Time    `json:"first_timestamp"`
	LastTimestamp   time.Time    `json:"last_timestamp"`
	Daily           Aggregate    `json:"daily"`
	Hourly          []HourBucket `json:"hourly"`
}

// TodaysHourly 当天进行中的小时聚合文档
// 其中的 Date 与当天不一致时整个文档重置
type TodaysHourly struct {
	Date       string       `json:"date"`
	Hourly     []HourBucket `json:"hourly"`
	LastUpdate time.Time    `json:"last_update"`
	TotalHours int          `json:"total_hours"`
}

// SleepEvent 外部事件库中的睡眠事件
type SleepEvent struct {
	ID    int64     `json:"id"`
	Type  string    `json:"type"`
	Icon  string    `json:"icon"`
	Time  time.Time `json:"time"`
	Notes string    `json:"notes"`
}

// 睡眠事件类型
const (
	EventSleepStart = "Sleep Start"
	EventSleepEnd   = "Sleep End"
)
