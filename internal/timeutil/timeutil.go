package timeutil

import (
	"time"

	"go.uber.org/zap"
)

// DateFormat 日历日键格式（本地时区）
const DateFormat = "2006-01-02"

// Clock 可注入的时钟（测试时替换为固定时间）
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewClock 创建系统时钟
func NewClock() Clock { return realClock{} }

// FixedClock 固定时钟（测试用）
type FixedClock struct {
	Time time.Time
}

func (c *FixedClock) Now() time.Time { return c.Time }

// Converter 封装所有本地时区换算
// 桶逻辑（分钟键、小时槽、日历日）只通过它接触时区
type Converter struct {
	loc *time.Location
}

// NewConverter 解析 IANA 时区名并创建 Converter
// 名称无效时退回 UTC 并记录警告
func NewConverter(name string, logger *zap.Logger) *Converter {
	if name == "" {
		return &Converter{loc: time.UTC}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("Invalid timezone, defaulting to UTC",
			zap.String("timezone", name),
			zap.Error(err),
		)
		return &Converter{loc: time.UTC}
	}
	return &Converter{loc: loc}
}

// Location 返回底层时区
func (c *Converter) Location() *time.Location { return c.loc }

// ToLocal UTC 时刻转本地时区
func (c *Converter) ToLocal(t time.Time) time.Time { return t.In(c.loc) }

// ToUTC 任意时刻转 UTC
func (c *Converter) ToUTC(t time.Time) time.Time { return t.UTC() }

// LocalDate 时刻对应的本地日历日（YYYY-MM-DD）
func (c *Converter) LocalDate(t time.Time) string {
	return t.In(c.loc).Format(DateFormat)
}

// MinuteKey 时刻所属本地分钟桶的起始秒（Unix 秒）
func (c *Converter) MinuteKey(t time.Time) int64 {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), 0, 0, c.loc)
	return start.Unix()
}

// MinuteStart 分钟桶键还原为该分钟的起始时刻（UTC）
func (c *Converter) MinuteStart(key int64) time.Time {
	return time.Unix(key, 0).UTC()
}

// MinuteLocalDate 分钟桶键对应的本地日历日
func (c *Converter) MinuteLocalDate(key int64) string {
	return time.Unix(key, 0).In(c.loc).Format(DateFormat)
}
