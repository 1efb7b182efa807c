package models

import "time"

// 睡眠状态枚举（设备上报的 sleep_state 属性）
const (
	SleepStateUnknown = 0
	SleepStateAwake   = 1
	SleepStateAsleep  = 2
)

// VitalReading 一次设备快照提取出的生命体征记录
// 时间戳为 UTC；数值字段缺失时为 nil
type VitalReading struct {
	Timestamp         time.Time `json:"timestamp"`
	HeartRate         *float64  `json:"heart_rate"`
	OxygenSaturation  *float64  `json:"oxygen_saturation"`
	Oxygen10Average   *float64  `json:"oxygen_10_av"`
	Movement          *float64  `json:"movement"`
	BatteryPercentage *float64  `json:"battery_percentage"`
	BatteryMinutes    *float64  `json:"battery_minutes"`
	SignalStrength    *float64  `json:"signal_strength"`
	SkinTemperature   *float64  `json:"skin_temperature"`
	SleepState        int       `json:"sleep_state"`
	SockConnected     bool      `json:"sock_connected"`
	SockOn            bool      `json:"sock_on"`
	LowBattery        bool      `json:"low_battery"`
	HighHeartRate     bool      `json:"high_heart_rate"`
	LowOxygen         bool      `json:"low_oxygen"`
}

// IsAsleep 判断该记录是否表示入睡（以设备自身的分类为准）
func (v *VitalReading) IsAsleep() bool {
	return v.SleepState == SleepStateAsleep
}

// MinuteRecord 一分钟内所有原始记录的聚合
// Timestamp 为该分钟的起始时刻（UTC）
type MinuteRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	HeartRateAvg        *float64  `json:"heart_rate_avg"`
	OxygenSaturationAvg *float64  `json:"oxygen_saturation_avg"`
	SkinTemperatureAvg  *float64  `json:"skin_temperature_avg,omitempty"`
	DataPoints          int       `json:"data_points"`
}
