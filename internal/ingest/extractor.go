package ingest

import (
	"time"

	"owlet-sync/internal/models"
	"owlet-sync/internal/owlet"
)

// Extract 将设备快照规范化为一条生命体征记录
// 时间戳取采集时刻的 UTC；sock_connected / sock_on 按断开标志取反
func Extract(snapshot *owlet.DeviceSnapshot, now time.Time) models.VitalReading {
	return models.VitalReading{
		Timestamp:         now.UTC(),
		HeartRate:         snapshot.HeartRate,
		OxygenSaturation:  snapshot.OxygenSaturation,
		Oxygen10Average:   snapshot.Oxygen10Average,
		Movement:          snapshot.Movement,
		BatteryPercentage: snapshot.BatteryPercentage,
		BatteryMinutes:    snapshot.BatteryMinutes,
		SignalStrength:    snapshot.SignalStrength,
		SkinTemperature:   snapshot.SkinTemperature,
		SleepState:        snapshot.SleepState,
		SockConnected:     !snapshot.SockDisconnected,
		SockOn:            !snapshot.SockOff,
		LowBattery:        snapshot.LowBatteryAlert,
		HighHeartRate:     snapshot.HighHeartRateAlert,
		LowOxygen:         snapshot.LowOxygenAlert,
	}
}
