package aggregator

import (
	"math"

	"owlet-sync/internal/models"
)

// AggregateRecords 对一组分钟记录计算聚合统计（小时级和天级共用）
// data_points 为各记录原始读数数量之和，不是分钟记录条数
// 某指标在全部记录中缺失时不输出该指标
func AggregateRecords(records []models.MinuteRecord) models.Aggregate {
	agg := models.Aggregate{}
	var heartRates, oxygenSats, temperatures []float64

	for _, rec := range records {
		agg.DataPoints += rec.DataPoints
		if rec.HeartRateAvg != nil {
			heartRates = append(heartRates, *rec.HeartRateAvg)
		}
		if rec.OxygenSaturationAvg != nil {
			oxygenSats = append(oxygenSats, *rec.OxygenSaturationAvg)
		}
		if rec.SkinTemperatureAvg != nil {
			temperatures = append(temperatures, *rec.SkinTemperatureAvg)
		}
	}

	agg.HeartRate = metricStats(heartRates, 1)
	agg.OxygenSaturation = metricStats(oxygenSats, 1)
	agg.SkinTemperature = metricStats(temperatures, 2)
	return agg
}

// metricStats 数值序列的 avg/min/max，序列为空时返回 nil
func metricStats(values []float64, decimals int) *models.MetricStats {
	if len(values) == 0 {
		return nil
	}

	sum := 0.0
	min := values[0]
	max := values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	avg := roundTo(sum/float64(len(values)), decimals)
	return &models.MetricStats{Avg: &avg, Min: &min, Max: &max}
}

// mean 平均值（指定小数位），序列为空时返回 nil
func mean(values []float64, decimals int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := roundTo(sum/float64(len(values)), decimals)
	return &avg
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
