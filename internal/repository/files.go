package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"owlet-sync/internal/models"

	"go.uber.org/zap"
)

const (
	latestFile       = "owlet_latest.json"
	todaysHourlyFile = "owlet_todays_hourly.json"
	minutesDir       = "owlet_minutes"
	summariesDir     = "owlet_daily_summaries"
	minutesPrefix    = "owlet_minutes_"
	summaryPrefix    = "owlet_summary_"
)

// FileRepository JSON 文档存储
// 每个命名文档一个文件：最新记录、按日分钟存储、日汇总、当天小时文档
// 读取失败降级为空默认值并记录日志，写入失败返回错误由调用方记录，
// 单次持久化失败不会中断同步周期
type FileRepository struct {
	dataDir string
	logger  *zap.Logger
}

// NewFileRepository 创建文件存储并确保目录存在
func NewFileRepository(dataDir string, logger *zap.Logger) (*FileRepository, error) {
	for _, dir := range []string{dataDir, filepath.Join(dataDir, minutesDir), filepath.Join(dataDir, summariesDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return &FileRepository{dataDir: dataDir, logger: logger}, nil
}

// SaveLatest 保存最新一次生命体征记录（每周期覆盖）
func (r *FileRepository) SaveLatest(v models.VitalReading) error {
	return r.writeJSON(filepath.Join(r.dataDir, latestFile), v)
}

// LoadMinutes 加载某日历日的分钟记录
// 文件不存在返回 nil；无法解码的记录丢弃并记录警告
func (r *FileRepository) LoadMinutes(date string) []models.MinuteRecord {
	path := r.minutesPath(date)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("Failed to read minute store",
				zap.String("date", date),
				zap.Error(err),
			)
		}
		return nil
	}

	// 逐条解码，坏记录丢弃（统一的解析失败策略）
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Error("Failed to decode minute store",
			zap.String("date", date),
			zap.Error(err),
		)
		return nil
	}

	records := make([]models.MinuteRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.MinuteRecord
		if err := json.Unmarshal(item, &rec); err != nil || rec.Timestamp.IsZero() {
			r.logger.Warn("Dropping unparseable minute record",
				zap.String("date", date),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// SaveMinutes 保存某日历日的分钟记录
func (r *FileRepository) SaveMinutes(date string, records []models.MinuteRecord) error {
	return r.writeJSON(r.minutesPath(date), records)
}

// PrependMinute 将一条分钟记录插入到某日存储头部（最新在前）并持久化
func (r *FileRepository) PrependMinute(date string, rec models.MinuteRecord) error {
	records := r.LoadMinutes(date)
	records = append([]models.MinuteRecord{rec}, records...)
	return r.SaveMinutes(date, records)
}

// ListMinuteDates 枚举所有存在分钟存储的日历日（升序）
func (r *FileRepository) ListMinuteDates() []string {
	entries, err := os.ReadDir(filepath.Join(r.dataDir, minutesDir))
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("Failed to list minute stores", zap.Error(err))
		}
		return nil
	}

	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, minutesPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, minutesPrefix), ".json")
		if date != "" {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

// SummaryExists 某日历日是否已有日汇总（文件存在即已汇总）
func (r *FileRepository) SummaryExists(date string) bool {
	_, err := os.Stat(r.summaryPath(date))
	return err == nil
}

// SaveDailySummary 保存日汇总
func (r *FileRepository) SaveDailySummary(summary *models.DailySummary) error {
	return r.writeJSON(r.summaryPath(summary.Date), summary)
}

// LoadDailySummary 加载日汇总，不存在或损坏时返回 nil
func (r *FileRepository) LoadDailySummary(date string) *models.DailySummary {
	var summary models.DailySummary
	if !r.readJSON(r.summaryPath(date), &summary) {
		return nil
	}
	return &summary
}

// LoadTodaysHourly 加载当天小时文档，不存在或损坏时返回空文档
func (r *FileRepository) LoadTodaysHourly() models.TodaysHourly {
	var doc models.TodaysHourly
	r.readJSON(filepath.Join(r.dataDir, todaysHourlyFile), &doc)
	return doc
}

// SaveTodaysHourly 保存当天小时文档
func (r *FileRepository) SaveTodaysHourly(doc models.TodaysHourly) error {
	return r.writeJSON(filepath.Join(r.dataDir, todaysHourlyFile), doc)
}

func (r *FileRepository) minutesPath(date string) string {
	return filepath.Join(r.dataDir, minutesDir, minutesPrefix+date+".json")
}

func (r *FileRepository) summaryPath(date string) string {
	return filepath.Join(r.dataDir, summariesDir, summaryPrefix+date+".json")
}

func (r *FileRepository) readJSON(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("Failed to read document", zap.String("path", path), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		r.logger.Error("Failed to decode document", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

func (r *FileRepository) writeJSON(path string, data any) error {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", path, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", path, err)
	}
	return nil
}
