package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig PostgreSQL 配置（事件归档）
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis 配置（实时缓存）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config owlet-sync 服务配置
type Config struct {
	// Owlet 设备 API
	Owlet struct {
		Region   string // 必填
		Email    string // 必填
		Password string // 必填
		APIBase  string
	}

	// 外部事件库（HTTP 端点）
	Events struct {
		Endpoint   string
		AutoCreate bool // 是否自动创建睡眠事件
	}

	// 同步周期配置
	Sync struct {
		Timezone               string // IANA 时区名，无效时退回 UTC
		IntervalSeconds        int    // 轮询间隔（秒），0 时使用 IntervalMinutes
		IntervalMinutes        int
		HistoryIntervalSeconds int // 分钟聚合的最小进样间隔（秒）
		RetentionHours         int // 实时缓存的保留时长（小时）
		BackfillMaxDays        int // 补算回溯窗口（天）
		DataDir                string
	}

	Redis RedisConfig

	// 事件归档（可选）
	Archive struct {
		Enabled  bool
		Database DatabaseConfig
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Owlet.Region = getEnv("OWLET_REGION", "")
	cfg.Owlet.Email = getEnv("OWLET_EMAIL", "")
	cfg.Owlet.Password = getEnv("OWLET_PASSWORD", "")
	cfg.Owlet.APIBase = getEnv("OWLET_API_BASE", "https://ads-field.aylanetworks.com/apiv1")

	cfg.Events.Endpoint = getEnv("EVENTS_ENDPOINT", "http://localhost/events.php")
	cfg.Events.AutoCreate = getEnv("AUTO_CREATE_EVENTS", "true") == "true"

	cfg.Sync.Timezone = getEnv("TIMEZONE", "UTC")
	cfg.Sync.IntervalSeconds = getEnvInt("SYNC_INTERVAL_SECONDS", 60)
	cfg.Sync.IntervalMinutes = getEnvInt("SYNC_INTERVAL_MINUTES", 1)
	cfg.Sync.HistoryIntervalSeconds = getEnvInt("HISTORY_INTERVAL_SECONDS", 60)
	cfg.Sync.RetentionHours = getEnvInt("RETENTION_HOURS", 48)
	cfg.Sync.BackfillMaxDays = getEnvInt("BACKFILL_MAX_DAYS", 30)
	cfg.Sync.DataDir = getEnv("DATA_DIR", "data")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Archive.Enabled = getEnv("ARCHIVE_ENABLED", "false") == "true"
	cfg.Archive.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Archive.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Archive.Database.User = getEnv("DB_USER", "postgres")
	cfg.Archive.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Archive.Database.Database = getEnv("DB_NAME", "baby_monitor")
	cfg.Archive.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// Validate 校验必填配置（失败时服务不应启动）
func (c *Config) Validate() error {
	if c.Owlet.Email == "" {
		return fmt.Errorf("missing required config: OWLET_EMAIL")
	}
	if c.Owlet.Password == "" {
		return fmt.Errorf("missing required config: OWLET_PASSWORD")
	}
	if c.Owlet.Region == "" {
		return fmt.Errorf("missing required config: OWLET_REGION")
	}
	return nil
}

// SyncInterval 轮询间隔（秒）
// SYNC_INTERVAL_SECONDS 为 0 时退回 SYNC_INTERVAL_MINUTES
func (c *Config) SyncInterval() int {
	if c.Sync.IntervalSeconds > 0 {
		return c.Sync.IntervalSeconds
	}
	return c.Sync.IntervalMinutes * 60
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
