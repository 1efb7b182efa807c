package owlet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DeviceSnapshot 一次设备属性快照的强类型视图
// 厂家响应的属性包只在本包内解析，下游代码只依赖这个类型
type DeviceSnapshot struct {
	DSN                string
	HeartRate          *float64
	OxygenSaturation   *float64
	Oxygen10Average    *float64
	Movement           *float64
	BatteryPercentage  *float64
	BatteryMinutes     *float64
	SignalStrength     *float64
	SkinTemperature    *float64
	SleepState         int
	SockDisconnected   bool
	SockOff            bool
	LowBatteryAlert    bool
	HighHeartRateAlert bool
	LowOxygenAlert     bool
}

// Client Owlet 设备 API 客户端
// 认证后缓存 token；拉取失败会使缓存失效，下个周期重新认证
type Client struct {
	httpClient *resty.Client
	region     string
	email      string
	password   string
	logger     *zap.Logger
	token      string
}

// NewClient 创建 Owlet API 客户端
func NewClient(region, email, password, apiBase string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		region:     region,
		email:      email,
		password:   password,
		logger:     logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Region   string `json:"region"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate 登录并缓存 token，已有缓存时直接返回
func (c *Client) Authenticate(ctx context.Context) error {
	if c.token != "" {
		return nil
	}

	var result loginResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: c.email, Password: c.password, Region: c.region}).
		SetResult(&result).
		Post("/login")

	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if resp.StatusCode() != 200 || result.Token == "" {
		return fmt.Errorf("authentication rejected with status %d", resp.StatusCode())
	}

	c.token = result.Token
	c.logger.Info("Successfully authenticated with Owlet API")
	return nil
}

type devicesResponse struct {
	Response []struct {
		Device struct {
			DSN string `json:"dsn"`
		} `json:"device"`
	} `json:"response"`
}

type propertyEntry struct {
	Property struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"property"`
}

// FetchDeviceData 拉取第一台设备的属性快照
// 任何失败都会清掉缓存的 token
func (c *Client) FetchDeviceData(ctx context.Context) (*DeviceSnapshot, error) {
	if c.token == "" {
		return nil, fmt.Errorf("not authenticated")
	}

	var devices devicesResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetResult(&devices).
		Get("/devices")

	if err != nil || resp.StatusCode() != 200 {
		c.token = ""
		if err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
		return nil, fmt.Errorf("device list returned status %d", resp.StatusCode())
	}
	if len(devices.Response) == 0 {
		c.token = ""
		return nil, fmt.Errorf("no devices found")
	}

	dsn := devices.Response[0].Device.DSN
	var entries []propertyEntry
	resp, err = c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetResult(&entries).
		Get("/devices/" + dsn + "/properties")

	if err != nil || resp.StatusCode() != 200 {
		c.token = ""
		if err != nil {
			return nil, fmt.Errorf("failed to fetch device properties: %w", err)
		}
		return nil, fmt.Errorf("device properties returned status %d", resp.StatusCode())
	}

	props := make(map[string]any, len(entries))
	for _, entry := range entries {
		props[strings.ToLower(entry.Property.Name)] = entry.Property.Value
	}

	snapshot := &DeviceSnapshot{
		DSN:                dsn,
		HeartRate:          getFloat(props, "heart_rate"),
		OxygenSaturation:   getFloat(props, "oxygen_saturation"),
		Oxygen10Average:    getFloat(props, "oxygen_10_av"),
		Movement:           getFloat(props, "movement"),
		BatteryPercentage:  getFloat(props, "battery_percentage"),
		BatteryMinutes:     getFloat(props, "battery_minutes"),
		SignalStrength:     getFloat(props, "signal_strength"),
		SkinTemperature:    getFloat(props, "skin_temperature"),
		SleepState:         getInt(props, "sleep_state"),
		SockDisconnected:   getBool(props, "sock_disconnected"),
		SockOff:            getBool(props, "sock_off"),
		LowBatteryAlert:    getBool(props, "low_battery_alert"),
		HighHeartRateAlert: getBool(props, "high_heart_rate_alert"),
		LowOxygenAlert:     getBool(props, "low_oxygen_alert"),
	}

	c.logger.Info("Fetched device snapshot",
		zap.String("dsn", dsn),
		zap.Int("properties", len(props)),
	)
	return snapshot, nil
}

// Close 释放客户端（目前只清理缓存的 token）
func (c *Client) Close() {
	c.token = ""
}

func getFloat(props map[string]any, name string) *float64 {
	raw, ok := props[name]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func getInt(props map[string]any, name string) int {
	if f := getFloat(props, name); f != nil {
		return int(*f)
	}
	return 0
}

func getBool(props map[string]any, name string) bool {
	raw, ok := props[name]
	if !ok || raw == nil {
		return false
	}
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	}
	return false
}
