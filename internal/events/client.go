package events

import (
	"context"
	"fmt"
	"time"

	"owlet-sync/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client 外部睡眠事件库的 HTTP 客户端
// GET 返回事件列表（最新在前），POST 创建单个事件
type Client struct {
	httpClient *resty.Client
	endpoint   string
	logger     *zap.Logger
}

// NewClient 创建事件库客户端
func NewClient(endpoint string, logger *zap.Logger) *Client {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		endpoint:   endpoint,
		logger:     logger,
	}
}

// Recent 获取事件列表（最新在前）
func (c *Client) Recent(ctx context.Context) ([]models.SleepEvent, error) {
	var events []models.SleepEvent
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&events).
		Get(c.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to query event store: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("event store returned status %d", resp.StatusCode())
	}
	return events, nil
}

// Create 创建一个事件
func (c *Client) Create(ctx context.Context, event models.SleepEvent) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		Post(c.endpoint)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("event store returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
