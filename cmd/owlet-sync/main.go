package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"owlet-sync/internal/config"
	"owlet-sync/internal/logger"
	"owlet-sync/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "owlet-sync")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// 配置校验失败直接退出
	if err := cfg.Validate(); err != nil {
		zapLogger.Fatal("Configuration error", zap.Error(err))
	}

	zapLogger.Info("Starting owlet-sync service",
		zap.String("timezone", cfg.Sync.Timezone),
		zap.Int("sync_interval_seconds", cfg.SyncInterval()),
		zap.String("data_dir", cfg.Sync.DataDir),
		zap.Bool("auto_create_events", cfg.Events.AutoCreate),
	)

	// 创建服务
	syncService, err := service.NewSyncService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create sync service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 在 goroutine 中启动服务
	done := make(chan error, 1)
	go func() {
		done <- syncService.Run(ctx)
	}()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			zapLogger.Error("Sync loop exited", zap.Error(err))
		}
	}

	// 优雅关闭
	syncService.Stop()
	zapLogger.Info("Service stopped")
}
