package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/fyerfyer/campusdoc-tutor/config"
	"github.com/fyerfyer/campusdoc-tutor/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default ./config.yaml)")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	logger, closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logger.Info("Starting CampusDoc Tutor...")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      application.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 优雅关闭
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Errorf("Failed to start server: %v", err)
		return
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return
	}

	logger.Info("Server exited")
}

// setupLogger 设置日志系统，配置了日志文件时同时写入标准输出和滚动文件
func setupLogger(cfg config.LogConfig) (*logrus.Logger, func(), error) {
	if cfg.File == "" {
		return middleware.ConfigureLogger(cfg.Level, os.Stdout), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	logger := middleware.ConfigureLogger(cfg.Level, io.MultiWriter(os.Stdout, rotator))
	return logger, func() { _ = rotator.Close() }, nil
}
