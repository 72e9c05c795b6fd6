package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 入库记录数据库配置
type Config struct {
	Type         string // 目前只支持sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DefaultConfig data目录下的SQLite文件
func DefaultConfig() *Config {
	return &Config{
		Type:         "sqlite",
		DSN:          "data/campusdoc.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		MaxLifetime:  time.Hour,
	}
}

// 超过该耗时的SQL记为慢查询
const slowQueryThreshold = 200 * time.Millisecond

// Open 连接数据库并迁移表结构，cfg和log可以为nil
func Open(cfg *Config, log *logrus.Logger) (*gorm.DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := tunePool(db, cfg); err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	log.WithField("dsn", cfg.DSN).Info("Database connection established successfully")
	return db, nil
}

func dialectorFor(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case "", "sqlite":
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
}

// gormLogger 只把警告及以上的GORM日志转给logrus
func gormLogger(log *logrus.Logger) logger.Interface {
	return logger.New(&logrusWriter{log}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func tunePool(db *gorm.DB, cfg *Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	}
	return nil
}

// Close 关闭底层连接，db为nil时什么也不做
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

// AutoMigrate 迁移全部模型
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.IngestRecord{})
}

// ensureDir 为数据库文件创建父目录，内存库和file:形式的DSN跳过
func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	if dir := filepath.Dir(dsn); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// logrusWriter 实现logger.Writer
type logrusWriter struct {
	logger *logrus.Logger
}

func (w *logrusWriter) Printf(format string, args ...interface{}) {
	w.logger.WithField("component", "gorm").Warnf(format, args...)
}
