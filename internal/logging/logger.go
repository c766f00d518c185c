package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dp-cache/filecache/internal/config"
)

const (
	sinkStdout = "stdout"
	sinkFile   = "file"
)

// InitLogger 按 GlobalConfig 构建缓存服务的 JSON 日志。
// LogFilePath 所在目录无法创建时改写 stdout，并带上缓存目录记一条 logger_fallback 警告，
// 方便确认缓存本身仍在哪个目录工作。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	out, sink, sinkErr := openSink(cfg)
	if sinkErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", sinkErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	// 标准 logger 与服务 logger 共用格式和输出。
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if sinkErr != nil {
		logger.WithFields(fallbackFields(cfg, sink)).Warn(sinkErr.Error())
	}
	return logger, nil
}

// fallbackFields 描述降级后的日志去向以及缓存目录。
func fallbackFields(cfg config.GlobalConfig, sink string) logrus.Fields {
	return logrus.Fields{
		"action":       "logger_fallback",
		"sink":         sink,
		"log_file":     cfg.LogFilePath,
		"storage_path": cfg.StoragePath,
	}
}

// openSink 返回日志写入目标及其名称：未配置 LogFilePath 时为 stdout，
// 否则为 lumberjack 滚动文件。
func openSink(cfg config.GlobalConfig) (io.Writer, string, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, sinkStdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stdout, sinkStdout, fmt.Errorf("创建日志目录失败: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, sinkFile, nil
}
