package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка логирования
//
// Назначение:
// Инициализация и настройка структурированного логирования через zap.
//
// Функции:
// - InitLogger: создать и настроить logger
//   * Выбор формата (json, console)
//   * Уровни: debug, info, warn, error
//
// Logger передаётся явно через конструкторы (dependency injection),
// глобальный zap.L() не используется.

// InitLogger создаёт настроенный zap logger.
//
// Параметры:
//   - level: минимальный уровень логирования (debug/info/warn/error)
//   - format: формат вывода ("json" для production, "console" для разработки)
//
// Возвращает ошибку при неизвестном уровне или формате.
func InitLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info", "":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %q", level)
	}

	cfg := zap.NewProductionConfig()
	switch strings.ToLower(format) {
	case "json", "":
		cfg.Encoding = "json"
	case "console", "text":
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
