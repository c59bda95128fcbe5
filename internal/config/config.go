package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Analysis AnalysisConfig
	Buffers  BufferConfig
	Scoring  ScoringConfig
	Ingest   IngestConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host     string
	Port     int
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// AnalysisConfig - параметры аналитического прохода
type AnalysisConfig struct {
	// Период оркестратора (анализ + скоринг + публикация снапшота)
	Interval time.Duration

	// Фид считается замороженным после этого количества секунд тишины
	FeedFreezeThreshold float64

	// Окно сверки глитча с тиками лидера, миллисекунды
	LeaderFollowerWindowMS float64

	// Минимальное отклонение от средней цены лидера для подтверждения глитча, пипсы
	GlitchVerificationThresholdPips float64

	// Множитель стандартного отклонения в динамическом детекторе глитчей
	DynamicThresholdStdFactor float64

	// Окно проверки заморозки котировок (тиков) и порог доли уникальных цен
	QuoteFreezeTicksWindow     int
	QuoteFreezeUniquenessRatio float64

	// Множитель decay штрафа и интервал его применения, секунды
	PenaltyDecayRate     float64
	PenaltyDecayInterval float64
}

// BufferConfig - ёмкости кольцевых буферов BrokerState
type BufferConfig struct {
	Ticks            int
	Spreads          int
	TickIntervals    int
	Slippages        int
	Latencies        int
	VerifiedGlitches int
	ScoreHistory     int
}

// ScoringConfig - веса итоговой оценки
//
// Сумма весов обязана быть равна 1.0 - это проверяется при загрузке.
type ScoringConfig struct {
	WeightAuthenticity    float64
	WeightIntegrity       float64
	WeightExecution       float64
	WeightSpreadLevel     float64
	WeightSpreadStability float64
	WeightFeedStability   float64
	WeightQuoteFreeze     float64
	WeightTPS             float64
}

// IngestConfig - параметры границы ингеста
type IngestConfig struct {
	// Допустимый диапазон латентности, миллисекунды (вне диапазона - отбрасываем)
	MinLatencyMS float64
	MaxLatencyMS float64

	// Rate limit на клиента для ингест-endpoints (0 = без лимита)
	RateLimitPerClient float64
	RateLimitBurst     float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения.
//
// Значения по умолчанию - откалиброванные константы движка анализа;
// переопределение через окружение предназначено для нагрузочных стендов,
// а не для тонкой подстройки в production.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			Port:     getEnvAsInt("SERVER_PORT", 5000),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Analysis: AnalysisConfig{
			Interval:                        getEnvAsDuration("ANALYSIS_INTERVAL", time.Second),
			FeedFreezeThreshold:             getEnvAsFloat("FEED_FREEZE_THRESHOLD", 10.0),
			LeaderFollowerWindowMS:          getEnvAsFloat("LEADER_FOLLOWER_WINDOW_MS", 750),
			GlitchVerificationThresholdPips: getEnvAsFloat("GLITCH_VERIFICATION_THRESHOLD_PIPS", 10.0),
			DynamicThresholdStdFactor:       getEnvAsFloat("DYNAMIC_THRESHOLD_STD_FACTOR", 3.5),
			QuoteFreezeTicksWindow:          getEnvAsInt("QUOTE_FREEZE_TICKS_WINDOW", 50),
			QuoteFreezeUniquenessRatio:      getEnvAsFloat("QUOTE_FREEZE_UNIQUENESS_RATIO", 0.1),
			PenaltyDecayRate:                getEnvAsFloat("PENALTY_DECAY_RATE", 0.995),
			PenaltyDecayInterval:            getEnvAsFloat("PENALTY_DECAY_INTERVAL", 1.0),
		},
		Buffers: BufferConfig{
			Ticks:            getEnvAsInt("TICK_BUFFER_SIZE", 500),
			Spreads:          getEnvAsInt("SPREAD_BUFFER_SIZE", 200),
			TickIntervals:    getEnvAsInt("TICK_INTERVAL_BUFFER_SIZE", 200),
			Slippages:        getEnvAsInt("SLIPPAGE_BUFFER_SIZE", 200),
			Latencies:        getEnvAsInt("LATENCY_BUFFER_SIZE", 100),
			VerifiedGlitches: getEnvAsInt("VERIFIED_GLITCH_BUFFER_SIZE", 100),
			// 8 часов * 3600 секунд - таймфрейм-анализ до 8h
			ScoreHistory: getEnvAsInt("MAX_SCORE_HISTORY_RECORDS", 8*3600),
		},
		Scoring: ScoringConfig{
			WeightAuthenticity:    getEnvAsFloat("WEIGHT_AUTHENTICITY", 0.30),
			WeightIntegrity:       getEnvAsFloat("WEIGHT_INTEGRITY", 0.25),
			WeightExecution:       getEnvAsFloat("WEIGHT_EXECUTION", 0.15),
			WeightSpreadLevel:     getEnvAsFloat("WEIGHT_SPREAD_LEVEL", 0.05),
			WeightSpreadStability: getEnvAsFloat("WEIGHT_SPREAD_STABILITY", 0.05),
			WeightFeedStability:   getEnvAsFloat("WEIGHT_FEED_STABILITY", 0.10),
			WeightQuoteFreeze:     getEnvAsFloat("WEIGHT_QUOTE_FREEZE", 0.05),
			WeightTPS:             getEnvAsFloat("WEIGHT_TPS", 0.05),
		},
		Ingest: IngestConfig{
			MinLatencyMS:       0,
			MaxLatencyMS:       getEnvAsFloat("MAX_LATENCY_MS", 5000),
			RateLimitPerClient: getEnvAsFloat("INGEST_RATE_LIMIT", 500),
			RateLimitBurst:     getEnvAsFloat("INGEST_RATE_BURST", 1000),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WeightSum возвращает сумму всех весов.
func (s ScoringConfig) WeightSum() float64 {
	return s.WeightAuthenticity + s.WeightIntegrity + s.WeightExecution +
		s.WeightSpreadLevel + s.WeightSpreadStability + s.WeightFeedStability +
		s.WeightQuoteFreeze + s.WeightTPS
}

// validate проверяет диапазоны параметров
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Analysis.Interval <= 0 {
		return fmt.Errorf("ANALYSIS_INTERVAL must be positive, got %v", c.Analysis.Interval)
	}

	if c.Analysis.FeedFreezeThreshold <= 0 {
		return fmt.Errorf("FEED_FREEZE_THRESHOLD must be positive, got %v", c.Analysis.FeedFreezeThreshold)
	}

	if c.Analysis.PenaltyDecayRate <= 0 || c.Analysis.PenaltyDecayRate >= 1 {
		return fmt.Errorf("PENALTY_DECAY_RATE must be in (0, 1), got %v", c.Analysis.PenaltyDecayRate)
	}

	if c.Analysis.PenaltyDecayInterval <= 0 {
		return fmt.Errorf("PENALTY_DECAY_INTERVAL must be positive, got %v", c.Analysis.PenaltyDecayInterval)
	}

	if c.Analysis.QuoteFreezeTicksWindow < 2 {
		return fmt.Errorf("QUOTE_FREEZE_TICKS_WINDOW must be at least 2, got %d", c.Analysis.QuoteFreezeTicksWindow)
	}

	// Все буферы обязаны быть положительными - нулевой буфер молча
	// выключил бы соответствующий KPI
	buffers := map[string]int{
		"TICK_BUFFER_SIZE":            c.Buffers.Ticks,
		"SPREAD_BUFFER_SIZE":          c.Buffers.Spreads,
		"TICK_INTERVAL_BUFFER_SIZE":   c.Buffers.TickIntervals,
		"SLIPPAGE_BUFFER_SIZE":        c.Buffers.Slippages,
		"LATENCY_BUFFER_SIZE":         c.Buffers.Latencies,
		"VERIFIED_GLITCH_BUFFER_SIZE": c.Buffers.VerifiedGlitches,
		"MAX_SCORE_HISTORY_RECORDS":   c.Buffers.ScoreHistory,
	}
	for name, size := range buffers {
		if size <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, size)
		}
	}

	// Инвариант скоринга: сумма весов равна 1.0
	if sum := c.Scoring.WeightSum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}

	if c.Ingest.MaxLatencyMS <= c.Ingest.MinLatencyMS {
		return fmt.Errorf("MAX_LATENCY_MS must exceed MIN_LATENCY_MS, got %v", c.Ingest.MaxLatencyMS)
	}

	return nil
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
