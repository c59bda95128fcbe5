package models

// KPIReport - полный набор KPI и оценок одного брокера по одному символу.
//
// Имена json-полей - контракт с потребителями снапшота (дашборд,
// WebSocket-клиенты), менять их нельзя.
type KPIReport struct {
	BrokerName string `json:"broker_name"`
	IsLeader   bool   `json:"is_leader"`

	// Базовые KPI
	FeedStabilityScore float64 `json:"feed_stability_score"`
	IsFrozen           bool    `json:"is_frozen"`
	TPS                int     `json:"tps"`
	AvgLatencyMS       float64 `json:"avg_latency_ms"`

	// Спредовые KPI
	AvgSpread    float64 `json:"avg_spread"`
	SpreadStdDev float64 `json:"spread_std_dev"`
	MaxSpread    float64 `json:"max_spread"`

	// Заморозка котировок
	UniquenessRatio float64 `json:"uniqueness_ratio"`

	// Аутентичность
	CorrelationWithLeader  float64 `json:"correlation_with_leader"`
	TickDistributionPValue float64 `json:"tick_distribution_p_value"`

	// Исполнение
	AsymmetricSlippageRatio float64 `json:"asymmetric_slippage_ratio"`

	// Целостность: 100 - penalty_score
	DataIntegrityScore float64 `json:"data_integrity_score"`

	// Последние подтверждённые глитчи (не более 5)
	VerifiedGlitchesLog []VerifiedGlitch `json:"verified_glitches_log"`

	// Суб-оценки, каждая в [0, 100]
	ScoreAuthenticity    float64 `json:"score_authenticity"`
	ScoreIntegrity       float64 `json:"score_integrity"`
	ScoreExecution       float64 `json:"score_execution"`
	ScoreSpreadLevel     float64 `json:"score_spread_level"`
	ScoreSpreadStability float64 `json:"score_spread_stability"`
	ScoreFeedStability   float64 `json:"score_feed_stability"`
	ScoreQuoteFreeze     float64 `json:"score_quote_freeze"`
	ScoreTPS             float64 `json:"score_tps"`

	// Итоговая взвешенная оценка, [0, 100]
	QualityScore float64 `json:"quality_score"`

	// Средние по таймфреймам 15m/30m/1h/4h/8h
	TimeframeAverages map[string]float64 `json:"timeframe_averages"`

	// Последние 30 значений quality_score для sparkline
	ScoreHistory []float64 `json:"score_history"`
}

// AnalysisSnapshot - результат одного аналитического прохода:
// symbol -> broker -> KPI. Строится целиком в стороне от живого состояния
// и публикуется атомарной подменой указателя - читатели никогда не видят
// частично заполненный снапшот.
type AnalysisSnapshot map[string]map[string]*KPIReport
