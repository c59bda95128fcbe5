package scoring

import (
	"math"

	"griffin/internal/analysis"
	"griffin/internal/config"
	"griffin/internal/models"
	"griffin/internal/state"
	"griffin/pkg/utils"
)

// scoring.go - нормализация KPI в суб-оценки и итоговый quality score
//
// Каждая суб-оценка приводится к [0, 100], итог - взвешенная сумма
// (веса валидируются конфигом: сумма ровно 1.0). Спредовые суб-оценки
// кросс-брокерные: считаются относительно лучшего активного брокера
// символа, поэтому скоринг работает на уровне символа, а не брокера.

// Таймфреймы усреднения истории качества, секунды
var timeframes = map[string]float64{
	"15m": 15 * 60,
	"30m": 30 * 60,
	"1h":  60 * 60,
	"4h":  4 * 60 * 60,
	"8h":  8 * 60 * 60,
}

const (
	// Длина sparkline в снапшоте
	sparklineLength = 30

	// Количество последних подтверждённых глитчей в снапшоте
	glitchLogLength = 5

	// TPS, дающий полную суб-оценку частоты тиков
	tpsTarget = 25.0
)

// Engine считает оценки брокеров одного символа
type Engine struct {
	weights config.ScoringConfig
	cfg     config.AnalysisConfig
}

// NewEngine создаёт скоринговый движок.
func NewEngine(weights config.ScoringConfig, cfg config.AnalysisConfig) *Engine {
	return &Engine{weights: weights, cfg: cfg}
}

// ScoreSymbol считает KPI и оценки всех брокеров символа, добавляет
// свежий quality score в историю каждого брокера и возвращает готовые
// отчёты для снапшота.
func (e *Engine) ScoreSymbol(brokers []*state.BrokerState, now float64) map[string]*models.KPIReport {
	reports := make(map[string]*models.KPIReport, len(brokers))

	// Шаг 1: KPI каждого брокера по согласованному снимку
	activeSpreads := make([]analysis.SpreadKPIs, 0, len(brokers))
	for _, b := range brokers {
		view := b.Snapshot(glitchLogLength)

		base := analysis.ComputeBaseKPIs(view, now, e.cfg.FeedFreezeThreshold)
		spread := analysis.ComputeSpreadKPIs(view)
		auth := analysis.ComputeAuthenticityKPIs(view)
		execRatio := analysis.ComputeExecutionKPI(view)
		uniqueness := analysis.ComputeQuoteFreezeKPI(view, e.cfg.QuoteFreezeTicksWindow)

		reports[view.BrokerName] = &models.KPIReport{
			BrokerName:              view.BrokerName,
			IsLeader:                view.IsLeader,
			FeedStabilityScore:      base.FeedStabilityScore,
			IsFrozen:                base.IsFrozen,
			TPS:                     base.TPS,
			AvgLatencyMS:            base.AvgLatencyMS,
			AvgSpread:               spread.Avg,
			SpreadStdDev:            spread.StdDev,
			MaxSpread:               spread.Max,
			UniquenessRatio:         uniqueness,
			CorrelationWithLeader:   auth.CorrelationWithLeader,
			TickDistributionPValue:  auth.TickDistributionPValue,
			AsymmetricSlippageRatio: execRatio,
			DataIntegrityScore:      100.0 - view.PenaltyScore,
			VerifiedGlitchesLog:     view.VerifiedGlitches,
		}

		if !base.IsFrozen {
			activeSpreads = append(activeSpreads, spread)
		}
	}

	// Шаг 2: кросс-брокерная нормализация спредовых суб-оценок
	e.applySpreadScores(reports, activeSpreads)

	// Шаг 3: остальные суб-оценки, взвешенный итог, история
	for _, b := range brokers {
		report := reports[b.BrokerName()]

		report.ScoreAuthenticity = scoreAuthenticity(
			report.CorrelationWithLeader, report.TickDistributionPValue)
		report.ScoreIntegrity = utils.Clamp(report.DataIntegrityScore, 0, 100)
		report.ScoreExecution = scoreExecution(report.AsymmetricSlippageRatio)
		report.ScoreFeedStability = utils.Clamp(report.FeedStabilityScore, 0, 100)
		report.ScoreQuoteFreeze = scoreQuoteFreeze(report.UniquenessRatio, e.cfg.QuoteFreezeUniquenessRatio)
		report.ScoreTPS = math.Min(float64(report.TPS)/tpsTarget*100, 100)

		report.QualityScore = utils.Clamp(
			report.ScoreAuthenticity*e.weights.WeightAuthenticity+
				report.ScoreIntegrity*e.weights.WeightIntegrity+
				report.ScoreExecution*e.weights.WeightExecution+
				report.ScoreSpreadLevel*e.weights.WeightSpreadLevel+
				report.ScoreSpreadStability*e.weights.WeightSpreadStability+
				report.ScoreFeedStability*e.weights.WeightFeedStability+
				report.ScoreQuoteFreeze*e.weights.WeightQuoteFreeze+
				report.ScoreTPS*e.weights.WeightTPS,
			0, 100)

		b.AddScore(report.QualityScore, now)
		report.TimeframeAverages = b.TimeframeAverages(now, timeframes)
		report.ScoreHistory = b.RecentScores(sparklineLength)
	}

	return reports
}

// applySpreadScores выставляет спредовые суб-оценки относительно лучшего
// активного брокера. Без активных брокеров обе суб-оценки нулевые; нулевой
// avg_spread исключает брокера из поиска лучшего и даёт ему 0.
func (e *Engine) applySpreadScores(reports map[string]*models.KPIReport, active []analysis.SpreadKPIs) {
	if len(active) == 0 {
		for _, r := range reports {
			r.ScoreSpreadLevel = 0
			r.ScoreSpreadStability = 0
		}
		return
	}

	bestSpread, minStdDev := 1.0, 1.0
	haveSpread, haveStd := false, false
	for _, s := range active {
		if s.Avg > 0 && (!haveSpread || s.Avg < bestSpread) {
			bestSpread = s.Avg
			haveSpread = true
		}
		if s.StdDev > 0 && (!haveStd || s.StdDev < minStdDev) {
			minStdDev = s.StdDev
			haveStd = true
		}
	}

	for _, r := range reports {
		if r.AvgSpread > 0 {
			r.ScoreSpreadLevel = utils.Clamp(bestSpread/r.AvgSpread*100, 0, 100)
		} else {
			r.ScoreSpreadLevel = 0
		}
		if r.SpreadStdDev > 0 {
			r.ScoreSpreadStability = utils.Clamp(minStdDev/r.SpreadStdDev*100, 0, 100)
		} else {
			r.ScoreSpreadStability = 0
		}
	}
}

// scoreAuthenticity = бонус корреляции + бонус распределения, каждый до 50.
// Бонус корреляции начинается с corr > 0.95 и растёт линейно до 1.0.
func scoreAuthenticity(corr, pValue float64) float64 {
	correlationBonus := 0.0
	if corr > 0.95 {
		correlationBonus = utils.Clamp01((corr-0.95)/0.05) * 50
	}
	distributionBonus := pValue * 50
	return utils.Clamp(correlationBonus+distributionBonus, 0, 100)
}

// scoreExecution пикует на ratio = 1.0 (симметричный слиппедж) и линейно
// падает до нуля при ratio <= -1 или >= 3.
func scoreExecution(ratio float64) float64 {
	return utils.Clamp((1-math.Min(math.Abs(1-ratio), 2)/2)*100, 0, 100)
}

// scoreQuoteFreeze - бинарная оценка: доля уникальных цен выше порога
// означает живые котировки.
func scoreQuoteFreeze(uniquenessRatio, threshold float64) float64 {
	if uniquenessRatio > threshold {
		return 100
	}
	return 0
}
