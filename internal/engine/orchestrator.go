package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"griffin/internal/analysis"
	"griffin/internal/metrics"
	"griffin/internal/models"
	"griffin/internal/scoring"
	"griffin/internal/state"
)

// orchestrator.go - периодический цикл анализа
//
// Одна горутина раз в interval прогоняет по каждому символу
// кросс-брокерный анализ, decay штрафов и скоринг, затем атомарно
// публикует собранный снапшот и рассылает его стримом. Паника внутри
// прохода не роняет цикл: следующий тик таймера запускает новый проход.

// Broadcaster рассылает готовый снапшот подписчикам стрима
type Broadcaster interface {
	BroadcastFullAnalysis(snapshot models.AnalysisSnapshot)
}

// Orchestrator управляет циклом анализа
type Orchestrator struct {
	registry    *state.Registry
	analysis    *analysis.Engine
	scoring     *scoring.Engine
	broadcaster Broadcaster
	interval    time.Duration
	clock       func() float64
	log         *zap.Logger
}

// New создаёт оркестратор. broadcaster может быть nil - тогда снапшот
// только публикуется в реестр.
func New(
	registry *state.Registry,
	analysisEngine *analysis.Engine,
	scoringEngine *scoring.Engine,
	broadcaster Broadcaster,
	interval time.Duration,
	clock func() float64,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		analysis:    analysisEngine,
		scoring:     scoringEngine,
		broadcaster: broadcaster,
		interval:    interval,
		clock:       clock,
		log:         log,
	}
}

// Run крутит цикл анализа до отмены контекста.
func (o *Orchestrator) Run(ctx context.Context) {
	o.log.Info("analysis loop started", zap.Duration("interval", o.interval))

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info("analysis loop stopped")
			return
		case <-ticker.C:
			o.RunOnce()
		}
	}
}

// RunOnce выполняет один полный проход: анализ, decay, скоринг,
// публикация, рассылка.
func (o *Orchestrator) RunOnce() {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("analysis pass panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	now := o.clock()

	snapshot := models.AnalysisSnapshot{}
	for symbol, brokers := range o.registry.EnumerateBySymbol() {
		summary := o.analysis.AnalyzeSymbol(brokers, now)

		metrics.ActiveBrokers.WithLabelValues(symbol).Set(float64(summary.ActiveBrokers))
		if summary.VerifiedGlitches > 0 {
			metrics.VerifiedGlitches.WithLabelValues(symbol).Add(float64(summary.VerifiedGlitches))
		}

		// Decay до скоринга: integrity в снапшоте считается от уже
		// ослабленного штрафа
		for _, b := range brokers {
			b.ApplyPenaltyDecay(now)
		}

		snapshot[symbol] = o.scoring.ScoreSymbol(brokers, now)
	}

	o.registry.PublishSnapshot(snapshot)
	if o.broadcaster != nil {
		o.broadcaster.BroadcastFullAnalysis(snapshot)
	}

	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
}
