package analysis

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"griffin/internal/config"
	"griffin/internal/models"
	"griffin/internal/state"
	"griffin/pkg/utils"
)

// engine.go - кросс-брокерный аналитический проход по одному символу
//
// Единственное место, где состояние одного брокера читается ради мутации
// другого: выбор лидера, корреляция фолловеров с ним и сверка кандидатов
// на глитч с ценами лидера. Проход выполняется одной горутиной
// оркестратора; блокировки берутся per-broker через методы BrokerState,
// перечисление брокеров детерминировано (реестр отдаёт их в сортированном
// порядке).

// Engine выполняет leader/follower-анализ
type Engine struct {
	cfg config.AnalysisConfig
	log *zap.Logger
}

// NewEngine создаёт аналитический движок.
func NewEngine(cfg config.AnalysisConfig, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// SymbolSummary - итог прохода по символу (для логов и метрик)
type SymbolSummary struct {
	ActiveBrokers    int
	Leader           string
	VerifiedGlitches int
}

// AnalyzeSymbol проводит один проход по брокерам символа:
//
//  1. Фильтр живости: брокеры без тиков дольше freeze threshold
//     исключаются из сравнения.
//  2. Меньше двух активных - кросс-проверка невозможна, корреляция
//     нейтральная (0.5).
//  3. Лидер - активный брокер с самым большим буфером тиков (при ничьей
//     первый в сортированном перечислении).
//  4. Каждый фолловер коррелируется с лидером на выровненных рядах,
//     его кандидаты на глитч сверяются с ценами лидера в окне +-750 мс.
//
// Кандидаты на глитч очищаются у всех активных брокеров в каждом проходе,
// какой бы веткой проход ни завершился - иначе у брокера, не попавшего в
// сверку, список рос бы без ограничения.
func (e *Engine) AnalyzeSymbol(brokers []*state.BrokerState, now float64) SymbolSummary {
	var summary SymbolSummary

	active := make([]*state.BrokerState, 0, len(brokers))
	for _, b := range brokers {
		b.SetLeader(false)
		if now-b.LastUpdateTime() <= e.cfg.FeedFreezeThreshold {
			active = append(active, b)
		}
	}
	summary.ActiveBrokers = len(active)

	if len(active) < 2 {
		for _, b := range active {
			b.SetCorrelation(0.5)
			b.TakePotentialGlitches()
		}
		return summary
	}

	leader := active[0]
	for _, b := range active[1:] {
		if b.TickCount() > leader.TickCount() {
			leader = b
		}
	}
	leader.SetLeader(true)
	summary.Leader = leader.BrokerName()

	leaderTicks := leader.TicksSnapshot()
	if len(leaderTicks) == 0 {
		// Сравнивать не с чем - только чистим кандидатов
		for _, b := range active {
			b.TakePotentialGlitches()
		}
		return summary
	}

	for _, follower := range active {
		if follower == leader {
			continue
		}
		summary.VerifiedGlitches += e.analyzeFollower(leader, leaderTicks, follower, now)
	}

	leader.SetCorrelation(1.0)
	leader.TakePotentialGlitches()

	return summary
}

// analyzeFollower коррелирует фолловера с лидером и сверяет его кандидатов
// на глитч. Возвращает количество подтверждённых глитчей.
func (e *Engine) analyzeFollower(leader *state.BrokerState, leaderTicks []models.Tick, follower *state.BrokerState, now float64) int {
	followerTicks := follower.TicksSnapshot()
	if len(followerTicks) == 0 {
		follower.SetCorrelation(0.0)
		follower.TakePotentialGlitches()
		return 0
	}

	x, y := alignBidSeries(leaderTicks, followerTicks)
	if len(x) < 10 || pointwiseEqual(x, y) {
		// Слишком короткое пересечение либо идентичные ряды - доверяем
		follower.SetCorrelation(1.0)
		follower.TakePotentialGlitches()
		return 0
	}

	follower.SetCorrelation(pearson(x, y))

	verified := 0
	for _, glitch := range follower.TakePotentialGlitches() {
		if e.verifyGlitch(leaderTicks, follower, glitch) {
			verified++
		}
	}

	if verified > 0 {
		e.log.Info("verified glitches against leader",
			zap.String("symbol", follower.Symbol()),
			zap.String("broker", follower.BrokerName()),
			zap.String("leader", leader.BrokerName()),
			zap.Int("count", verified),
		)
	}
	return verified
}

// verifyGlitch сверяет кандидата с ценами лидера в окне +-window мс.
// Без тиков лидера в окне кандидат пропускается (не подтверждён и не
// опровергнут). Отклонение больше порога подтверждает глитч с
// severity = min(deviation/5, 25).
func (e *Engine) verifyGlitch(leaderTicks []models.Tick, follower *state.BrokerState, glitch models.PotentialGlitch) bool {
	var window []float64
	for _, t := range leaderTicks {
		if math.Abs(t.Timestamp-glitch.Timestamp)*1000 <= e.cfg.LeaderFollowerWindowMS {
			window = append(window, t.Bid)
		}
	}
	if len(window) == 0 {
		return false
	}

	avgLeaderPrice := stat.Mean(window, nil)
	deviationPips := utils.PriceToPips(math.Abs(glitch.Bid - avgLeaderPrice))

	if deviationPips <= e.cfg.GlitchVerificationThresholdPips {
		return false
	}

	severity := math.Min(deviationPips/5, 25)
	follower.AddVerifiedGlitch(glitch, severity)
	return true
}
