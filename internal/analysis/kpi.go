package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"griffin/internal/state"
)

// kpi.go - чистые функции расчёта KPI по снимку состояния брокера
//
// Все функции работают с state.View (копия под одним захватом мьютекса)
// и не имеют побочных эффектов - порядок вызова не важен, тестируются
// без поднятого реестра.

// BaseKPIs - живость фида, частота тиков, латентность
type BaseKPIs struct {
	FeedStabilityScore float64
	IsFrozen           bool
	TPS                int
	AvgLatencyMS       float64
}

// ComputeBaseKPIs считает базовые KPI.
//
// feed_stability = max(0, 100 - 5 * секунд тишины); заморозка - тишина
// дольше freezeThreshold; TPS - тики за последнюю секунду.
func ComputeBaseKPIs(v state.View, now, freezeThreshold float64) BaseKPIs {
	silence := now - v.LastUpdateTime

	tps := 0
	for i := len(v.Ticks) - 1; i >= 0; i-- {
		if v.Ticks[i].Timestamp <= now-1 {
			break
		}
		tps++
	}

	avgLatency := 0.0
	if len(v.Latencies) > 0 {
		avgLatency = stat.Mean(v.Latencies, nil)
	}

	return BaseKPIs{
		FeedStabilityScore: math.Max(0, 100-silence*5),
		IsFrozen:           silence > freezeThreshold,
		TPS:                tps,
		AvgLatencyMS:       avgLatency,
	}
}

// SpreadKPIs - статистика по окну спредов
type SpreadKPIs struct {
	Avg    float64
	StdDev float64
	Max    float64
}

// ComputeSpreadKPIs считает спредовые KPI; пустое окно даёт нули.
func ComputeSpreadKPIs(v state.View) SpreadKPIs {
	if len(v.Spreads) == 0 {
		return SpreadKPIs{}
	}

	maxSpread := v.Spreads[0]
	for _, s := range v.Spreads[1:] {
		if s > maxSpread {
			maxSpread = s
		}
	}

	stdDev := 0.0
	if len(v.Spreads) > 1 {
		stdDev = stat.StdDev(v.Spreads, nil)
	}

	return SpreadKPIs{
		Avg:    stat.Mean(v.Spreads, nil),
		StdDev: stdDev,
		Max:    maxSpread,
	}
}

// ComputeQuoteFreezeKPI возвращает долю уникальных bid в последних window
// тиках. Меньше половины окна - считаем, что данных мало, и возвращаем
// нейтральную 1.0 (брокер не наказывается за короткую историю).
func ComputeQuoteFreezeKPI(v state.View, window int) float64 {
	n := len(v.Ticks)
	if n > window {
		n = window
	}
	if n < window/2 {
		return 1.0
	}

	recent := v.Ticks[len(v.Ticks)-n:]
	unique := make(map[float64]struct{}, n)
	for _, t := range recent {
		unique[t.Bid] = struct{}{}
	}
	return float64(len(unique)) / float64(n)
}

// AuthenticityKPIs - корреляция с лидером и p-value распределения интервалов
type AuthenticityKPIs struct {
	CorrelationWithLeader  float64
	TickDistributionPValue float64
}

// ComputeAuthenticityKPIs считает KPI аутентичности.
// Тест распределения применяется только при достаточной выборке
// интервалов; до этого p-value нейтрально (0.5).
func ComputeAuthenticityKPIs(v state.View) AuthenticityKPIs {
	pValue := 0.5
	if len(v.TickIntervals) >= minNormalitySamples {
		pValue = NormalityPValue(v.TickIntervals)
	}

	return AuthenticityKPIs{
		CorrelationWithLeader:  v.CorrelationWithLeader,
		TickDistributionPValue: pValue,
	}
}

// ComputeExecutionKPI возвращает коэффициент асимметрии слиппеджа.
//
// Сырой знак: положительный слиппедж - против клиента. Для KPI группы
// инвертируются: "positive client" - выгода клиента (сырой < 0).
// Значение 1.0 - симметричное (честное) исполнение; больше единицы -
// перекос в пользу брокера. Меньше 11 замеров - нейтральная 1.0.
func ComputeExecutionKPI(v state.View) float64 {
	if len(v.Slippages) <= 10 {
		return 1.0
	}

	var posSum, negSum float64
	var posN, negN int
	for _, s := range v.Slippages {
		switch {
		case s.SlippagePips < -1e-9:
			posSum += s.SlippagePips
			posN++
		case s.SlippagePips > 1e-9:
			negSum += s.SlippagePips
			negN++
		}
	}

	avgPositiveClient := 0.0
	if posN > 0 {
		avgPositiveClient = math.Abs(posSum / float64(posN))
	}
	avgNegativeClient := 0.0
	if negN > 0 {
		avgNegativeClient = math.Abs(negSum / float64(negN))
	}

	switch {
	case avgPositiveClient > 1e-9:
		return avgNegativeClient / avgPositiveClient
	case avgNegativeClient > 1e-9:
		// Слиппедж только против клиента - предельно асимметрично
		return 100.0
	default:
		return 1.0
	}
}
