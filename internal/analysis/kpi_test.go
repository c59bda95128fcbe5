package analysis

import (
	"math"
	"testing"

	"griffin/internal/models"
	"griffin/internal/state"
)

func TestComputeBaseKPIs(t *testing.T) {
	now := 1000.0
	view := state.View{
		LastUpdateTime: now - 4,
		Ticks: []models.Tick{
			{Timestamp: now - 2.0},
			{Timestamp: now - 0.8},
			{Timestamp: now - 0.3},
		},
		Latencies: []float64{100, 200, 300},
	}

	kpis := ComputeBaseKPIs(view, now, 10.0)

	if got, want := kpis.FeedStabilityScore, 80.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("feed stability = %v, want %v", got, want)
	}
	if kpis.IsFrozen {
		t.Error("4s of silence must not count as frozen with 10s threshold")
	}
	if kpis.TPS != 2 {
		t.Errorf("tps = %d, want 2 (ticks within last second)", kpis.TPS)
	}
	if got, want := kpis.AvgLatencyMS, 200.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("avg latency = %v, want %v", got, want)
	}
}

func TestComputeBaseKPIsFrozen(t *testing.T) {
	now := 1000.0
	view := state.View{LastUpdateTime: now - 25}

	kpis := ComputeBaseKPIs(view, now, 10.0)

	if !kpis.IsFrozen {
		t.Error("25s of silence must be frozen with 10s threshold")
	}
	if kpis.FeedStabilityScore != 0 {
		t.Errorf("stability floors at 0, got %v", kpis.FeedStabilityScore)
	}
	if kpis.AvgLatencyMS != 0 {
		t.Errorf("no latency samples must give 0, got %v", kpis.AvgLatencyMS)
	}
}

func TestComputeSpreadKPIs(t *testing.T) {
	if got := ComputeSpreadKPIs(state.View{}); got != (SpreadKPIs{}) {
		t.Errorf("empty window must give zeros, got %+v", got)
	}

	single := ComputeSpreadKPIs(state.View{Spreads: []float64{1.5}})
	if single.Avg != 1.5 || single.StdDev != 0 || single.Max != 1.5 {
		t.Errorf("single sample: %+v", single)
	}

	got := ComputeSpreadKPIs(state.View{Spreads: []float64{1.0, 2.0, 3.0}})
	if got.Avg != 2.0 {
		t.Errorf("avg = %v, want 2.0", got.Avg)
	}
	if got.Max != 3.0 {
		t.Errorf("max = %v, want 3.0", got.Max)
	}
	if math.Abs(got.StdDev-1.0) > 1e-9 {
		t.Errorf("sample std = %v, want 1.0", got.StdDev)
	}
}

func TestComputeQuoteFreezeKPI(t *testing.T) {
	window := 50

	// Короткая история нейтральна
	short := state.View{Ticks: make([]models.Tick, window/2-1)}
	if got := ComputeQuoteFreezeKPI(short, window); got != 1.0 {
		t.Errorf("short history ratio = %v, want neutral 1.0", got)
	}

	// Замороженные котировки: один уникальный bid на всё окно
	frozen := state.View{Ticks: make([]models.Tick, window)}
	for i := range frozen.Ticks {
		frozen.Ticks[i].Bid = 1.10000
	}
	if got := ComputeQuoteFreezeKPI(frozen, window); math.Abs(got-0.02) > 1e-9 {
		t.Errorf("frozen quotes ratio = %v, want 0.02", got)
	}

	// Живые котировки: все bid различны
	live := state.View{Ticks: make([]models.Tick, window)}
	for i := range live.Ticks {
		live.Ticks[i].Bid = 1.10000 + float64(i)*0.00001
	}
	if got := ComputeQuoteFreezeKPI(live, window); got != 1.0 {
		t.Errorf("live quotes ratio = %v, want 1.0", got)
	}
}

func TestComputeAuthenticityKPIsSampleGate(t *testing.T) {
	below := state.View{
		CorrelationWithLeader: 0.97,
		TickIntervals:         make([]float64, minNormalitySamples-1),
	}
	got := ComputeAuthenticityKPIs(below)
	if got.TickDistributionPValue != 0.5 {
		t.Errorf("below sample gate p = %v, want neutral 0.5", got.TickDistributionPValue)
	}
	if got.CorrelationWithLeader != 0.97 {
		t.Errorf("correlation passthrough = %v, want 0.97", got.CorrelationWithLeader)
	}

	// Ровно на границе тест применяется; константные интервалы - вырожденный
	// вход, даёт максимально подозрительный 0.0
	at := state.View{TickIntervals: make([]float64, minNormalitySamples)}
	for i := range at.TickIntervals {
		at.TickIntervals[i] = 0.05
	}
	if got := ComputeAuthenticityKPIs(at); got.TickDistributionPValue != 0.0 {
		t.Errorf("constant intervals p = %v, want 0.0", got.TickDistributionPValue)
	}
}

func TestComputeExecutionKPI(t *testing.T) {
	slips := func(values ...float64) state.View {
		v := state.View{}
		for _, s := range values {
			v.Slippages = append(v.Slippages, models.SlippageSample{SlippagePips: s})
		}
		return v
	}

	// 10 и меньше замеров - нейтрально
	ten := make([]float64, 10)
	for i := range ten {
		ten[i] = 5.0
	}
	if got := ComputeExecutionKPI(slips(ten...)); got != 1.0 {
		t.Errorf("10 samples ratio = %v, want neutral 1.0", got)
	}

	// Симметричный слиппедж: средние величины равны, ratio = 1
	sym := make([]float64, 0, 12)
	for i := 0; i < 6; i++ {
		sym = append(sym, 2.0, -2.0)
	}
	if got := ComputeExecutionKPI(slips(sym...)); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("symmetric slippage ratio = %v, want 1.0", got)
	}

	// Перекос против клиента: средний минус у клиента вдвое больше плюса
	skew := make([]float64, 0, 12)
	for i := 0; i < 6; i++ {
		skew = append(skew, 4.0, -2.0)
	}
	if got := ComputeExecutionKPI(slips(skew...)); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("skewed slippage ratio = %v, want 2.0", got)
	}

	// Слиппедж только против клиента
	onlyNeg := make([]float64, 11)
	for i := range onlyNeg {
		onlyNeg[i] = 3.0
	}
	if got := ComputeExecutionKPI(slips(onlyNeg...)); got != 100.0 {
		t.Errorf("one-sided slippage ratio = %v, want 100.0", got)
	}

	// Нулевой слиппедж (идеальное исполнение) нейтрален
	zeros := make([]float64, 11)
	if got := ComputeExecutionKPI(slips(zeros...)); got != 1.0 {
		t.Errorf("zero slippage ratio = %v, want 1.0", got)
	}
}
