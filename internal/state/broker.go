package state

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"griffin/internal/config"
	"griffin/internal/models"
	"griffin/pkg/utils"
)

// Окно динамического детектора глитчей: статистика изменения цены
// считается по последним glitchDetectionWindow тикам, детектор включается
// только при строго большем количестве тиков в буфере.
const glitchDetectionWindow = 50

// Params - параметры, влияющие на поведение BrokerState при ингесте
type Params struct {
	Buffers config.BufferConfig

	// Множитель std в детекторе глитчей (price_change > mean + factor*std)
	DynamicThresholdStdFactor float64

	// Decay штрафа: penalty *= rate^floor(elapsed/interval)
	PenaltyDecayRate     float64
	PenaltyDecayInterval float64

	// Допустимый диапазон латентности, миллисекунды (границы исключены)
	MinLatencyMS float64
	MaxLatencyMS float64
}

// DefaultParams возвращает параметры с откалиброванными значениями движка.
func DefaultParams() Params {
	return Params{
		Buffers: config.BufferConfig{
			Ticks:            500,
			Spreads:          200,
			TickIntervals:    200,
			Slippages:        200,
			Latencies:        100,
			VerifiedGlitches: 100,
			ScoreHistory:     8 * 3600,
		},
		DynamicThresholdStdFactor: 3.5,
		PenaltyDecayRate:          0.995,
		PenaltyDecayInterval:      1.0,
		MinLatencyMS:              0,
		MaxLatencyMS:              5000,
	}
}

// BrokerState - агрегат состояния одного брокера по одному символу.
//
// Все поля сериализованы собственным мьютексом: ингест может идти из
// многих горутин параллельно, аналитический проход читает и точечно
// мутирует состояние (leader flag, корреляция, подтверждённые глитчи)
// через методы с внутренней блокировкой. Критические секции короткие
// и не содержат точек ожидания.
type BrokerState struct {
	mu sync.Mutex

	brokerName string
	symbol     string

	// Liveness: lastUpdateTime двигается на КАЖДОМ входящем тике,
	// даже невалидном - брокер, спамящий мусорными котировками,
	// не должен выглядеть замороженным
	lastUpdateTime float64
	lastTickTime   float64
	hasLastTick    bool

	ticks           *Ring[models.Tick]
	spreadSamples   *Ring[float64]
	tickIntervals   *Ring[float64]
	slippageSamples *Ring[models.SlippageSample]
	latencySamples  *Ring[float64]
	scoreHistory    *Ring[models.ScorePoint]

	// Подтверждённые глитчи, новейший первым
	verifiedGlitches []models.VerifiedGlitch

	// Кандидаты детектора, очищаются каждым аналитическим проходом
	potentialGlitches []models.PotentialGlitch

	penaltyScore         float64
	lastPenaltyDecayTime float64

	isLeader              bool
	correlationWithLeader float64
	currentSpread         float64

	params Params
}

// NewBrokerState создаёт состояние брокера. now - текущее время в секундах
// epoch; от него стартуют liveness и decay-таймер.
func NewBrokerState(brokerName, symbol string, now float64, params Params) *BrokerState {
	return &BrokerState{
		brokerName:            brokerName,
		symbol:                symbol,
		lastUpdateTime:        now,
		lastPenaltyDecayTime:  now,
		ticks:                 NewRing[models.Tick](params.Buffers.Ticks),
		spreadSamples:         NewRing[float64](params.Buffers.Spreads),
		tickIntervals:         NewRing[float64](params.Buffers.TickIntervals),
		slippageSamples:       NewRing[models.SlippageSample](params.Buffers.Slippages),
		latencySamples:        NewRing[float64](params.Buffers.Latencies),
		scoreHistory:          NewRing[models.ScorePoint](params.Buffers.ScoreHistory),
		correlationWithLeader: 0.5, // нейтральное значение до первой сверки
		params:                params,
	}
}

// BrokerName возвращает имя брокера.
func (b *BrokerState) BrokerName() string { return b.brokerName }

// Symbol возвращает символ.
func (b *BrokerState) Symbol() string { return b.symbol }

// AddTick обрабатывает входящий тик и возвращает актуальный спред в пипсах.
//
// Два раздельных пути:
//  1. Liveness и распределение интервалов обновляются ВСЕГДА, независимо
//     от валидности котировки.
//  2. Ценовая статистика (буфер тиков, спреды, детектор глитчей) - только
//     при ask > bid. Невалидный тик не меняет current spread.
func (b *BrokerState) AddTick(bid, ask, recvTime float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastUpdateTime = recvTime
	if b.hasLastTick {
		b.tickIntervals.Append(recvTime - b.lastTickTime)
	}
	b.lastTickTime = recvTime
	b.hasLastTick = true

	if ask <= bid {
		return b.currentSpread
	}

	spread := utils.PriceToPips(ask - bid)
	b.currentSpread = spread

	priceChange := 0.0
	if last, ok := b.ticks.Last(); ok {
		priceChange = utils.PriceToPips(math.Abs(bid - last.Bid))
	}

	tick := models.Tick{
		Bid:             bid,
		Ask:             ask,
		SpreadPips:      spread,
		Timestamp:       recvTime,
		PriceChangePips: priceChange,
	}
	b.ticks.Append(tick)
	b.spreadSamples.Append(spread)

	b.detectGlitchCandidate(tick)

	return spread
}

// detectGlitchCandidate отмечает тик как кандидата на глитч, если изменение
// цены превышает mean + factor*std по последним glitchDetectionWindow тикам.
// Детектор включается строго после заполнения окна (> 50 тиков).
// ВАЖНО: вызывается под lock'ом.
func (b *BrokerState) detectGlitchCandidate(tick models.Tick) {
	if b.ticks.Len() <= glitchDetectionWindow {
		return
	}

	recent := b.ticks.Tail(glitchDetectionWindow)
	changes := make([]float64, len(recent))
	for i, t := range recent {
		changes[i] = t.PriceChangePips
	}

	mean := stat.Mean(changes, nil)
	std := stat.StdDev(changes, nil)

	if std > 1e-9 && tick.PriceChangePips > mean+b.params.DynamicThresholdStdFactor*std {
		b.potentialGlitches = append(b.potentialGlitches, models.PotentialGlitch{
			Bid:       tick.Bid,
			Timestamp: tick.Timestamp,
		})
	}
}

// AddSlippage записывает симулированный слиппедж против последнего тика.
// No-op при пустом буфере тиков.
//
// Знак: BUY - (ask - requested), SELL - (requested - bid); положительное
// значение означает сдвиг цены против клиента.
func (b *BrokerState) AddSlippage(orderType string, requestedPrice float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	last, ok := b.ticks.Last()
	if !ok {
		return
	}

	var slippagePips float64
	switch orderType {
	case models.OrderTypeBuy:
		slippagePips = utils.PriceToPips(last.Ask - requestedPrice)
	case models.OrderTypeSell:
		slippagePips = utils.PriceToPips(requestedPrice - last.Bid)
	default:
		return
	}

	b.slippageSamples.Append(models.SlippageSample{
		OrderType:    orderType,
		SlippagePips: slippagePips,
	})
}

// AddLatency записывает замер латентности; значения вне (min, max) молча
// отбрасываются.
func (b *BrokerState) AddLatency(latencyMS float64) {
	if latencyMS <= b.params.MinLatencyMS || latencyMS >= b.params.MaxLatencyMS {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.latencySamples.Append(latencyMS)
}

// ApplyPenaltyDecay применяет мультипликативный decay штрафа.
//
// penalty *= rate^floor(elapsed/interval); остаток меньше 1e-5 схлопывается
// в ноль. Повторный вызов внутри одного интервала - no-op, поэтому decay
// идемпотентен в пределах секунды.
func (b *BrokerState) ApplyPenaltyDecay(now float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now - b.lastPenaltyDecayTime
	if elapsed < b.params.PenaltyDecayInterval {
		return
	}

	cycles := math.Floor(elapsed / b.params.PenaltyDecayInterval)
	b.penaltyScore *= math.Pow(b.params.PenaltyDecayRate, cycles)
	if b.penaltyScore < 1e-5 {
		b.penaltyScore = 0
	}
	b.lastPenaltyDecayTime = now
}

// AddVerifiedGlitch регистрирует подтверждённый глитч: запись уходит в
// начало журнала, severity начисляется в penalty score (потолок 100).
// Неположительная severity отбрасывается - детектор таких не производит,
// но инвариант 0 <= penalty <= 100 не должен зависеть от вызывающего.
func (b *BrokerState) AddVerifiedGlitch(g models.PotentialGlitch, severity float64) {
	if severity <= 0 {
		return
	}
	if severity > 25 {
		severity = 25
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry := models.VerifiedGlitch{
		Bid:       g.Bid,
		Timestamp: g.Timestamp,
		Severity:  severity,
		TimeStr:   utils.FormatClock(g.Timestamp),
	}

	// Prepend: новейший первым, ёмкость ограничена
	b.verifiedGlitches = append([]models.VerifiedGlitch{entry}, b.verifiedGlitches...)
	if len(b.verifiedGlitches) > b.params.Buffers.VerifiedGlitches {
		b.verifiedGlitches = b.verifiedGlitches[:b.params.Buffers.VerifiedGlitches]
	}

	b.penaltyScore = math.Min(100, b.penaltyScore+severity)
}

// AddScore добавляет точку в историю качества.
func (b *BrokerState) AddScore(score, timestamp float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scoreHistory.Append(models.ScorePoint{Timestamp: timestamp, Score: score})
}

// TakePotentialGlitches атомарно забирает и очищает список кандидатов.
func (b *BrokerState) TakePotentialGlitches() []models.PotentialGlitch {
	b.mu.Lock()
	defer b.mu.Unlock()

	taken := b.potentialGlitches
	b.potentialGlitches = nil
	return taken
}

// SetLeader выставляет флаг лидера (пересчитывается каждым проходом).
func (b *BrokerState) SetLeader(isLeader bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.isLeader = isLeader
}

// SetCorrelation сохраняет корреляцию с лидером.
func (b *BrokerState) SetCorrelation(corr float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.correlationWithLeader = corr
}

// IsLeader возвращает флаг лидера.
func (b *BrokerState) IsLeader() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isLeader
}

// PenaltyScore возвращает текущий накопленный штраф.
func (b *BrokerState) PenaltyScore() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.penaltyScore
}

// LastUpdateTime возвращает время последнего входящего тика (секунды epoch).
func (b *BrokerState) LastUpdateTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdateTime
}

// TickCount возвращает количество тиков в буфере (метрика выбора лидера).
func (b *BrokerState) TickCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks.Len()
}

// CurrentSpread возвращает последний валидный спред в пипсах.
func (b *BrokerState) CurrentSpread() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentSpread
}

// TicksSnapshot возвращает копию буфера тиков в порядке поступления.
func (b *BrokerState) TicksSnapshot() []models.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks.Values()
}

// TimeframeAverages считает средний quality score по каждому таймфрейму.
// Пустой набор точек внутри таймфрейма даёт 0.0.
func (b *BrokerState) TimeframeAverages(now float64, timeframes map[string]float64) map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float64, len(timeframes))
	for name, seconds := range timeframes {
		sum, count := 0.0, 0
		// История упорядочена по времени - идём с конца и останавливаемся,
		// как только точка выпадает из таймфрейма
		for i := b.scoreHistory.Len() - 1; i >= 0; i-- {
			p := b.scoreHistory.At(i)
			if now-p.Timestamp > seconds {
				break
			}
			sum += p.Score
			count++
		}
		if count > 0 {
			out[name] = sum / float64(count)
		} else {
			out[name] = 0.0
		}
	}
	return out
}

// RecentScores возвращает последние n значений quality score (для sparkline).
func (b *BrokerState) RecentScores(n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	points := b.scoreHistory.Tail(n)
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Score
	}
	return out
}

// View - согласованный снимок состояния брокера для чистых KPI-функций.
// Все слайсы - копии, владение у вызывающего.
type View struct {
	BrokerName            string
	Symbol                string
	LastUpdateTime        float64
	Ticks                 []models.Tick
	Spreads               []float64
	TickIntervals         []float64
	Slippages             []models.SlippageSample
	Latencies             []float64
	PenaltyScore          float64
	IsLeader              bool
	CorrelationWithLeader float64
	CurrentSpread         float64
	VerifiedGlitches      []models.VerifiedGlitch
}

// Snapshot делает полную копию состояния под одним захватом мьютекса.
// glitchLogLimit ограничивает количество записей журнала глитчей в снимке.
func (b *BrokerState) Snapshot(glitchLogLimit int) View {
	b.mu.Lock()
	defer b.mu.Unlock()

	logLen := len(b.verifiedGlitches)
	if glitchLogLimit >= 0 && logLen > glitchLogLimit {
		logLen = glitchLogLimit
	}
	glitches := make([]models.VerifiedGlitch, logLen)
	copy(glitches, b.verifiedGlitches[:logLen])

	return View{
		BrokerName:            b.brokerName,
		Symbol:                b.symbol,
		LastUpdateTime:        b.lastUpdateTime,
		Ticks:                 b.ticks.Values(),
		Spreads:               b.spreadSamples.Values(),
		TickIntervals:         b.tickIntervals.Values(),
		Slippages:             b.slippageSamples.Values(),
		Latencies:             b.latencySamples.Values(),
		PenaltyScore:          b.penaltyScore,
		IsLeader:              b.isLeader,
		CorrelationWithLeader: b.correlationWithLeader,
		CurrentSpread:         b.currentSpread,
		VerifiedGlitches:      glitches,
	}
}
