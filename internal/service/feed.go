package service

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"griffin/internal/metrics"
	"griffin/internal/models"
	"griffin/internal/state"
	"griffin/pkg/utils"
)

// feed.go - граница ингеста: нормализация сырых полей и маршрутизация
// в состояние брокера. HTTP-слой разбирает CSV на поля, сюда приходят
// уже отдельные строки.

// ErrInvalidFormat - полезная нагрузка не разбирается в валидный замер
var ErrInvalidFormat = errors.New("invalid message format")

// Feed принимает сырые замеры от пробников и обновляет реестр состояний
type Feed struct {
	registry *state.Registry
	clock    func() float64
	log      *zap.Logger
}

// NewFeed создаёт сервис ингеста. clock возвращает текущее время в
// секундах epoch.
func NewFeed(registry *state.Registry, clock func() float64, log *zap.Logger) *Feed {
	return &Feed{registry: registry, clock: clock, log: log}
}

// TickResult - подтверждение принятого тика
type TickResult struct {
	Symbol        string  `json:"symbol"`
	Broker        string  `json:"broker"`
	CurrentSpread float64 `json:"current_spread"`
}

// IngestTick обрабатывает один тик котировки.
//
// Символ нормализуется, числовые поля чистятся от мусора пробников
// (запятые, валютные знаки). Временная метка источника игнорируется:
// тик датируется временем приёма сервером, что даёт единую шкалу
// для кросс-брокерного сравнения.
func (f *Feed) IngestTick(broker, rawSymbol, rawBid, rawAsk string) (TickResult, error) {
	broker = strings.TrimSpace(broker)
	symbol := utils.NormalizeSymbol(rawSymbol)
	if broker == "" || symbol == "" {
		metrics.TicksIngested.WithLabelValues("invalid_format").Inc()
		return TickResult{}, ErrInvalidFormat
	}

	bid, err := strconv.ParseFloat(utils.SanitizeNumeric(rawBid), 64)
	if err != nil {
		metrics.TicksIngested.WithLabelValues("invalid_format").Inc()
		return TickResult{}, ErrInvalidFormat
	}
	ask, err := strconv.ParseFloat(utils.SanitizeNumeric(rawAsk), 64)
	if err != nil {
		metrics.TicksIngested.WithLabelValues("invalid_format").Inc()
		return TickResult{}, ErrInvalidFormat
	}

	spread := f.registry.Route(symbol, broker).AddTick(bid, ask, f.clock())
	metrics.TicksIngested.WithLabelValues("success").Inc()

	return TickResult{
		Symbol:        symbol,
		Broker:        broker,
		CurrentSpread: spread,
	}, nil
}

// IngestSlippage обрабатывает замер слиппеджа симулированного ордера.
// Замер для пары без единого тика отбрасывается: сравнивать не с чем.
func (f *Feed) IngestSlippage(broker, rawSymbol, orderType, rawPrice string) error {
	broker = strings.TrimSpace(broker)
	symbol := utils.NormalizeSymbol(rawSymbol)
	if broker == "" || symbol == "" {
		return ErrInvalidFormat
	}

	orderType = strings.ToUpper(strings.TrimSpace(orderType))
	if orderType != models.OrderTypeBuy && orderType != models.OrderTypeSell {
		return ErrInvalidFormat
	}

	price, err := strconv.ParseFloat(utils.SanitizeNumeric(rawPrice), 64)
	if err != nil {
		return ErrInvalidFormat
	}

	b, ok := f.registry.Lookup(symbol, broker)
	if !ok {
		f.log.Debug("slippage sample for unknown pair dropped",
			zap.String("symbol", symbol),
			zap.String("broker", broker),
		)
		return nil
	}

	b.AddSlippage(orderType, price)
	metrics.SlippageSamples.Inc()
	return nil
}

// IngestLatency обрабатывает замер латентности: latency = server_now_ms -
// client_timestamp_ms. Значения вне допустимого диапазона отбрасываются
// на уровне состояния (рассинхрон часов пробника).
func (f *Feed) IngestLatency(broker, rawSymbol, rawClientMS string) error {
	broker = strings.TrimSpace(broker)
	symbol := utils.NormalizeSymbol(rawSymbol)
	if broker == "" || symbol == "" {
		return ErrInvalidFormat
	}

	clientMS, err := strconv.ParseFloat(utils.SanitizeNumeric(rawClientMS), 64)
	if err != nil {
		return ErrInvalidFormat
	}

	b, ok := f.registry.Lookup(symbol, broker)
	if !ok {
		f.log.Debug("latency sample for unknown pair dropped",
			zap.String("symbol", symbol),
			zap.String("broker", broker),
		)
		return nil
	}

	b.AddLatency(f.clock()*1000 - clientMS)
	metrics.LatencySamples.Inc()
	return nil
}

// Snapshot возвращает последний опубликованный аналитический снапшот.
func (f *Feed) Snapshot() models.AnalysisSnapshot {
	return f.registry.Snapshot()
}
