package models

// Tick - одна валидная котировка (ask > bid), хранится в кольцевом буфере
type Tick struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`

	// Спред на момент тика, пипсы
	SpreadPips float64 `json:"spread"`

	// Серверное время приёма, секунды epoch. Клиентским меткам времени
	// не доверяем - анализ опирается только на recv time.
	Timestamp float64 `json:"timestamp"`

	// Абсолютное изменение bid относительно предыдущего тика, пипсы
	// (0 для первого тика в буфере)
	PriceChangePips float64 `json:"price_change"`
}

// PotentialGlitch - кандидат на глитч, отмеченный динамическим детектором.
// Живёт только до ближайшего аналитического прохода.
type PotentialGlitch struct {
	Bid       float64 `json:"bid"`
	Timestamp float64 `json:"timestamp"`
}

// VerifiedGlitch - глитч, подтверждённый сверкой с лидером
type VerifiedGlitch struct {
	Bid       float64 `json:"bid"`
	Timestamp float64 `json:"timestamp"`

	// Тяжесть в диапазоне (0, 25], начисляется в penalty score
	Severity float64 `json:"severity"`

	// Локальное время HH:MM:SS для журнала на дашборде
	TimeStr string `json:"time_str"`
}

// Типы ордеров для слиппедж-замеров
const (
	OrderTypeBuy  = "BUY"
	OrderTypeSell = "SELL"
)

// SlippageSample - один замер симулированного слиппеджа
//
// Конвенция знака: положительное значение - брокер сдвинул цену против
// клиента, отрицательное - в пользу клиента.
type SlippageSample struct {
	OrderType    string  `json:"type"`
	SlippagePips float64 `json:"slippage_pips"`
}

// ScorePoint - точка истории качества (для таймфрейм-средних и sparkline)
type ScorePoint struct {
	Timestamp float64 `json:"timestamp"`
	Score     float64 `json:"score"`
}
