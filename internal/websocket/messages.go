package websocket

import "griffin/internal/models"

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeSpreadUpdate - текущий спред пары (symbol, broker)
	// Отправляется на каждый принятый валидный тик
	MessageTypeSpreadUpdate MessageType = "spread_update"

	// MessageTypeFullAnalysis - полный аналитический снапшот
	// Отправляется после каждого прохода оркестратора
	MessageTypeFullAnalysis MessageType = "full_analysis"
)

// SpreadUpdateMessage - сообщение о свежем спреде
type SpreadUpdateMessage struct {
	Type          MessageType `json:"type"`
	Broker        string      `json:"broker"`
	Symbol        string      `json:"symbol"`
	CurrentSpread float64     `json:"current_spread"`
}

// FullAnalysisMessage - сообщение с полным снапшотом анализа
type FullAnalysisMessage struct {
	Type MessageType             `json:"type"`
	Data models.AnalysisSnapshot `json:"data"`
}

// NewSpreadUpdateMessage создает сообщение обновления спреда
func NewSpreadUpdateMessage(broker, symbol string, currentSpread float64) *SpreadUpdateMessage {
	return &SpreadUpdateMessage{
		Type:          MessageTypeSpreadUpdate,
		Broker:        broker,
		Symbol:        symbol,
		CurrentSpread: currentSpread,
	}
}

// NewFullAnalysisMessage создает сообщение полного снапшота
func NewFullAnalysisMessage(snapshot models.AnalysisSnapshot) *FullAnalysisMessage {
	return &FullAnalysisMessage{
		Type: MessageTypeFullAnalysis,
		Data: snapshot,
	}
}
