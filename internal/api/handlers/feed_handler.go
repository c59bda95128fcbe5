package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"griffin/internal/service"
)

// Лимит тела запроса: CSV от пробников укладывается в десятки байт,
// всё сильно больше - мусор
const maxIngestBodyBytes = 1024

// Статусы ответов ингест-endpoints
const (
	statusSuccess        = "success"
	statusInvalidFormat  = "invalid_format"
	statusError          = "error"
	statusSlippageSample = "slippage_test_received"
	statusLatencySample  = "latency_sample_received"
)

// SpreadBroadcaster рассылает свежие спреды подписчикам стрима
type SpreadBroadcaster interface {
	BroadcastSpreadUpdate(broker, symbol string, currentSpread float64)
}

// FeedHandler обрабатывает ингест от пробников и выдачу снапшота
//
// Пробники шлют plain-text CSV без заголовков:
//
//	POST /tick          broker,symbol,reserved,bid,ask
//	POST /slippage_test broker,symbol,reserved,order_type,price,reserved
//	POST /latency_test  broker,symbol,client_send_time_ms
//
// reserved-поля - исторические позиции протокола пробников,
// игнорируются. Ответ всегда 200 с тегированным статусом: пробник
// не ретраит, разбор статуса нужен только для диагностики.
type FeedHandler struct {
	feed        *service.Feed
	broadcaster SpreadBroadcaster
	log         *zap.Logger
}

// NewFeedHandler создает handler ингеста. broadcaster может быть nil.
func NewFeedHandler(feed *service.Feed, broadcaster SpreadBroadcaster, log *zap.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, broadcaster: broadcaster, log: log}
}

// readCSV читает тело запроса и режет его на поля.
func readCSV(r *http.Request) ([]string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBodyBytes))
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(body)), ","), nil
}

// HandleTick принимает тик котировки: broker,symbol,reserved,bid,ask
func (h *FeedHandler) HandleTick(w http.ResponseWriter, r *http.Request) {
	parts, err := readCSV(r)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusError, "detail": err.Error()})
		return
	}
	if len(parts) != 5 {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusInvalidFormat})
		return
	}

	result, err := h.feed.IngestTick(parts[0], parts[1], parts[3], parts[4])
	if err != nil {
		if errors.Is(err, service.ErrInvalidFormat) {
			respondJSON(w, http.StatusOK, map[string]string{"status": statusInvalidFormat})
			return
		}
		h.log.Error("tick ingest failed", zap.Error(err))
		respondJSON(w, http.StatusOK, map[string]string{"status": statusError, "detail": err.Error()})
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastSpreadUpdate(result.Broker, result.Symbol, result.CurrentSpread)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         statusSuccess,
		"symbol":         result.Symbol,
		"broker":         result.Broker,
		"current_spread": result.CurrentSpread,
	})
}

// HandleSlippageTest принимает замер слиппеджа:
// broker,symbol,reserved,order_type,price,reserved
func (h *FeedHandler) HandleSlippageTest(w http.ResponseWriter, r *http.Request) {
	parts, err := readCSV(r)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusError, "detail": err.Error()})
		return
	}
	if len(parts) != 6 {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusInvalidFormat})
		return
	}

	if err := h.feed.IngestSlippage(parts[0], parts[1], parts[3], parts[4]); err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusInvalidFormat})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": statusSlippageSample})
}

// HandleLatencyTest принимает замер латентности:
// broker,symbol,client_send_time_ms
func (h *FeedHandler) HandleLatencyTest(w http.ResponseWriter, r *http.Request) {
	parts, err := readCSV(r)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusError, "detail": err.Error()})
		return
	}
	if len(parts) != 3 {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusInvalidFormat})
		return
	}

	if err := h.feed.IngestLatency(parts[0], parts[1], parts[2]); err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": statusInvalidFormat})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": statusLatencySample})
}

// HandleLiveAnalysis отдаёт последний опубликованный снапшот анализа.
func (h *FeedHandler) HandleLiveAnalysis(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.feed.Snapshot())
}

// HandleHealth - liveness проба.
func (h *FeedHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
