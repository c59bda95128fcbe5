package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"griffin/internal/api/handlers"
	"griffin/internal/api/middleware"
	"griffin/internal/service"
	"griffin/internal/websocket"
	"griffin/pkg/ratelimit"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Feed    *service.Feed
	Hub     *websocket.Hub
	Limiter *ratelimit.KeyedLimiter
	Log     *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
//	POST /tick               - тик котировки (CSV от пробника)
//	POST /slippage_test      - замер слиппеджа (CSV)
//	POST /latency_test       - замер латентности (CSV)
//	GET  /api/live_analysis  - последний снапшот анализа
//	GET  /healthz            - liveness проба
//	GET  /metrics            - Prometheus метрики
//	GET  /ws/stream          - WebSocket стрим (spread_update, full_analysis)
//
// Middleware: Recovery и Logging на всех маршрутах, CORS для браузерного
// дашборда, RateLimit - только на ингесте.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.Logging(deps.Log))
	router.Use(middleware.CORS)

	var broadcaster handlers.SpreadBroadcaster
	if deps.Hub != nil {
		broadcaster = deps.Hub
	}
	feedHandler := handlers.NewFeedHandler(deps.Feed, broadcaster, deps.Log)

	// Ингест под per-client rate limit'ом
	ingest := router.NewRoute().Subrouter()
	if deps.Limiter != nil {
		ingest.Use(middleware.RateLimit(deps.Limiter))
	}
	ingest.HandleFunc("/tick", feedHandler.HandleTick).Methods(http.MethodPost)
	ingest.HandleFunc("/slippage_test", feedHandler.HandleSlippageTest).Methods(http.MethodPost)
	ingest.HandleFunc("/latency_test", feedHandler.HandleLatencyTest).Methods(http.MethodPost)

	router.HandleFunc("/api/live_analysis", feedHandler.HandleLiveAnalysis).Methods(http.MethodGet)
	router.HandleFunc("/healthz", feedHandler.HandleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if deps.Hub != nil {
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, w, r)
		})
	}

	return router
}
