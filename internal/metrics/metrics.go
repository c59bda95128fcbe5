package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus, общие для всего сервиса

var (
	// TicksIngested - принятые тики по статусу обработки
	TicksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "griffin",
		Subsystem: "ingest",
		Name:      "ticks_total",
		Help:      "Total ingested ticks by processing status",
	}, []string{"status"})

	// SlippageSamples - принятые замеры слиппеджа
	SlippageSamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "griffin",
		Subsystem: "ingest",
		Name:      "slippage_samples_total",
		Help:      "Total ingested slippage samples",
	})

	// LatencySamples - принятые замеры латентности
	LatencySamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "griffin",
		Subsystem: "ingest",
		Name:      "latency_samples_total",
		Help:      "Total ingested latency samples",
	})

	// RateLimited - запросы, отбитые rate limiter'ом
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "griffin",
		Subsystem: "ingest",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by the per-client rate limiter",
	})

	// AnalysisDuration - длительность полного аналитического прохода
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "griffin",
		Subsystem: "analysis",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a full analysis and scoring pass",
		Buckets:   prometheus.DefBuckets,
	})

	// ActiveBrokers - активные (не замороженные) брокеры по символу
	ActiveBrokers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "griffin",
		Subsystem: "analysis",
		Name:      "active_brokers",
		Help:      "Number of non-frozen brokers per symbol",
	}, []string{"symbol"})

	// VerifiedGlitches - подтверждённые глитчи по символу
	VerifiedGlitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "griffin",
		Subsystem: "analysis",
		Name:      "verified_glitches_total",
		Help:      "Total glitches confirmed against the leader feed",
	}, []string{"symbol"})

	// StreamClients - подключённые WebSocket-клиенты
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "griffin",
		Subsystem: "stream",
		Name:      "clients",
		Help:      "Currently connected WebSocket clients",
	})

	// StreamDropped - сообщения, отброшенные из-за медленных клиентов
	StreamDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "griffin",
		Subsystem: "stream",
		Name:      "dropped_messages_total",
		Help:      "Messages dropped because a client send buffer was full",
	})
)
