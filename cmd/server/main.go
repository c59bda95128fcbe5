package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"griffin/internal/analysis"
	"griffin/internal/api"
	"griffin/internal/config"
	"griffin/internal/engine"
	"griffin/internal/scoring"
	"griffin/internal/service"
	"griffin/internal/state"
	"griffin/internal/websocket"
	"griffin/pkg/ratelimit"
	"griffin/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Реестр состояний брокеров
	params := state.Params{
		Buffers:                   cfg.Buffers,
		DynamicThresholdStdFactor: cfg.Analysis.DynamicThresholdStdFactor,
		PenaltyDecayRate:          cfg.Analysis.PenaltyDecayRate,
		PenaltyDecayInterval:      cfg.Analysis.PenaltyDecayInterval,
		MinLatencyMS:              cfg.Ingest.MinLatencyMS,
		MaxLatencyMS:              cfg.Ingest.MaxLatencyMS,
	}
	registry := state.NewRegistry(params, utils.NowSeconds)

	// WebSocket hub
	hub := websocket.NewHub(logger.Named("stream"))
	go hub.Run()

	// Оркестратор анализа
	orchestrator := engine.New(
		registry,
		analysis.NewEngine(cfg.Analysis, logger.Named("analysis")),
		scoring.NewEngine(cfg.Scoring, cfg.Analysis),
		hub,
		cfg.Analysis.Interval,
		utils.NowSeconds,
		logger.Named("engine"),
	)

	ctx, cancelAnalysis := context.WithCancel(context.Background())
	go orchestrator.Run(ctx)

	// Rate limiter ингеста (0 = выключен)
	var limiter *ratelimit.KeyedLimiter
	if cfg.Ingest.RateLimitPerClient > 0 {
		limiter = ratelimit.NewKeyedLimiter(cfg.Ingest.RateLimitPerClient, cfg.Ingest.RateLimitBurst)
	}

	// HTTP роутер
	router := api.SetupRoutes(&api.Dependencies{
		Feed:    service.NewFeed(registry, utils.NowSeconds, logger.Named("ingest")),
		Hub:     hub,
		Limiter: limiter,
		Log:     logger.Named("http"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		var srvErr error
		if cfg.Server.UseHTTPS {
			srvErr = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			srvErr = server.ListenAndServe()
		}
		if srvErr != nil && srvErr != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(srvErr))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	cancelAnalysis()
	hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
