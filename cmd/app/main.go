package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"competitor-ad-studio/internal/config"
	"competitor-ad-studio/internal/domain/ports/adapter"
	"competitor-ad-studio/internal/domain/ports/repository"
	"competitor-ad-studio/internal/infra/api"
	"competitor-ad-studio/internal/infra/backend"
	"competitor-ad-studio/internal/infra/history"
	"competitor-ad-studio/internal/infra/logging"
	"competitor-ad-studio/internal/infra/metrics"
	red "competitor-ad-studio/internal/infra/redis"
	"competitor-ad-studio/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "development mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Backend client ----
	client, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	if err != nil {
		log.Fatalf("backend client: %v", err)
	}

	// ---- Scrape history (redis when configured, in-memory otherwise) ----
	var historyRepo repository.ScrapeHistoryRepository = history.NewMemoryStore()
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		historyRepo = red.NewHistoryStore(redisClient)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("scrape history backed by redis")
	}

	// ---- Reload-signal notifier ----
	var notifier adapter.CompetitorNotifier = &backend.NoopNotifier{Log: logger}
	if cfg.Backend.WebhookURL != "" {
		notifier = backend.NewWebhookNotifier(cfg.Backend.WebhookURL, logger)
	}

	// ---- Use cases ----
	genUC := usecase.NewGenerationUseCase(client, cfg.Generation, logger)
	defer genUC.Close()
	scrapeUC := usecase.NewScrapeUseCase(client, notifier, historyRepo, cfg.Scrape, logger)
	defer scrapeUC.Close()

	// ---- HTTP surface ----
	srv := api.NewServer(genUC, scrapeUC, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(cfg.Server.APIKey),
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server exited")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("stopped")
}
