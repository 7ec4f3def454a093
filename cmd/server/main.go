package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/extractor"
	"scenarioflow/internal/handler"
	"scenarioflow/internal/llm"
	"scenarioflow/internal/logging"
	"scenarioflow/internal/port"
	"scenarioflow/internal/router"
	"scenarioflow/internal/service"
	"scenarioflow/internal/storage"

	// Register completion providers.
	_ "scenarioflow/internal/llm/claude"
	_ "scenarioflow/internal/llm/gemini"
	_ "scenarioflow/internal/llm/openai"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize extractor
	ext := extractor.New(&cfg.Extractor, extractor.NewZapDiagnostics(logger))

	// Initialize completion providers; extraction still works without one.
	var client port.CompletionClient
	client, err = llm.NewFromConfig(&cfg.LLM, logger)
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		logger.Warn("no completion provider configured; generations endpoint disabled")
		client = nil
	case err != nil:
		return fmt.Errorf("failed to initialize completion provider: %w", err)
	}

	// Initialize archive storage
	store, err := storage.New(&cfg.Archive, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize archive storage: %w", err)
	}

	// Initialize services
	extractionSvc := service.NewExtractionService(ext, client, store, &cfg.Archive, logger)

	// Initialize handlers
	extractionH := handler.NewExtractionHandler(extractionSvc, &cfg.Extractor)
	healthH := handler.NewHealthHandler(extractionSvc, cfg.Archive.Enabled)

	// Setup router
	r := router.Setup(&cfg.Server, logger, extractionH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Server.Environment),
			zap.Int("expected_scenarios", ext.ExpectedScenarios()),
			zap.Bool("provider_configured", extractionSvc.ProviderConfigured()))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case sig := <-shutdown:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	return nil
}
