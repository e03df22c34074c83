package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/legalens/internal/api"
	"github.com/dgallion1/legalens/internal/app"
	"github.com/dgallion1/legalens/internal/config"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize extraction, LLM, retrieval and storage.
	a, err := app.New(ctx, cfg, log, app.Options{LLM: true, Database: true, Storage: true})
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Agent:   a.Agent,
		Storage: a.Storage,
		Stats:   a.Stats,
		Model:   a.LLM.Model(),
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		a.Close()
	}()

	log.Info("starting legalens",
		"port", cfg.Port,
		"llm", cfg.LLMProvider,
		"retrieval", a.Retriever != nil,
		"storage", cfg.StorageType)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
