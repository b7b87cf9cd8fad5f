package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/existflow/oahu/internal/backend"
	"github.com/existflow/oahu/internal/config"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/remote"
	"github.com/existflow/oahu/internal/store"
	oahusync "github.com/existflow/oahu/internal/sync"
	"github.com/existflow/oahu/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	logCfg.Console = true
	if cfg.LogFile != "" {
		logCfg.FilePath = cfg.LogFile
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore := openRepo(ctx, cfg)
	defer closeStore()

	engine := oahusync.New(repo, logger.L(), oahusync.Options{})
	srv := server.New(repo, engine, server.Options{Token: cfg.ServerToken}, logger.L())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", logger.F("error", err))
		}
	}()

	log.Printf("Oahu mirror server starting on %s", cfg.ListenAddr)
	if err := srv.Start(cfg.ListenAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func openRepo(ctx context.Context, cfg *config.Config) (*store.Repo, func()) {
	b, err := backend.Open(ctx, cfg, logger.L())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	client := remote.NewClient(remote.OptionsFromConfig(cfg), logger.L())
	return store.NewRepo(b, client, logger.L()), func() {
		if err := b.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}
}
