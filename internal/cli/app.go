package cli

import (
	"context"
	"fmt"

	"github.com/existflow/oahu/internal/backend"
	"github.com/existflow/oahu/internal/config"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/model"
	"github.com/existflow/oahu/internal/remote"
	"github.com/existflow/oahu/internal/store"
	oahusync "github.com/existflow/oahu/internal/sync"
)

// app bundles what a command needs to reach the cache and the remote
type app struct {
	backend backend.Backend
	client  *remote.Client
	repo    *store.Repo
	engine  *oahusync.Engine
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	b, err := backend.Open(ctx, cfg, logger.L())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	client := remote.NewClient(remote.OptionsFromConfig(cfg), logger.L())
	repo := store.NewRepo(b, client, logger.L())
	return &app{
		backend: b,
		client:  client,
		repo:    repo,
		engine:  oahusync.New(repo, logger.L(), oahusync.Options{}),
	}, nil
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		logger.Warn("Failed to close store", logger.F("error", err))
	}
}

// parseKind resolves a kind argument such as "projects" or "Video"
func parseKind(name string) (model.Kind, error) {
	k, ok := model.LookupKind(name)
	if !ok {
		return "", fmt.Errorf("unknown kind %q (known: %v)", name, model.Kinds())
	}
	return k, nil
}
