// Package backend persists serialized records keyed by (kind, id).
package backend

import (
	"context"
	"fmt"

	"github.com/existflow/oahu/internal/config"
	"github.com/existflow/oahu/internal/db"
	"github.com/existflow/oahu/internal/logger"
)

// Backend is a keyed blob store. Get returns an errs.NotFound error for
// missing keys; Delete of a missing key is not an error.
type Backend interface {
	Get(ctx context.Context, kind, id string) ([]byte, error)
	Put(ctx context.Context, kind, id string, data []byte) error
	Delete(ctx context.Context, kind, id string) error
	Close() error
}

// Open builds the backend selected by cfg.Store
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Store {
	case config.StoreMemory, "":
		return NewMemory(), nil
	case config.StoreSQLite:
		b, err = openSQL(ctx, db.DialectSQLite, cfg.StoreDSN)
	case config.StorePostgres:
		b, err = openSQL(ctx, db.DialectPostgres, cfg.StoreDSN)
	case config.StoreRedis:
		b, err = openRedis(ctx, RedisOptions{Addr: cfg.StoreDSN, Prefix: cfg.RedisPrefix}, log)
	default:
		return nil, fmt.Errorf("unknown store adapter %q", cfg.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	log.Debug("Opened store", logger.F("adapter", cfg.Store))
	return b, nil
}

func openSQL(ctx context.Context, dialect db.Dialect, dsn string) (Backend, error) {
	d, err := db.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func openRedis(ctx context.Context, opts RedisOptions, log *logger.Logger) (Backend, error) {
	r, err := NewRedis(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return r, nil
}
