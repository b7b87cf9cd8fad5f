package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
)

type RedisOptions struct {
	Addr   string
	Prefix string
}

// Redis stores each kind as a hash: <prefix>:<kind> -> {id: json}
type Redis struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewRedis(ctx context.Context, opts RedisOptions, log *logger.Logger) (*Redis, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "oahu"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		log:    log.WithFields(logger.F("backend", "redis")),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (r *Redis) key(kind string) string {
	return r.prefix + ":" + kind
}

func (r *Redis) Get(ctx context.Context, kind, id string) ([]byte, error) {
	v, err := r.rdb.HGet(ctx, r.key(kind), id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, errs.NotFound("backend.Get", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget %s/%s: %w", kind, id, err)
	}
	return v, nil
}

func (r *Redis) Put(ctx context.Context, kind, id string, data []byte) error {
	if err := r.rdb.HSet(ctx, r.key(kind), id, data).Err(); err != nil {
		return fmt.Errorf("redis hset %s/%s: %w", kind, id, err)
	}
	r.log.Debug("Stored record", logger.F("kind", kind), logger.F("id", id), logger.F("bytes", len(data)))
	return nil
}

func (r *Redis) Delete(ctx context.Context, kind, id string) error {
	if err := r.rdb.HDel(ctx, r.key(kind), id).Err(); err != nil {
		return fmt.Errorf("redis hdel %s/%s: %w", kind, id, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
