package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/existflow/oahu/internal/config"
	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, b Backend) {
	ctx := context.Background()

	_, err := b.Get(ctx, "App", "a1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, b.Put(ctx, "App", "a1", []byte(`{"id":"a1"}`)))
	got, err := b.Get(ctx, "App", "a1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a1"}`, string(got))

	require.NoError(t, b.Delete(ctx, "App", "a1"))
	require.NoError(t, b.Delete(ctx, "App", "a1"))
	_, err = b.Get(ctx, "App", "a1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseBackend(t, m)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCopiesPayloads(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(ctx, "App", "a1", buf))
	buf[0] = 'x'

	got, err := m.Get(ctx, "App", "a1")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestOpenSelectsAdapter(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	cfg.Store = config.StoreMemory
	b, err := Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	cfg.Store = config.StoreSQLite
	cfg.StoreDSN = filepath.Join(t.TempDir(), "cache.db")
	b, err = Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	exerciseBackend(t, b)
	require.NoError(t, b.Close())

	cfg.Store = "floppy"
	_, err = Open(ctx, cfg, logger.Nop())
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	r, err := NewRedis(context.Background(), RedisOptions{Addr: addr, Prefix: "oahu-test"}, logger.Nop())
	require.NoError(t, err)
	defer r.Close()
	exerciseBackend(t, r)
}

func TestRedisRequiresAddress(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{}, logger.Nop())
	assert.Error(t, err)
}
