package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARN "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("chatty"))
	assert.Equal(t, "WARN", WARN.String())
}

func TestFileLoggerWritesStructuredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "oahu.log")
	l, err := New(Config{Level: INFO, FilePath: path, MaxSize: 1 << 20})
	require.NoError(t, err)

	l.Debug("hidden")
	l.WithFields(F("kind", "Project")).Info("synced", F("id", "p1"), F("error", errors.New("boom")))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"synced"`)
	assert.Contains(t, out, `"kind":"Project"`)
	assert.Contains(t, out, `"id":"p1"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestRotateBySize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oahu.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))

	l, err := New(Config{Level: INFO, FilePath: path, MaxSize: 32, MaxBackups: 2})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "oversized log should be moved to .1")
}

func TestNopLoggerAndGlobalsBeforeInit(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	assert.NoError(t, l.Close())

	// package functions are safe before Init
	Info("nothing")
	assert.NotNil(t, L())
	assert.NotNil(t, WithFields(F("a", 1)))
}
