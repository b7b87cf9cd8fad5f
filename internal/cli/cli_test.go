package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/oahu/internal/config"
)

func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	project := map[string]any{
		"id": "p1", "_type": "Project", "slug": "film", "title": "The Film",
		"updated_at": "2020-01-01T00:00:00Z", "release_date": "2019-05-01",
		"credits": []map[string]any{{"job": "Director", "name": "Ann"}, {"job": "Writer", "name": "Bo"}},
	}

	e := echo.New()
	e.GET("/projects", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{project})
	})
	e.GET("/projects/p1", func(c echo.Context) error {
		return c.JSON(http.StatusOK, project)
	})
	e.GET("/projects/p1/resources", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{map[string]any{"id": "v1", "_type": "Video", "project_id": "p1"}})
	})
	e.GET("/projects/p1/pub_accounts", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{})
	})
	e.GET("/projects/p1/apps", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{map[string]any{"id": "a1", "project_id": "p1", "starts_at": "2000-01-01"}})
	})
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"id": c.Request().Header.Get("Oahu-Account-Id")})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

// setup writes a config pointing at a fake service and a temporary store
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := config.DefaultConfig()
	cfg.Endpoint = fakeService(t).URL
	cfg.AppID = "app1"
	cfg.ClientID = "client1"
	cfg.ConsumerID = "cons1"
	cfg.ConsumerSecret = "s3cret"
	cfg.Store = config.StoreSQLite
	cfg.StoreDSN = filepath.Join(dir, "cache.db")
	cfg.LogFile = filepath.Join(dir, "oahu.log")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.SaveTo(path))
	return path
}

func run(t *testing.T, cfgPath, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSyncThenBrowse(t *testing.T) {
	path := setup(t)

	out, err := run(t, path, "", "sync")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Synced 1, failed 0")
	assert.Contains(t, out, "film (p1)")

	out, err = run(t, path, "", "sync", "p1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "unchanged")

	out, err = run(t, path, "", "list", "projects")
	require.NoError(t, err, out)
	assert.Contains(t, out, "p1")
	assert.Contains(t, out, "The Film")

	out, err = run(t, path, "", "find-by", "project", "slug", "film")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"id": "p1"`)

	out, err = run(t, path, "", "find-by", "videos", "project_id", "p1", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"id": "v1"`)

	out, err = run(t, path, "", "find", "app", "a1", "--local")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"project_id": "p1"`)

	out, err = run(t, path, "", "project", "credits", "film", "Director")
	require.NoError(t, err, out)
	assert.Equal(t, "Ann\n", out)

	out, err = run(t, path, "", "project", "years")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2019")

	out, err = run(t, path, "", "project", "apps", "p1", "--live")
	require.NoError(t, err, out)
	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "live")
}

func TestDestroyAndClear(t *testing.T) {
	path := setup(t)
	_, err := run(t, path, "", "sync", "p1")
	require.NoError(t, err)

	out, err := run(t, path, "n\n", "destroy", "app", "a1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cancelled.")

	out, err = run(t, path, "y\n", "destroy", "app", "a1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Removed App a1")

	_, err = run(t, path, "", "find", "app", "a1", "--local")
	assert.ErrorContains(t, err, "not found")

	out, err = run(t, path, "", "clear", "videos", "--force")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cleared 1 videos")

	out, err = run(t, path, "", "list", "videos")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No cached videos")
}

func TestConfigSavesFlags(t *testing.T) {
	path := setup(t)

	out, err := run(t, path, "new-secret\n", "config", "--consumer-id", "cons2", "--secret")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Settings saved")
	assert.Contains(t, out, "cons2")
	assert.NotContains(t, out, "new-secret")

	saved, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "cons2", saved.ConsumerID)
	assert.Equal(t, "new-secret", saved.ConsumerSecret)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAccountMe(t *testing.T) {
	path := setup(t)
	out, err := run(t, path, "", "account", "me", "u42")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"id": "u42"`)
}

func TestUnknownKind(t *testing.T) {
	path := setup(t)
	_, err := run(t, path, "", "list", "podcasts")
	assert.ErrorContains(t, err, `unknown kind "podcasts"`)
}

func TestParsePairs(t *testing.T) {
	data, err := parsePairs([]string{"object_id=v1", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"object_id": "v1", "note": "a=b"}, data)

	_, err = parsePairs([]string{"oops"})
	assert.Error(t, err)
}
