package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/oahu/internal/backend"
	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/model"
	"github.com/existflow/oahu/internal/remote"
	"github.com/existflow/oahu/internal/store"
	oahusync "github.com/existflow/oahu/internal/sync"
)

type fakeRemote map[string]string

func (f fakeRemote) Get(_ context.Context, path string, _ remote.Params) (json.RawMessage, error) {
	if path == "projects/down" {
		return nil, errs.Transport("fake.Get", 503, errors.New("unavailable"))
	}
	body, ok := f[path]
	if !ok {
		return nil, errs.NotFound("fake.Get", errors.New(path))
	}
	return json.RawMessage(body), nil
}

func newTestServer(t *testing.T, token string) (*Server, *store.Repo) {
	t.Helper()
	rem := fakeRemote{
		"projects/p1":              `{"id":"p1","_type":"Project","slug":"first","updated_at":"2020-01-01"}`,
		"projects/p1/resources":    `[{"id":"v1","_type":"Video"},{"id":"x","_type":"Podcast"}]`,
		"projects/p1/pub_accounts": `[]`,
		"projects/p1/apps":         `[{"id":"a1","project_id":"p1"}]`,
		"apps/a7":                  `{"id":"a7","project_id":"p2"}`,
	}
	repo := store.NewRepo(backend.NewMemory(), rem, logger.Nop())
	engine := oahusync.New(repo, logger.Nop(), oahusync.Options{})
	return New(repo, engine, Options{Token: token}, logger.Nop()), repo
}

func do(t *testing.T, s *Server, method, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	rec, body := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	rec, body := do(t, s, http.MethodGet, "/api/v1/projects", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authorization required", body["error"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/projects", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/projects", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncThenRead(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec, body := do(t, s, http.MethodPost, "/api/v1/projects/p1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["changed"])
	assert.EqualValues(t, 2, body["children"])
	skipped, ok := body["skipped"].([]any)
	require.True(t, ok)
	require.Len(t, skipped, 1)
	assert.Equal(t, "Podcast", skipped[0].(map[string]any)["type"])

	rec, body = do(t, s, http.MethodGet, "/api/v1/projects/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"a1"}, body["app_ids"])
	assert.Equal(t, []any{"v1"}, body["video_ids"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/apps/by/project_id/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []model.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "a1", apps[0].ID)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/Video", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["v1"]`, idsOf(t, rec.Body.Bytes()))
}

func idsOf(t *testing.T, raw []byte) string {
	t.Helper()
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &recs))
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r["id"].(string))
	}
	out, err := json.Marshal(ids)
	require.NoError(t, err)
	return string(out)
}

func TestGetFetchesOnMiss(t *testing.T) {
	s, repo := newTestServer(t, "")

	rec, body := do(t, s, http.MethodGet, "/api/v1/apps/a7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p2", body["project_id"])

	_, err := repo.Get(context.Background(), model.KindApp, "a7")
	require.NoError(t, err)
}

func TestErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec, body := do(t, s, http.MethodGet, "/api/v1/podcasts", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "podcasts")

	rec, _ = do(t, s, http.MethodGet, "/api/v1/projects/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/projects/down/sync", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/apps/by/project_id/none", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
