package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeai/companion/internal/config"
	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/types"
)

func newTestServer(t *testing.T, backendURL string) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Store.Dir = t.TempDir()
	if backendURL != "" {
		cfg.API.BaseURL = backendURL + "/"
	}

	srv, err := New(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestActionsAlwaysRespond(t *testing.T) {
	srv := newTestServer(t, "")

	// Unknown actions still produce a Result, never an HTTP error.
	rec := doJSON(t, srv, http.MethodPost, "/actions", `{"action": "explode"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.Result
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "unknown action")
}

func TestActionsRejectMalformedBody(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doJSON(t, srv, http.MethodPost, "/actions", `{not json`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.Result
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
}

func TestActionsShoppingListRoundtrip(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doJSON(t, srv, http.MethodPost, "/actions", `{"action": "add-to-shopping-list", "item": "farine", "userId": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.Result
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)

	rec = doJSON(t, srv, http.MethodPost, "/actions", `{"action": "get-shopping-list", "userId": 4}`)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)

	raw, err := sonic.Marshal(result.Data["shoppingList"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "farine")
}

func TestActionsProxyBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/nlp/search/semantic", r.URL.Path)
		w.Write([]byte(`{"results": [{"titre": "Pesto"}]}`))
	}))
	t.Cleanup(backend.Close)
	srv := newTestServer(t, backend.URL)

	rec := doJSON(t, srv, http.MethodPost, "/actions", `{"action": "search-semantic", "query": "basilic"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.Result
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
	assert.Contains(t, rec.Body.String(), "Pesto")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	// Generate one dispatch so the counter exists.
	doJSON(t, srv, http.MethodPost, "/actions", `{"action": "get-shopping-list"}`)

	rec := doJSON(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "companion_relay_actions_total")
}

func TestWatchRequiresURL(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doJSON(t, srv, http.MethodPost, "/watch", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.Result
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
}

func TestWatchLifecycle(t *testing.T) {
	srv := newTestServer(t, "")
	// Unreachable host: the watcher's poll loop runs but every fetch
	// fails, which is enough to exercise registration.
	const body = `{"url": "http://127.0.0.1:1/recette"}`

	var result types.Result
	rec := doJSON(t, srv, http.MethodPost, "/watch", body)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)

	// The watcher stays registered, so a second watch of the same URL
	// is rejected instead of spawning a second poll loop.
	rec = doJSON(t, srv, http.MethodPost, "/watch", body)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.Success)
	assert.Contains(t, *result.Error, "already watching")

	rec = doJSON(t, srv, http.MethodPost, "/unwatch", body)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)

	rec = doJSON(t, srv, http.MethodPost, "/unwatch", body)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)

	// After unwatch the URL can be watched again.
	rec = doJSON(t, srv, http.MethodPost, "/watch", body)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestWatchSaveNeedsRegisteredWatcher(t *testing.T) {
	srv := newTestServer(t, "")

	var result types.Result
	rec := doJSON(t, srv, http.MethodPost, "/watch/save", `{"url": "http://127.0.0.1:1/inconnue"}`)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.Success)
	assert.Contains(t, *result.Error, "not watching")

	// A registered watcher whose page never loaded still answers the
	// save, with the watcher's own failure.
	rec = doJSON(t, srv, http.MethodPost, "/watch", `{"url": "http://127.0.0.1:1/inconnue"}`)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)

	rec = doJSON(t, srv, http.MethodPost, "/watch/save", `{"url": "http://127.0.0.1:1/inconnue"}`)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.Success)
	assert.Contains(t, *result.Error, "no page loaded")
}
