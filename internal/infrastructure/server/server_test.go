package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/config"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = "0"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.LLM.MaxRetries = 0
	cfg.LLM.ProbeTimeout = 200 * time.Millisecond
	cfg.Preview.SandboxTimeout = time.Second
	cfg.RateLimit.Enabled = false

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "card.yaml"), []byte("name: Card\nhtml: '<div class=\"card\">Card</div>'\ncss: '.card{padding:8px}'\n"), 0o644))
	cfg.Templates.Dir = dir
	return cfg
}

func newServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthWithUnreachableLLM(t *testing.T) {
	srv := newServer(t, testConfig(t))

	w := get(t, srv.Handler(), "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	var body map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	llm, ok := body["llm"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, llm["reachable"])
}

func TestPrometheusEndpoint(t *testing.T) {
	srv := newServer(t, testConfig(t))

	get(t, srv.Handler(), "/health")
	w := get(t, srv.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestTemplatesLoadedFromDir(t *testing.T) {
	srv := newServer(t, testConfig(t))

	w := get(t, srv.Handler(), "/api/v1/templates/card")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Card")
}

func TestMissingTemplateDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Templates.Dir = filepath.Join(t.TempDir(), "absent")
	srv := newServer(t, cfg)

	w := get(t, srv.Handler(), "/api/v1/templates/card")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBodyLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxBodyBytes = 64
	srv := newServer(t, cfg)

	w := httptest.NewRecorder()
	body := `{"html":"` + strings.Repeat("x", 256) + `","css":"","js":""}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/workspace", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUnknownStorageBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "floppy"

	_, err := NewServer(context.Background(), cfg, logging.Nop())
	assert.Error(t, err)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := newServer(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestPreviewServedAfterEdit(t *testing.T) {
	srv := newServer(t, testConfig(t))
	h := srv.Handler()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/workspace", strings.NewReader(`{"html":"<em>hi</em>","css":"","js":""}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		rec := get(t, h, "/preview/frame")
		raw, _ := io.ReadAll(rec.Body)
		return rec.Code == http.StatusOK && strings.Contains(string(raw), "<em>hi</em>")
	}, 2*time.Second, 20*time.Millisecond)
}
