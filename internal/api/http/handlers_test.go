package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/api/middleware"
	"github.com/GriffinCanCode/uibuilder/internal/domain/catalog"
	"github.com/GriffinCanCode/uibuilder/internal/domain/export"
	"github.com/GriffinCanCode/uibuilder/internal/domain/generation"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/refine"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
	"github.com/GriffinCanCode/uibuilder/internal/providers/sandbox"
	"github.com/GriffinCanCode/uibuilder/internal/storage"
)

// fakeOllama answers probes and completions; the completion text can be
// swapped between requests.
type fakeOllama struct {
	mu       sync.Mutex
	response string
	down     bool
}

func (f *fakeOllama) set(response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = response
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	response, down := f.response, f.down
	f.mu.Unlock()

	if down {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	switch r.URL.Path {
	case "/":
		w.WriteHeader(http.StatusOK)
	case "/api/generate":
		body, _ := sonic.Marshal(map[string]interface{}{"model": "llama3", "response": response, "done": true})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	case "/api/tags":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"models":[{"name":"llama3","size":42,"digest":"abc"}]}`)
	default:
		http.NotFound(w, r)
	}
}

type testServer struct {
	router    *gin.Engine
	ollama    *fakeOllama
	workspace *workspace.Workspace
	surface   *preview.Surface
	events    *events.Memory
	metrics   *monitoring.Metrics
}

const goodResponse = `{"html":"<button id=\"go\" onclick=\"hit()\">Go</button>","css":"button{color:red}","js":"function hit(){ document.getElementById('go').textContent = 'done' }"}`

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	fake := &fakeOllama{response: goodResponse}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts := llm.DefaultOptions()
	opts.BaseURL = srv.URL
	opts.MaxRetries = 0
	opts.Timeout = 2 * time.Second
	opts.ProbeTimeout = 500 * time.Millisecond
	client := llm.New(opts, logger)

	store := storage.NewMemory()
	pub := events.NewMemory()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	norm, err := normalizer.New(16, logger)
	require.NoError(t, err)
	composer, err := preview.NewComposer(16, logger)
	require.NoError(t, err)
	surface := preview.NewSurface(composer)

	ws := workspace.New(store, workspace.Options{Publisher: pub}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ws.Mirror(ctx, surface)

	harness := sandbox.New(1, time.Second, logger)
	t.Cleanup(harness.Close)

	gen := generation.NewService(client, norm, ws, generation.Options{Publisher: pub, Metrics: metrics}, logger)
	gallery := catalog.NewGallery(catalog.Template{
		ID:      "hello",
		Name:    "Hello",
		Payload: payload.New("<h1>Hello</h1>", "h1{color:teal}", ""),
	})

	h := NewHandlers(Dependencies{
		LLM:         client,
		Generator:   gen,
		Refiner:     refine.NewService(client, norm, refine.Options{}, logger),
		Normalizer:  norm,
		Workspace:   ws,
		Surface:     surface,
		Harness:     harness,
		Catalog:     catalog.New(store, pub, logger),
		Gallery:     gallery,
		Publisher:   pub,
		Metrics:     metrics,
		Breakpoints: preview.DefaultBreakpoints(),
		Logger:      logger,
	})

	router := gin.New()
	router.Use(monitoring.Middleware(metrics))
	h.Register(router)

	return &testServer{router: router, ollama: fake, workspace: ws, surface: surface, events: pub, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	llmStatus := body["llm"].(map[string]interface{})
	assert.Equal(t, true, llmStatus["reachable"])
	assert.Equal(t, "closed", llmStatus["breaker"])

	s.ollama.mu.Lock()
	s.ollama.down = true
	s.ollama.mu.Unlock()

	w = s.do(t, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	llmStatus = decode(t, w)["llm"].(map[string]interface{})
	assert.Equal(t, false, llmStatus["reachable"])
	assert.Contains(t, llmStatus["error"], "unavailable")
}

func TestGenerateUpdatesWorkspaceAndPreview(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/generate", `{"prompt":"a red button"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, generation.SourceLLM, body["source"])
	assert.Equal(t, `<button id="go" onclick="hit()">Go</button>`, s.workspace.Current().Payload.HTML)

	require.Eventually(t, func() bool {
		f, ok := s.surface.Current()
		return ok && f.Trigger == preview.TriggerGeneration
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, preview.Rendering, s.surface.State())
}

func TestGenerateFallbackStillSucceeds(t *testing.T) {
	s := newTestServer(t)
	s.ollama.set("I cannot produce JSON today.")

	w := s.do(t, "POST", "/api/v1/generate", `{"prompt":"a pricing card"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, generation.SourceFallback, body["source"])
	assert.Equal(t, "generation failed", body["reason"])
	failure := body["failure"].(map[string]interface{})
	assert.Equal(t, "NoJsonFound", failure["kind"])
	assert.True(t, s.workspace.Current().Fallback)
}

func TestGenerateValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing prompt", `{}`},
		{"blank prompt", `{"prompt":"   "}`},
		{"bad submission id", `{"prompt":"x","submission_id":"nope"}`},
		{"not json", `prompt=x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, "POST", "/api/v1/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, middleware.CodeInvalidRequest, errorCode(t, w))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/normalize", `{"raw":"{html: '<p>x</p>', css: 'p{}',}"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "<p>x</p>", body["payload"].(map[string]interface{})["html"])
	assert.NotEmpty(t, body["repairs"])

	w = s.do(t, "POST", "/api/v1/normalize", `{"raw":"{\"html\":\"YOUR_HTML_CODE_HERE\",\"css\":\"x\"}"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp middleware.ErrorResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	details := resp.Error.Details.(map[string]interface{})
	assert.Equal(t, "PlaceholderContent", details["kind"])
	assert.Equal(t, "placeholder", details["stage"])
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/analyze", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty workspace has nothing to analyze")
	assert.Equal(t, middleware.CodeInvalidRequest, errorCode(t, w))

	s.ollama.set(`{"smartName":"Go Button","suggestions":[{"type":"accessibility","severity":"medium","description":"No label","suggestion":"Add aria-label"}],` +
		`"optimizedCode":{"html":"<button aria-label=\"go\">Go</button>","css":"","js":""}}`)
	w = s.do(t, "POST", "/api/v1/analyze", `{"payload":{"html":"<button>Go</button>","css":"","js":""}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, refine.SourceLLM, body["source"])
	assert.Equal(t, "GoButton", body["smart_name"])
	assert.Len(t, body["suggestions"], 1)
	assert.Equal(t, `<button aria-label="go">Go</button>`, body["optimized"].(map[string]interface{})["html"])

	s.ollama.set("no idea")
	w = s.do(t, "POST", "/api/v1/analyze", `{"payload":{"html":"<table><tr><td>1</td></tr></table>"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, refine.SourceHeuristic, body["source"])
	assert.Equal(t, "DataTable", body["smart_name"])
	assert.Equal(t, "<table><tr><td>1</td></tr></table>", body["optimized"].(map[string]interface{})["html"])

	w = s.do(t, "POST", "/api/v1/analyze", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVariationsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/variations", `{"prompt":"a go button"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	variations := decode(t, w)["variations"].([]interface{})
	require.Len(t, variations, len(refine.Styles))
	for i, raw := range variations {
		v := raw.(map[string]interface{})
		assert.Equal(t, refine.Styles[i].Name, v["name"])
		assert.Equal(t, refine.SourceLLM, v["source"])
		assert.Equal(t, `<button id="go" onclick="hit()">Go</button>`, v["payload"].(map[string]interface{})["html"])
	}
	assert.Equal(t, uint64(0), s.workspace.Current().Number, "variations do not touch the workspace")

	s.ollama.set("no json here")
	w = s.do(t, "POST", "/api/v1/variations", `{"prompt":"a go button","payload":{"html":"<p>mine</p>","css":"","js":""}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, raw := range decode(t, w)["variations"].([]interface{}) {
		v := raw.(map[string]interface{})
		assert.Equal(t, refine.SourceFallback, v["source"])
		assert.Equal(t, "<p>mine</p>", v["payload"].(map[string]interface{})["html"])
	}

	w = s.do(t, "POST", "/api/v1/variations", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, "POST", "/api/v1/variations", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModels(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "llama3", body["default"])
	assert.Len(t, body["models"], 1)
}

func TestWorkspaceEditFormatHistoryRestore(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "PUT", "/api/v1/workspace", `{"html":"<div><p>hi</p></div>","css":"p{color:red}"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := s.workspace.Current()
	assert.Equal(t, preview.TriggerEdit, first.Source)
	assert.Equal(t, "", first.Payload.JS)

	w = s.do(t, "POST", "/api/v1/workspace/format", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["changed"])
	formatted := s.workspace.Current()
	assert.Equal(t, preview.TriggerFormat, formatted.Source)
	assert.Contains(t, formatted.Payload.HTML, "\n  <p>")

	w = s.do(t, "POST", "/api/v1/workspace/format", "")
	assert.Equal(t, false, decode(t, w)["changed"])

	w = s.do(t, "GET", "/api/v1/workspace/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["revisions"], 2)

	w = s.do(t, "POST", "/api/v1/workspace/restore/"+first.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.Payload, s.workspace.Current().Payload)

	w = s.do(t, "POST", "/api/v1/workspace/restore/rev_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "PUT", "/api/v1/workspace", `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", "/api/v1/workspace", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode(t, w)["revision"])
}

func TestComposeAndVerify(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/preview/compose", `{"success":true,"data":{"html":"<p>x</p><script>alert(1)</script>","css":"p{}","js":""}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	doc := body["document"].(string)
	assert.Contains(t, doc, "&lt;script>alert(1)&lt;/script>")
	assert.Equal(t, preview.Compose(payload.New("<p>x</p><script>alert(1)</script>", "p{}", "")).Hash, body["hash"])

	w = s.do(t, "POST", "/api/v1/preview/verify", `{"html":"<button onclick=\"boom()\">b</button>","css":"","js":"function boom(){ throw new Error('bad') }"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, false, body["ok"])
	report := body["report"].(map[string]interface{})
	diags := report["diagnostics"].([]interface{})
	require.Len(t, diags, 1)
	assert.Equal(t, "runtime", diags[0].(map[string]interface{})["kind"])

	w = s.do(t, "POST", "/api/v1/preview/compose", `42`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderedAcknowledgement(t *testing.T) {
	s := newTestServer(t)
	_, err := s.workspace.Replace(context.Background(), payload.New("<p>a</p>", "p{}", ""), workspace.Change{Source: preview.TriggerEdit})
	require.NoError(t, err)

	var gen uint64
	require.Eventually(t, func() bool {
		f, ok := s.surface.Current()
		gen = f.Generation
		return ok
	}, time.Second, 5*time.Millisecond)

	w := s.do(t, "POST", "/api/v1/preview/rendered", `{"generation":999}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["acknowledged"])

	w = s.do(t, "POST", "/api/v1/preview/rendered", `{"generation":`+itoa(gen)+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["acknowledged"])
	assert.Equal(t, "rendered", body["state"])
}

func itoa(n uint64) string {
	b, _ := sonic.Marshal(n)
	return string(b)
}

func TestDiagnosticsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/preview/diagnostics", `{"kind":"runtime","message":"x is not defined","generation":3}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	published := s.events.OfType(events.ScriptError)
	require.Len(t, published, 1)
	assert.Equal(t, preview.OriginShell, published[0].Attrs["origin"])
	assert.Equal(t, int64(1), s.metrics.Snapshot().ScriptErrors)

	w = s.do(t, "POST", "/api/v1/preview/diagnostics", `{"kind":"syntax","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShellAndFrame(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/preview?device=mobile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `sandbox="allow-scripts"`)
	assert.Contains(t, w.Body.String(), "375px")

	w = s.do(t, "GET", "/preview?device=watch", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", "/preview/frame", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, preview.FrameHeaderPolicy, w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Body.String(), "No HTML content available")
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/preview/frame", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/v1/export/standalone", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	p := payload.New(`<form><input name="q"></form>`, "form{}", "console.log(1)")
	_, err := s.workspace.Replace(context.Background(), p, workspace.Change{Source: preview.TriggerEdit})
	require.NoError(t, err)

	tests := []struct {
		format      string
		filename    string
		contentType string
	}{
		{"standalone", "interactive-form.html", "text/html; charset=utf-8"},
		{"react", "InteractiveForm.jsx", "text/plain; charset=utf-8"},
		{"vue", "InteractiveForm.vue", "text/plain; charset=utf-8"},
		{"angular", "interactive-form.component.ts", "text/plain; charset=utf-8"},
		{"bundle", "interactive-form.zip", "application/zip"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := s.do(t, "GET", "/api/v1/export/"+tt.format, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Header().Get("Content-Disposition"), tt.filename)
		})
	}

	w = s.do(t, "GET", "/api/v1/export/standalone?name=Search%20Box", "")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "search-box.html")
	imported, err := export.Import(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, p, imported)

	w = s.do(t, "GET", "/api/v1/export/svelte", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImport(t *testing.T) {
	s := newTestServer(t)
	p := payload.New("<p>imported</p>", "p{color:green}", "console.log('hi')")
	doc := export.Standalone(p, "Imported")

	body, contentType := multipartUpload(t, "file", "imported.html", []byte(doc))
	req := httptest.NewRequest("POST", "/api/v1/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, p, s.workspace.Current().Payload)
	assert.Equal(t, preview.TriggerImport, s.workspace.Current().Source)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	body, contentType = multipartUpload(t, "file", "image.png", png)
	req = httptest.NewRequest("POST", "/api/v1/import", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, middleware.CodeUnsupportedMediaType, errorCode(t, w))

	w = s.do(t, "POST", "/api/v1/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComponentsLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/components", `{"name":"empty"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty workspace has nothing to save")

	_, err := s.workspace.Replace(context.Background(), payload.New("<nav><a href='#'>Home</a></nav>", "nav{}", ""), workspace.Change{Source: preview.TriggerEdit})
	require.NoError(t, err)

	w = s.do(t, "POST", "/api/v1/components", `{"description":"site nav","tags":["nav"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comp := decode(t, w)["component"].(map[string]interface{})
	compID := comp["id"].(string)
	assert.Equal(t, "NavigationMenu", comp["name"])

	w = s.do(t, "POST", "/api/v1/components", `{"name":"Card","payload":{"html":"<div class='card'>c</div>","css":".card{}","js":""}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, "GET", "/api/v1/components", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = s.do(t, "GET", "/api/v1/components/"+compID, "")
	require.Equal(t, http.StatusOK, w.Code)

	_, err = s.workspace.Replace(context.Background(), payload.New("<p>other</p>", "p{}", ""), workspace.Change{Source: preview.TriggerEdit})
	require.NoError(t, err)
	w = s.do(t, "POST", "/api/v1/components/"+compID+"/load", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, preview.TriggerComponent, s.workspace.Current().Source)
	assert.Contains(t, s.workspace.Current().Payload.HTML, "<nav>")

	w = s.do(t, "POST", "/api/v1/components", `{"id":"`+compID+`","name":"Renamed","payload":{"html":"<nav></nav>","css":"nav{}"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", decode(t, w)["component"].(map[string]interface{})["name"])

	w = s.do(t, "DELETE", "/api/v1/components/"+compID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, "GET", "/api/v1/components/"+compID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, middleware.CodeNotFound, errorCode(t, w))

	w = s.do(t, "POST", "/api/v1/components", `{"id":"bogus","name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplates(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/v1/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(t, "GET", "/api/v1/templates/hello", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "POST", "/api/v1/templates/hello/load", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>Hello</h1>", s.workspace.Current().Payload.HTML)
	assert.Equal(t, preview.TriggerTemplate, s.workspace.Current().Source)

	w = s.do(t, "POST", "/api/v1/templates/missing/load", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsJSON(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "POST", "/api/v1/generate", `{"prompt":"a button"}`)

	w := s.do(t, "GET", "/metrics/json", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	latency := body["generation_latency"].(map[string]interface{})
	assert.Equal(t, float64(1), latency["count"])
	assert.NotNil(t, body["sandbox"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, middleware.CodeNotFound, errorCode(t, w))
}
