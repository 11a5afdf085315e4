package ws

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/generation"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
	"github.com/GriffinCanCode/uibuilder/internal/storage"
)

const completion = `{"html":"<p id=\"x\">hi</p>","css":"p{margin:0}","js":"document.getElementById('x').textContent='ok'"}`

type received struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func ollama() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		body, _ := sonic.Marshal(map[string]interface{}{"model": "llama3", "response": completion, "done": true})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	return mux
}

func setup(t *testing.T) (*websocket.Conn, *preview.Surface, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	backend := httptest.NewServer(ollama())
	t.Cleanup(backend.Close)

	opts := llm.DefaultOptions()
	opts.BaseURL = backend.URL
	opts.MaxRetries = 0
	opts.Timeout = 2 * time.Second
	client := llm.New(opts, logger)

	norm, err := normalizer.New(8, logger)
	require.NoError(t, err)
	composer, err := preview.NewComposer(8, logger)
	require.NoError(t, err)
	surface := preview.NewSurface(composer)

	ws := workspace.New(storage.NewMemory(), workspace.Options{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ws.Mirror(ctx, surface)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	gen := generation.NewService(client, norm, ws, generation.Options{}, logger)
	handler := NewHandler(gen, ws, surface, logger).WithMetrics(metrics)

	router := gin.New()
	router.GET("/stream", handler.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn, surface, metrics
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	msg := map[string]interface{}{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	raw, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

// expect reads until a message of the wanted type arrives, skipping others.
func expect(t *testing.T, conn *websocket.Conn, want string) received {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		var msg received
		require.NoError(t, sonic.Unmarshal(raw, &msg))
		if msg.Type == want {
			return msg
		}
	}
}

// collect reads until every wanted type has arrived, in any order.
func collect(t *testing.T, conn *websocket.Conn, want ...string) map[string]received {
	t.Helper()
	got := make(map[string]received, len(want))
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < len(want) {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %v", want)
		var msg received
		require.NoError(t, sonic.Unmarshal(raw, &msg))
		for _, w := range want {
			if msg.Type == w {
				got[w] = msg
			}
		}
	}
	return got
}

func TestConnectedGreeting(t *testing.T) {
	conn, _, metrics := setup(t)

	msg := expect(t, conn, "connected")
	assert.NotEmpty(t, msg.Data["connection_id"])
	assert.Eventually(t, func() bool {
		return metrics.Snapshot().ActiveConnections == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateStreamsFrame(t *testing.T) {
	conn, surface, _ := setup(t)
	expect(t, conn, "connected")

	send(t, conn, "update", map[string]string{"html": "<b>bold</b>", "css": "b{}", "js": ""})

	got := collect(t, conn, "updated", "frame")
	updated := got["updated"]
	rev, ok := updated.Data["revision"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, preview.TriggerEdit, rev["source"])

	frame := got["frame"]
	assert.Equal(t, preview.TriggerEdit, frame.Data["trigger"])
	assert.Contains(t, frame.Data["document"], "<b>bold</b>")
	assert.NotEmpty(t, frame.Data["hash"])

	gen := frame.Data["generation"].(float64)
	send(t, conn, "rendered", map[string]interface{}{"generation": gen})
	ack := expect(t, conn, "ack")
	assert.Equal(t, true, ack.Data["acknowledged"])
	assert.Equal(t, preview.Rendered, surface.State())
}

func TestStaleAcknowledgement(t *testing.T) {
	conn, _, _ := setup(t)
	expect(t, conn, "connected")

	send(t, conn, "rendered", map[string]interface{}{"generation": 99})
	ack := expect(t, conn, "ack")
	assert.Equal(t, false, ack.Data["acknowledged"])
}

func TestGenerateOverSocket(t *testing.T) {
	conn, _, _ := setup(t)
	expect(t, conn, "connected")

	send(t, conn, "generate", map[string]string{"prompt": "a greeting"})

	start := expect(t, conn, "generation_start")
	assert.NotEmpty(t, start.Data["submission_id"])

	got := collect(t, conn, "generation_complete", "frame")
	done := got["generation_complete"]
	assert.Equal(t, generation.SourceLLM, done.Data["source"])
	assert.Equal(t, start.Data["submission_id"], done.Data["submission_id"])

	frame := got["frame"]
	assert.Equal(t, preview.TriggerGeneration, frame.Data["trigger"])
	assert.Contains(t, frame.Data["document"], `id="x"`)
}

func TestSocketErrors(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		data    interface{}
		code    string
	}{
		{"unknown type", "dance", nil, "INVALID_REQUEST"},
		{"empty prompt", "generate", map[string]string{"prompt": "   "}, "INVALID_REQUEST"},
		{"bad submission id", "generate", map[string]string{"prompt": "x", "submission_id": "nope"}, "INVALID_REQUEST"},
		{"update without data", "update", nil, "INVALID_REQUEST"},
		{"rendered without data", "rendered", nil, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, _ := setup(t)
			expect(t, conn, "connected")

			send(t, conn, tt.msgType, tt.data)
			msg := expect(t, conn, "error")
			assert.Equal(t, tt.code, msg.Data["code"])
			assert.NotEmpty(t, msg.Data["message"])
		})
	}
}

func TestMalformedMessage(t *testing.T) {
	conn, _, _ := setup(t)
	expect(t, conn, "connected")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := expect(t, conn, "error")
	assert.Equal(t, "INVALID_REQUEST", msg.Data["code"])
}

func TestPingPong(t *testing.T) {
	conn, _, _ := setup(t)
	expect(t, conn, "connected")

	send(t, conn, "ping", nil)
	expect(t, conn, "pong")
}
