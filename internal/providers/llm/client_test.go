package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/tracing"
)

func testClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.BaseURL = srv.URL
	opts.MaxRetries = 0
	opts.Timeout = 2 * time.Second
	opts.ProbeTimeout = 500 * time.Millisecond
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts, zap.NewNop())
}

func TestGenerateSendsContract(t *testing.T) {
	var body generateBody
	var traceHeader string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		traceHeader = r.Header.Get(tracing.HeaderTraceID)

		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(data, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3","response":"{\"html\":\"<p>x</p>\"}","done":true,"total_duration":1500000}`)
	})

	tracer := tracing.New("test", zap.NewNop())
	t.Cleanup(tracer.Close)
	_, ctx := tracer.StartSpan(context.Background(), "generate")

	completion, err := client.Generate(ctx, GenerateRequest{Prompt: BuildPrompt("a button")})
	require.NoError(t, err)

	assert.Equal(t, `{"html":"<p>x</p>"}`, completion.Response)
	assert.Equal(t, 1500*time.Microsecond, completion.Duration)
	assert.Equal(t, "llama3", body.Model)
	assert.False(t, body.Stream)
	assert.InDelta(t, 0.7, body.Options.Temperature, 1e-9)
	assert.Equal(t, 2048, body.Options.NumPredict)
	assert.Contains(t, body.Prompt, `User Request: "a button"`)
	assert.Equal(t, string(tracing.TraceIDFrom(ctx)), traceHeader)
}

func TestGenerateModelOverride(t *testing.T) {
	var model string
	var temperature float64
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body generateBody
		data, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(data, &body)
		model = body.Model
		temperature = body.Options.Temperature
		_, _ = io.WriteString(w, `{"response":"ok"}`)
	})

	completion, err := client.Generate(context.Background(), GenerateRequest{Model: "codellama", Prompt: "p", Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "codellama", model)
	assert.Equal(t, "codellama", completion.Model)
	assert.InDelta(t, 0.3, temperature, 1e-9)
}

func TestGenerateNon2xxIsUnavailable(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `model "nope" not found`, http.StatusNotFound)
	})

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
	assert.Contains(t, err.Error(), "404")
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	t.Cleanup(func() { close(release) })

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestGenerateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	opts := DefaultOptions()
	opts.BaseURL = url
	opts.MaxRetries = 0
	client := New(opts, zap.NewNop())

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
}

func TestGenerateCallerCancellationPassesThrough(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Generate(ctx, GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrEndpointUnavailable)
	assert.Equal(t, uint32(0), client.Breaker().Counts().TotalFailures)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 3; i++ {
		_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
		require.ErrorIs(t, err, ErrEndpointUnavailable)
	}
	require.Equal(t, resilience.StateOpen, client.Breaker().State())

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the endpoint")
}

func TestProbe(t *testing.T) {
	up := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, up.Probe(context.Background()))

	down := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	assert.ErrorIs(t, down.Probe(context.Background()), ErrEndpointUnavailable)
}

func TestProbeTimesOutQuickly(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(o *Options) { o.ProbeTimeout = 50 * time.Millisecond })

	start := time.Now()
	err := client.Probe(context.Background())
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestModels(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = io.WriteString(w, `{"models":[{"name":"llama3:latest","size":42,"digest":"abc","modified_at":"2024-05-01T10:00:00Z"}]}`)
	})

	models, err := client.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3:latest", models[0].Name)
	assert.Equal(t, int64(42), models[0].Size)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(`a "fancy" card`)
	assert.Contains(t, prompt, `User Request: "a \"fancy\" card"`)
	assert.Contains(t, prompt, "YOUR_HTML_CODE_HERE")
	assert.Contains(t, prompt, `escaped as \n.`)
	assert.False(t, strings.Contains(prompt, "%!"))
}

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := BuildAnalysisPrompt("<p>x</p>", "p{}", "go();")
	assert.Contains(t, prompt, "HTML:\n<p>x</p>\n")
	assert.Contains(t, prompt, "CSS:\np{}\n")
	assert.Contains(t, prompt, "JavaScript:\ngo();\n")
	assert.Contains(t, prompt, `"smartName"`)
	assert.Contains(t, prompt, `"optimizedCode"`)
}

func TestBuildVariationPrompt(t *testing.T) {
	assert.Equal(t, "a login form. Style: Retro - Vintage-inspired",
		BuildVariationPrompt(" a login form ", "Retro", "Vintage-inspired"))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, classify(ctx, "x", nil))
	assert.ErrorIs(t, classify(ctx, "x", context.DeadlineExceeded), ErrRequestTimeout)
	assert.ErrorIs(t, classify(ctx, "x", errors.New("connection refused")), ErrEndpointUnavailable)

	wrapped := classify(ctx, "x", ErrRequestTimeout)
	assert.Equal(t, ErrRequestTimeout, wrapped)
}
