// Package llm talks to an Ollama-compatible completion endpoint.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/tracing"
)

// Options configure the client.
type Options struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Temperature  float64
	NumPredict   int
	TopP         float64
	Stop         []string
	MaxRetries   int
	// RateLimit caps calls per second. Zero disables limiting.
	RateLimit float64
}

// DefaultOptions mirror a local Ollama install.
func DefaultOptions() Options {
	return Options{
		BaseURL:      "http://localhost:11434",
		Model:        "llama3",
		Timeout:      120 * time.Second,
		ProbeTimeout: 3 * time.Second,
		Temperature:  0.7,
		NumPredict:   2048,
		MaxRetries:   2,
	}
}

// GenerateRequest is one completion call. Empty fields fall back to
// the client options.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Temperature float64
}

// Completion is the endpoint's answer.
type Completion struct {
	Model    string
	Response string
	Duration time.Duration
}

// Model describes an installed model.
type Model struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

type generateBody struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature"`
	NumPredict  int      `json:"num_predict"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResult struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration"`
}

type tagsResult struct {
	Models []Model `json:"models"`
}

// Client is safe for concurrent use.
type Client struct {
	opts    Options
	resty   *resty.Client
	probe   *resty.Client
	breaker *resilience.Breaker
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New builds a client. Calls go through a retrying transport, a circuit
// breaker and an optional rate limiter.
func New(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOptions().BaseURL
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 3 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	api := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", "uibuilder/1.0").
		SetJSONMarshaler(sonic.ConfigStd.Marshal).
		SetJSONUnmarshaler(sonic.ConfigStd.Unmarshal)
	api.SetTransport(retryClient.StandardClient().Transport)
	api.OnBeforeRequest(injectTrace)

	probe := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", "uibuilder/1.0")
	probe.OnBeforeRequest(injectTrace)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	c := &Client{
		opts:    opts,
		resty:   api,
		probe:   probe,
		limiter: limiter,
		logger:  logger,
	}
	c.breaker = resilience.New("llm", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool { return counts.ConsecutiveFailures >= 3 },
		IsFailure:   countsAsFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// WithMetrics attaches a metrics collector.
func (c *Client) WithMetrics(m *monitoring.Metrics) *Client {
	c.metrics = m
	return c
}

// Model returns the default model name.
func (c *Client) Model() string {
	return c.opts.Model
}

// Breaker exposes the breaker state for health reporting.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

func injectTrace(_ *resty.Client, r *resty.Request) error {
	tracing.Inject(r.Context(), r.Header)
	return nil
}

// Probe checks liveness with a HEAD on the base URL, bounded by the
// probe timeout. It bypasses the breaker so recovery is seen promptly.
func (c *Client) Probe(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	resp, err := c.probe.R().SetContext(ctx).Head("/")
	switch {
	case err != nil:
		// A slow probe counts as unavailable, not as a timeout.
		err = fmt.Errorf("%w: probe: %v", ErrEndpointUnavailable, err)
	case !resp.IsSuccess():
		err = fmt.Errorf("%w: probe status %d", ErrEndpointUnavailable, resp.StatusCode())
	}
	c.record("probe", err, time.Since(start))
	return err
}

// Generate requests a single non-streaming completion.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Completion, error) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	start := time.Now()
	completion, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (Completion, error) {
		return c.generate(ctx, model, req)
	})
	if err != nil {
		err = c.wrapBreaker(err)
	}
	c.record("generate", err, time.Since(start))

	if err != nil {
		c.logger.Warn("Completion failed", zap.String("model", model), zap.Error(err))
		return Completion{}, err
	}
	c.logger.Debug("Completion received",
		zap.String("model", completion.Model),
		zap.Int("chars", len(completion.Response)),
		zap.Duration("duration", completion.Duration),
	)
	return completion, nil
}

func (c *Client) generate(ctx context.Context, model string, req GenerateRequest) (Completion, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, classify(ctx, "rate limit", err)
	}

	temperature := c.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	body := generateBody{
		Model:  model,
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: temperature,
			NumPredict:  c.opts.NumPredict,
			TopP:        c.opts.TopP,
			Stop:        c.opts.Stop,
		},
	}

	var result generateResult
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/api/generate")
	if err != nil {
		return Completion{}, classify(ctx, "generate", err)
	}
	if !resp.IsSuccess() {
		return Completion{}, fmt.Errorf("%w: generate status %d: %s",
			ErrEndpointUnavailable, resp.StatusCode(), truncate(resp.String(), 200))
	}

	if result.Model == "" {
		result.Model = model
	}
	return Completion{
		Model:    result.Model,
		Response: result.Response,
		Duration: time.Duration(result.TotalDuration),
	}, nil
}

// Models lists installed models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	start := time.Now()
	models, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) ([]Model, error) {
		var result tagsResult
		resp, err := c.resty.R().SetContext(ctx).SetResult(&result).Get("/api/tags")
		if err != nil {
			return nil, classify(ctx, "models", err)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("%w: models status %d", ErrEndpointUnavailable, resp.StatusCode())
		}
		return result.Models, nil
	})
	if err != nil {
		err = c.wrapBreaker(err)
	}
	c.record("models", err, time.Since(start))
	return models, err
}

func (c *Client) wrapBreaker(err error) error {
	if err == resilience.ErrCircuitOpen || err == resilience.ErrTooManyRequests {
		return fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	return err
}

func (c *Client) record(op string, err error, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordLLMCall(op, statusLabel(err), d)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
