// Package http exposes the builder over a JSON API, the preview host
// shell and the composed preview frame.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/api/middleware"
	"github.com/GriffinCanCode/uibuilder/internal/domain/catalog"
	"github.com/GriffinCanCode/uibuilder/internal/domain/export"
	"github.com/GriffinCanCode/uibuilder/internal/domain/generation"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/refine"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
	"github.com/GriffinCanCode/uibuilder/internal/providers/sandbox"
)

var errSandboxDisabled = errors.New("sandbox verification is disabled")

// Endpoint is the part of the LLM client the API reads from directly.
type Endpoint interface {
	Probe(ctx context.Context) error
	Models(ctx context.Context) ([]llm.Model, error)
	Model() string
}

// Dependencies are the services behind the handlers.
type Dependencies struct {
	LLM         Endpoint
	Generator   *generation.Service
	Refiner     *refine.Service
	Normalizer  *normalizer.Normalizer
	Workspace   *workspace.Workspace
	Surface     *preview.Surface
	Harness     *sandbox.Harness
	Catalog     *catalog.Catalog
	Gallery     *catalog.Gallery
	Publisher   events.Publisher
	Metrics     *monitoring.Metrics
	Breakpoints preview.Breakpoints
	Logger      *zap.Logger
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	llm         Endpoint
	generator   *generation.Service
	refiner     *refine.Service
	normalizer  *normalizer.Normalizer
	workspace   *workspace.Workspace
	surface     *preview.Surface
	harness     *sandbox.Harness
	catalog     *catalog.Catalog
	gallery     *catalog.Gallery
	publisher   events.Publisher
	metrics     *monitoring.Metrics
	breakpoints preview.Breakpoints
	logger      *zap.Logger
	started     time.Time
}

// NewHandlers creates a new handler set.
func NewHandlers(deps Dependencies) *Handlers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Gallery == nil {
		deps.Gallery = catalog.NewGallery()
	}
	return &Handlers{
		llm:         deps.LLM,
		generator:   deps.Generator,
		refiner:     deps.Refiner,
		normalizer:  deps.Normalizer,
		workspace:   deps.Workspace,
		surface:     deps.Surface,
		harness:     deps.Harness,
		catalog:     deps.Catalog,
		gallery:     deps.Gallery,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		breakpoints: deps.Breakpoints,
		logger:      deps.Logger.Named("http"),
		started:     time.Now(),
	}
}

// Register mounts every route on r. The preview shell template is
// installed on r as well.
func (h *Handlers) Register(r *gin.Engine) {
	r.SetHTMLTemplate(preview.ShellTemplate())

	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics/json", h.MetricsJSON)
	}

	r.GET("/preview", h.Shell)
	r.GET("/preview/frame", h.Frame)

	api := r.Group("/api/v1")
	api.POST("/generate", h.Generate)
	api.POST("/normalize", h.Normalize)
	api.POST("/analyze", h.Analyze)
	api.POST("/variations", h.Variations)
	api.GET("/models", h.Models)

	api.GET("/workspace", h.GetWorkspace)
	api.PUT("/workspace", h.PutWorkspace)
	api.POST("/workspace/format", h.FormatWorkspace)
	api.GET("/workspace/history", h.History)
	api.POST("/workspace/restore/:id", h.Restore)

	api.POST("/preview/compose", h.Compose)
	api.POST("/preview/verify", h.Verify)
	api.POST("/preview/rendered", h.Rendered)
	api.POST("/preview/diagnostics", h.Diagnostics)

	api.GET("/export/:format", h.Export)
	api.POST("/import", h.Import)

	api.GET("/components", h.ListComponents)
	api.POST("/components", h.SaveComponent)
	api.GET("/components/:id", h.GetComponent)
	api.DELETE("/components/:id", h.DeleteComponent)
	api.POST("/components/:id/load", h.LoadComponent)

	api.GET("/templates", h.ListTemplates)
	api.GET("/templates/:id", h.GetTemplate)
	api.POST("/templates/:id/load", h.LoadTemplate)

	r.NoRoute(middleware.NoRoute)
}

// Health reports liveness plus a probe of the LLM endpoint. The service
// stays healthy while the endpoint is down since generation falls back.
func (h *Handlers) Health(c *gin.Context) {
	llmStatus := gin.H{"model": h.llm.Model(), "reachable": true}
	if err := h.llm.Probe(c.Request.Context()); err != nil {
		llmStatus["reachable"] = false
		llmStatus["error"] = err.Error()
	}
	if b, ok := h.llm.(interface{ Breaker() *resilience.Breaker }); ok {
		llmStatus["breaker"] = b.Breaker().State().String()
	}

	body := gin.H{
		"status":         "healthy",
		"llm":            llmStatus,
		"workspace":      gin.H{"revision": h.workspace.Current().Number},
		"preview":        gin.H{"state": h.surface.State().String()},
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if h.harness != nil {
		body["sandbox"] = h.harness.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// respondError maps domain errors onto status codes and the error
// envelope.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && code == middleware.CodeInternal {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	middleware.Abort(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, middleware.CodePayloadTooLarge
	case errors.Is(err, generation.ErrEmptyPrompt),
		errors.Is(err, refine.ErrEmptyPrompt),
		errors.Is(err, refine.ErrEmptyComponent),
		errors.Is(err, catalog.ErrEmptyComponent),
		errors.Is(err, export.ErrEmptyImport),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest, middleware.CodeInvalidRequest
	case errors.Is(err, export.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, middleware.CodeUnsupportedMediaType
	case errors.Is(err, generation.ErrSubmissionInFlight):
		return http.StatusConflict, middleware.CodeConflict
	case errors.Is(err, catalog.ErrComponentNotFound),
		errors.Is(err, catalog.ErrTemplateNotFound),
		errors.Is(err, workspace.ErrRevisionNotFound):
		return http.StatusNotFound, middleware.CodeNotFound
	case errors.Is(err, errSandboxDisabled):
		return http.StatusServiceUnavailable, middleware.CodeInternal
	case errors.Is(err, llm.ErrEndpointUnavailable), errors.Is(err, llm.ErrRequestTimeout):
		return http.StatusServiceUnavailable, middleware.CodeAIUnavailable
	default:
		return http.StatusInternalServerError, middleware.CodeInternal
	}
}

func badRequest(c *gin.Context, message string) {
	middleware.Abort(c, http.StatusBadRequest, middleware.CodeInvalidRequest, message)
}
