package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
)

const maxDiagnosticMessage = 2000

// Compose returns the sandboxed document for a payload. The body may be
// the flat contract or the legacy envelope.
func (h *Handlers) Compose(c *gin.Context) {
	p, ok := h.bindPayload(c)
	if !ok {
		return
	}
	doc := preview.Compose(p)
	c.JSON(http.StatusOK, gin.H{
		"document": doc.Source,
		"hash":     doc.Hash,
		"csp":      preview.ContentSecurityPolicy,
	})
}

// Verify runs a payload in the headless sandbox and reports what its
// scripts did.
func (h *Handlers) Verify(c *gin.Context) {
	if h.harness == nil {
		h.respondError(c, errSandboxDisabled)
		return
	}
	p, ok := h.bindPayload(c)
	if !ok {
		return
	}

	report, err := h.harness.Verify(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     report.OK(),
		"report": report,
	})
}

func (h *Handlers) bindPayload(c *gin.Context) (payload.CodePayload, bool) {
	data, err := c.GetRawData()
	if err != nil {
		h.respondError(c, err)
		return payload.CodePayload{}, false
	}
	p, err := payload.Unwrap(data)
	if err != nil {
		badRequest(c, err.Error())
		return payload.CodePayload{}, false
	}
	return p, true
}

// RenderedRequest is the shell's acknowledgement of a frame.
type RenderedRequest struct {
	Generation uint64 `json:"generation" binding:"required"`
}

// Rendered acknowledges that the shell displayed a generation. Stale
// acknowledgements are accepted but change nothing.
func (h *Handlers) Rendered(c *gin.Context) {
	var req RenderedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "generation is required")
		return
	}
	acked := h.surface.Acknowledge(req.Generation)
	c.JSON(http.StatusOK, gin.H{
		"acknowledged": acked,
		"state":        h.surface.State().String(),
	})
}

// DiagnosticRequest is a script error forwarded by the host shell.
type DiagnosticRequest struct {
	Kind       string `json:"kind" binding:"required"`
	Message    string `json:"message"`
	Generation uint64 `json:"generation"`
}

// Diagnostics records a script error reported from a live preview. The
// error stays contained: it is logged, counted and published, never
// raised.
func (h *Handlers) Diagnostics(c *gin.Context) {
	var req DiagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil || !preview.ValidKind(req.Kind) {
		badRequest(c, "kind must be one of load, runtime, promise")
		return
	}
	msg := req.Message
	if len(msg) > maxDiagnosticMessage {
		msg = msg[:maxDiagnosticMessage]
	}
	diag := preview.ScriptError{
		Kind:       req.Kind,
		Message:    strings.TrimSpace(msg),
		Origin:     preview.OriginShell,
		Generation: req.Generation,
		At:         time.Now().UTC(),
	}

	h.logger.Warn("Preview script error",
		zap.String("kind", diag.Kind),
		zap.String("message", diag.Message),
		zap.Uint64("generation", diag.Generation))
	if h.metrics != nil {
		h.metrics.RecordScriptError(diag.Kind, diag.Origin)
	}
	e := events.New(events.ScriptError, diag.Kind, map[string]string{
		"message": diag.Message,
		"origin":  diag.Origin,
	})
	if err := h.publisher.Publish(c.Request.Context(), e); err != nil {
		h.logger.Debug("Failed to publish script error", zap.Error(err))
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "diagnostic": diag})
}

// currentFrame returns the newest frame, or an empty placeholder frame
// before anything was submitted.
func (h *Handlers) currentFrame() preview.Frame {
	if frame, ok := h.surface.Current(); ok {
		return frame
	}
	return preview.Frame{Document: preview.Compose(payload.CodePayload{})}
}

// Shell renders the host page holding the sandboxed iframe.
func (h *Handlers) Shell(c *gin.Context) {
	device, err := preview.ParseDevice(c.Query("device"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.HTML(http.StatusOK, preview.ShellTemplateName, preview.NewShellData(h.currentFrame(), device, h.breakpoints))
}

// Frame serves the composed document alone under a sandbox CSP.
func (h *Handlers) Frame(c *gin.Context) {
	doc := h.currentFrame().Document

	c.Header("Content-Security-Policy", preview.FrameHeaderPolicy)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("ETag", doc.ETag())
	if c.GetHeader("If-None-Match") == doc.ETag() {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.Source))
}
