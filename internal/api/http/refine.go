package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/refine"
)

// AnalyzeRequest is the body of POST /api/v1/analyze. Without a
// payload the current workspace payload is analyzed.
type AnalyzeRequest struct {
	Payload *payload.CodePayload `json:"payload"`
	Model   string               `json:"model"`
}

// Analyze reviews a component. An unreachable model still answers 200
// with the heuristic name and the input unchanged.
func (h *Handlers) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "body must be {\"payload\": {html, css, js}, \"model\": string}")
		return
	}
	p := h.workspace.Current().Payload
	if req.Payload != nil {
		p = *req.Payload
	}

	analysis, err := h.refiner.Analyze(c.Request.Context(), p, strings.TrimSpace(req.Model))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// VariationsRequest is the body of POST /api/v1/variations. Styles the
// model cannot produce show payload, or the current workspace payload
// when it is omitted.
type VariationsRequest struct {
	Prompt  string               `json:"prompt" binding:"required"`
	Model   string               `json:"model"`
	Payload *payload.CodePayload `json:"payload"`
}

// Variations restyles a prompt once per design direction.
func (h *Handlers) Variations(c *gin.Context) {
	var req VariationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "prompt is required")
		return
	}
	base := h.workspace.Current().Payload
	if req.Payload != nil {
		base = *req.Payload
	}

	variations, err := h.refiner.Variations(c.Request.Context(), refine.VariationRequest{
		Prompt: req.Prompt,
		Model:  strings.TrimSpace(req.Model),
		Base:   base,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variations": variations})
}
