package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/api/middleware"
	"github.com/GriffinCanCode/uibuilder/internal/domain/generation"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
)

// GenerateRequest is the body of POST /api/v1/generate.
type GenerateRequest struct {
	Prompt       string `json:"prompt" binding:"required"`
	Model        string `json:"model"`
	SubmissionID string `json:"submission_id"`
}

// Generate runs a prompt through the model. Endpoint failures still
// answer 200 with a fallback payload.
func (h *Handlers) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "prompt is required")
		return
	}
	if req.SubmissionID != "" && !id.Valid(req.SubmissionID, id.SubmissionPrefix) {
		badRequest(c, "submission_id is not a valid submission id")
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), generation.Request{
		Prompt:       req.Prompt,
		Model:        strings.TrimSpace(req.Model),
		SubmissionID: id.SubmissionID(req.SubmissionID),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// NormalizeRequest is the body of POST /api/v1/normalize.
type NormalizeRequest struct {
	Raw string `json:"raw"`
}

// Normalize exposes the normalizer on its own. A failure answers 422
// with the tagged failure in details.
func (h *Handlers) Normalize(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"raw\": string}")
		return
	}

	res := h.normalizer.Normalize(req.Raw)
	if res.Failure != nil {
		middleware.AbortWithDetails(c, http.StatusUnprocessableEntity, middleware.CodeInvalidRequest,
			res.Failure.Error(), res.Failure)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payload": res.Payload,
		"repairs": res.Repairs,
	})
}

// Models lists models installed on the endpoint.
func (h *Handlers) Models(c *gin.Context) {
	models, err := h.llm.Models(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"models":  models,
		"default": h.llm.Model(),
	})
}
