package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/domain/format"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
)

// GetWorkspace returns the current revision and preview state.
func (h *Handlers) GetWorkspace(c *gin.Context) {
	body := gin.H{
		"revision": h.workspace.Current(),
		"state":    h.surface.State().String(),
	}
	if frame, ok := h.surface.Current(); ok {
		body["generation"] = frame.Generation
	}
	c.JSON(http.StatusOK, body)
}

// PutWorkspace replaces the payload with a direct edit. Missing fields
// become empty strings.
func (h *Handlers) PutWorkspace(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		h.respondError(c, err)
		return
	}
	p, err := payload.Decode(data)
	if err != nil {
		badRequest(c, "body must be a {html, css, js} object")
		return
	}

	rev, err := h.workspace.Replace(c.Request.Context(), p, workspace.Change{Source: preview.TriggerEdit})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": rev})
}

// FormatWorkspace re-indents the current payload. Unchanged output does
// not create a revision.
func (h *Handlers) FormatWorkspace(c *gin.Context) {
	current := h.workspace.Current()
	formatted := format.Payload(current.Payload)
	if formatted == current.Payload {
		c.JSON(http.StatusOK, gin.H{"revision": current, "changed": false})
		return
	}

	rev, err := h.workspace.Replace(c.Request.Context(), formatted, workspace.Change{Source: preview.TriggerFormat})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": rev, "changed": true})
}

// History lists retained revisions, oldest first.
func (h *Handlers) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"revisions": h.workspace.History()})
}

// Restore makes an earlier revision current again.
func (h *Handlers) Restore(c *gin.Context) {
	rev, err := h.workspace.Restore(c.Request.Context(), id.RevisionID(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": rev})
}
