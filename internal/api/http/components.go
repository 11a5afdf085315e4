package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/domain/catalog"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
)

// SaveComponentRequest saves the given payload, or the current workspace
// payload when none is given. A non-empty id updates that component.
type SaveComponentRequest struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Tags        []string             `json:"tags"`
	Payload     *payload.CodePayload `json:"payload"`
}

// ListComponents lists saved components, newest first.
func (h *Handlers) ListComponents(c *gin.Context) {
	components, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"components": components, "count": len(components)})
}

// SaveComponent creates or updates a component.
func (h *Handlers) SaveComponent(c *gin.Context) {
	var req SaveComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid component body")
		return
	}
	if req.ID != "" && !id.Valid(req.ID, id.ComponentPrefix) {
		badRequest(c, "id is not a valid component id")
		return
	}

	p := h.workspace.Current().Payload
	if req.Payload != nil {
		p = *req.Payload
	}

	comp, err := h.catalog.Save(c.Request.Context(), catalog.Draft{
		ID:          id.ComponentID(req.ID),
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Payload:     p,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"component": comp})
}

// GetComponent returns one component.
func (h *Handlers) GetComponent(c *gin.Context) {
	comp, err := h.catalog.Get(c.Request.Context(), id.ComponentID(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"component": comp})
}

// DeleteComponent removes a component.
func (h *Handlers) DeleteComponent(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), id.ComponentID(c.Param("id"))); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadComponent makes a saved component the workspace payload.
func (h *Handlers) LoadComponent(c *gin.Context) {
	rev, err := h.catalog.LoadComponent(c.Request.Context(), h.workspace, id.ComponentID(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": rev})
}

// ListTemplates lists the template gallery.
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates := h.gallery.List()
	c.JSON(http.StatusOK, gin.H{"templates": templates, "count": len(templates)})
}

// GetTemplate returns one gallery template.
func (h *Handlers) GetTemplate(c *gin.Context) {
	t, err := h.gallery.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": t})
}

// LoadTemplate makes a gallery template the workspace payload.
func (h *Handlers) LoadTemplate(c *gin.Context) {
	rev, err := h.gallery.LoadTemplate(c.Request.Context(), h.workspace, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": rev})
}
