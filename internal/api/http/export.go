package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/api/middleware"
	"github.com/GriffinCanCode/uibuilder/internal/domain/export"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
)

var errEmptyWorkspace = errors.New("workspace is empty")

// Export downloads the current payload in the requested format.
func (h *Handlers) Export(c *gin.Context) {
	f, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	current := h.workspace.Current()
	if current.Number == 0 {
		middleware.Abort(c, http.StatusNotFound, middleware.CodeNotFound, errEmptyWorkspace.Error())
		return
	}

	artifact, err := export.Export(f, current.Payload, c.Query("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

// Import reads an uploaded html document from the "file" form field and
// makes it the workspace payload.
func (h *Handlers) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if fh.Size > export.MaxImportBytes {
		middleware.Abort(c, http.StatusRequestEntityTooLarge, middleware.CodePayloadTooLarge, "import is too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, export.MaxImportBytes+1))
	if err != nil {
		h.respondError(c, err)
		return
	}
	p, err := export.Import(data)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rev, err := h.workspace.Replace(c.Request.Context(), p, workspace.Change{Source: preview.TriggerImport})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"revision": rev, "filename": fh.Filename})
}
