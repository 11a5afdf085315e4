package catalog

import (
	"context"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
)

// Replacer is the part of the workspace that loading needs.
type Replacer interface {
	Replace(ctx context.Context, p payload.CodePayload, change workspace.Change) (workspace.Revision, error)
}

// LoadComponent makes a saved component the current workspace payload.
func (c *Catalog) LoadComponent(ctx context.Context, ws Replacer, cid id.ComponentID) (workspace.Revision, error) {
	comp, err := c.Get(ctx, cid)
	if err != nil {
		return workspace.Revision{}, err
	}
	return ws.Replace(ctx, comp.Payload, workspace.Change{Source: preview.TriggerComponent})
}

// LoadTemplate makes a gallery template the current workspace payload.
func (g *Gallery) LoadTemplate(ctx context.Context, ws Replacer, tid string) (workspace.Revision, error) {
	t, err := g.Get(tid)
	if err != nil {
		return workspace.Revision{}, err
	}
	return ws.Replace(ctx, t.Payload, workspace.Change{Source: preview.TriggerTemplate})
}
