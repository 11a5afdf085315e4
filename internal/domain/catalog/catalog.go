// Package catalog stores saved components and serves the template
// gallery.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/export"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
	"github.com/GriffinCanCode/uibuilder/internal/storage"
)

const (
	keyPrefix = "component:"
	indexKey  = "component:index"
)

var (
	ErrComponentNotFound = errors.New("component not found")
	ErrEmptyComponent    = errors.New("component has no html, css or js")
)

// Component is a saved payload with its metadata.
type Component struct {
	ID          id.ComponentID      `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Payload     payload.CodePayload `json:"payload"`
	Tags        []string            `json:"tags,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Draft is the input to Save. An empty ID creates a new component.
type Draft struct {
	ID          id.ComponentID
	Name        string
	Description string
	Tags        []string
	Payload     payload.CodePayload
}

// Catalog persists components in a storage.Store, one key per component
// plus an index of ids.
type Catalog struct {
	store     storage.Store
	publisher events.Publisher
	logger    *zap.Logger

	// mu serializes index read-modify-write cycles.
	mu sync.Mutex
}

// New creates a catalog.
func New(store storage.Store, publisher events.Publisher, logger *zap.Logger) *Catalog {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, publisher: publisher, logger: logger.Named("catalog")}
}

// Save creates or updates a component. A blank name is derived from the
// markup.
func (c *Catalog) Save(ctx context.Context, d Draft) (Component, error) {
	if d.Payload.IsEmpty() {
		return Component{}, ErrEmptyComponent
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	comp := Component{
		ID:          d.ID,
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Payload:     d.Payload,
		Tags:        normalizeTags(d.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if comp.Name == "" {
		comp.Name = export.SmartName(d.Payload.HTML)
	}

	if comp.ID == "" {
		comp.ID = id.NewComponentID()
	} else {
		existing, err := c.get(ctx, comp.ID)
		switch {
		case err == nil:
			comp.CreatedAt = existing.CreatedAt
		case errors.Is(err, ErrComponentNotFound):
		default:
			return Component{}, err
		}
	}

	data, err := sonic.ConfigStd.Marshal(comp)
	if err != nil {
		return Component{}, fmt.Errorf("encode component: %w", err)
	}
	if err := c.store.Set(ctx, keyPrefix+comp.ID.String(), data); err != nil {
		return Component{}, fmt.Errorf("save component: %w", err)
	}

	ids, err := c.index(ctx)
	if err != nil {
		return Component{}, err
	}
	if !contains(ids, comp.ID) {
		if err := c.writeIndex(ctx, append(ids, comp.ID)); err != nil {
			return Component{}, err
		}
	}

	c.publish(ctx, events.ComponentSaved, comp)
	c.logger.Info("Component saved", zap.String("id", comp.ID.String()), zap.String("name", comp.Name))
	return comp, nil
}

// Get returns one component.
func (c *Catalog) Get(ctx context.Context, cid id.ComponentID) (Component, error) {
	return c.get(ctx, cid)
}

func (c *Catalog) get(ctx context.Context, cid id.ComponentID) (Component, error) {
	data, err := c.store.Get(ctx, keyPrefix+cid.String())
	if errors.Is(err, storage.ErrNotFound) {
		return Component{}, fmt.Errorf("%w: %s", ErrComponentNotFound, cid)
	}
	if err != nil {
		return Component{}, fmt.Errorf("get component: %w", err)
	}

	var comp Component
	if err := sonic.ConfigStd.Unmarshal(data, &comp); err != nil {
		return Component{}, fmt.Errorf("decode component %s: %w", cid, err)
	}
	return comp, nil
}

// List returns every component, most recently updated first. Index
// entries whose record has gone are skipped.
func (c *Catalog) List(ctx context.Context) ([]Component, error) {
	ids, err := c.index(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Component, 0, len(ids))
	for _, cid := range ids {
		comp, err := c.get(ctx, cid)
		if errors.Is(err, ErrComponentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes a component.
func (c *Catalog) Delete(ctx context.Context, cid id.ComponentID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	comp, err := c.get(ctx, cid)
	if err != nil {
		return err
	}
	if err := c.store.Remove(ctx, keyPrefix+cid.String()); err != nil {
		return fmt.Errorf("delete component: %w", err)
	}

	ids, err := c.index(ctx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != cid {
			kept = append(kept, existing)
		}
	}
	if err := c.writeIndex(ctx, kept); err != nil {
		return err
	}

	c.publish(ctx, events.ComponentDeleted, comp)
	return nil
}

func (c *Catalog) index(ctx context.Context) ([]id.ComponentID, error) {
	data, err := c.store.Get(ctx, indexKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read component index: %w", err)
	}
	var ids []id.ComponentID
	if err := sonic.ConfigStd.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode component index: %w", err)
	}
	return ids, nil
}

func (c *Catalog) writeIndex(ctx context.Context, ids []id.ComponentID) error {
	data, err := sonic.ConfigStd.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode component index: %w", err)
	}
	if err := c.store.Set(ctx, indexKey, data); err != nil {
		return fmt.Errorf("write component index: %w", err)
	}
	return nil
}

func (c *Catalog) publish(ctx context.Context, eventType string, comp Component) {
	e := events.New(eventType, comp.ID.String(), map[string]string{"name": comp.Name})
	if err := c.publisher.Publish(ctx, e); err != nil {
		c.logger.Warn("Failed to publish catalog event", zap.String("type", eventType), zap.Error(err))
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func contains(ids []id.ComponentID, cid id.ComponentID) bool {
	for _, existing := range ids {
		if existing == cid {
			return true
		}
	}
	return false
}
