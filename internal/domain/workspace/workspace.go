// Package workspace holds the payload the user is currently working on and
// the revisions that led to it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
	"github.com/GriffinCanCode/uibuilder/internal/storage"
)

// Storage keys.
const (
	CurrentKey = "workspace:current"
	HistoryKey = "workspace:history"
)

// DefaultHistory bounds the number of revisions kept.
const DefaultHistory = 50

// ErrRevisionNotFound is returned by Restore for an unknown revision.
var ErrRevisionNotFound = errors.New("revision not found")

// Revision is one immutable state of the workspace.
type Revision struct {
	ID        id.RevisionID       `json:"id"`
	Number    uint64              `json:"number"`
	Payload   payload.CodePayload `json:"payload"`
	Source    string              `json:"source"`
	Prompt    string              `json:"prompt,omitempty"`
	Fallback  bool                `json:"fallback,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Change describes what produced a new revision.
type Change struct {
	Source   string
	Prompt   string
	Fallback bool
}

// Options configure a Workspace.
type Options struct {
	History   int
	Publisher events.Publisher
}

// Workspace is safe for concurrent use. Readers get copies; every change
// produces a new Revision.
type Workspace struct {
	store     storage.Store
	publisher events.Publisher
	logger    *zap.Logger
	limit     int

	mu      sync.RWMutex
	current Revision
	history []Revision

	subMu  sync.Mutex
	subs   map[int]chan Revision
	nextID int
}

// New creates an empty workspace backed by store.
func New(store storage.Store, opts Options, logger *zap.Logger) *Workspace {
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{
		store:     store,
		publisher: opts.Publisher,
		logger:    logger.Named("workspace"),
		limit:     opts.History,
		subs:      make(map[int]chan Revision),
	}
}

// Load restores the persisted payload and history. A missing record
// leaves the workspace empty.
func (w *Workspace) Load(ctx context.Context) error {
	data, err := w.store.Get(ctx, CurrentKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	p, err := payload.Decode(data)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	var history []Revision
	if raw, err := w.store.Get(ctx, HistoryKey); err == nil {
		if err := sonic.ConfigStd.Unmarshal(raw, &history); err != nil {
			w.logger.Warn("Discarding unreadable workspace history", zap.Error(err))
			history = nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load workspace history: %w", err)
	}

	datePersisted(history, w.logger)

	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(history); n > 0 && history[n-1].Payload == p {
		w.current = history[n-1]
	} else {
		var number uint64
		if n > 0 {
			number = history[n-1].Number
		}
		w.current = Revision{
			ID:        id.NewRevisionID(),
			Number:    number + 1,
			Payload:   p,
			Source:    preview.TriggerRestore,
			CreatedAt: time.Now().UTC(),
		}
		history = append(history, w.current)
	}
	w.history = trim(history, w.limit)

	w.logger.Info("Workspace restored",
		zap.Uint64("revision", w.current.Number),
		zap.Int("history", len(w.history)))
	return nil
}

// datePersisted fills a missing created_at from the time encoded in the
// revision ID.
func datePersisted(history []Revision, logger *zap.Logger) {
	for i := range history {
		if !history[i].CreatedAt.IsZero() {
			continue
		}
		ts, err := id.Timestamp(history[i].ID.String())
		if err != nil {
			logger.Warn("Revision has no creation time", zap.String("id", history[i].ID.String()), zap.Error(err))
			continue
		}
		history[i].CreatedAt = ts.UTC()
	}
}

// Current returns the latest revision. The zero Revision means nothing
// has been set yet.
func (w *Workspace) Current() Revision {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// History returns revisions oldest first.
func (w *Workspace) History() []Revision {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Revision(nil), w.history...)
}

// Replace makes p the current payload, persists it and notifies
// subscribers.
func (w *Workspace) Replace(ctx context.Context, p payload.CodePayload, change Change) (Revision, error) {
	data, err := p.Encode()
	if err != nil {
		return Revision{}, fmt.Errorf("encode workspace: %w", err)
	}

	w.mu.Lock()
	rev := Revision{
		ID:        id.NewRevisionID(),
		Number:    w.current.Number + 1,
		Payload:   p,
		Source:    change.Source,
		Prompt:    change.Prompt,
		Fallback:  change.Fallback,
		CreatedAt: time.Now().UTC(),
	}
	history := trim(append(append([]Revision(nil), w.history...), rev), w.limit)

	if err := w.persist(ctx, data, history); err != nil {
		w.mu.Unlock()
		return Revision{}, err
	}
	w.current = rev
	w.history = history
	w.mu.Unlock()

	w.notify(rev)
	if err := w.publisher.Publish(ctx, events.New(events.WorkspaceUpdated, rev.ID.String(), map[string]string{
		"source":   rev.Source,
		"revision": strconv.FormatUint(rev.Number, 10),
		"hash":     p.Hash(),
	})); err != nil {
		w.logger.Warn("Failed to publish workspace event", zap.Error(err))
	}

	w.logger.Debug("Workspace updated",
		zap.String("revision", rev.ID.String()),
		zap.String("source", rev.Source),
		zap.Int("size", p.Size()))
	return rev, nil
}

// Restore makes an earlier revision current again as a new revision.
func (w *Workspace) Restore(ctx context.Context, revID id.RevisionID) (Revision, error) {
	w.mu.RLock()
	var found *Revision
	for i := range w.history {
		if w.history[i].ID == revID {
			r := w.history[i]
			found = &r
			break
		}
	}
	w.mu.RUnlock()

	if found == nil {
		return Revision{}, fmt.Errorf("%w: %s", ErrRevisionNotFound, revID)
	}
	return w.Replace(ctx, found.Payload, Change{Source: preview.TriggerRestore, Prompt: found.Prompt})
}

func (w *Workspace) persist(ctx context.Context, current []byte, history []Revision) error {
	if err := w.store.Set(ctx, CurrentKey, current); err != nil {
		return fmt.Errorf("persist workspace: %w", err)
	}
	raw, err := sonic.ConfigStd.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode workspace history: %w", err)
	}
	if err := w.store.Set(ctx, HistoryKey, raw); err != nil {
		return fmt.Errorf("persist workspace history: %w", err)
	}
	return nil
}

// Subscribe returns a channel that receives every new revision. Slow
// subscribers only see the latest one. cancel closes the channel.
func (w *Workspace) Subscribe() (<-chan Revision, func()) {
	ch := make(chan Revision, 1)

	w.subMu.Lock()
	key := w.nextID
	w.nextID++
	w.subs[key] = ch
	w.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.subMu.Lock()
			delete(w.subs, key)
			w.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (w *Workspace) notify(rev Revision) {
	w.subMu.Lock()
	defer w.subMu.Unlock()

	for _, ch := range w.subs {
		select {
		case ch <- rev:
			continue
		default:
		}
		// drop the stale revision and offer the new one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- rev:
		default:
		}
	}
}

func trim(history []Revision, limit int) []Revision {
	if len(history) <= limit {
		return history
	}
	return append([]Revision(nil), history[len(history)-limit:]...)
}

// Mirror submits the current revision and every later one to surface
// until ctx is done. Each revision is submitted once.
func (w *Workspace) Mirror(ctx context.Context, surface *preview.Surface) {
	ch, cancel := w.Subscribe()
	defer cancel()

	var last id.RevisionID
	submit := func(rev Revision) {
		if rev.ID == last {
			return
		}
		last = rev.ID
		surface.Submit(rev.Payload, rev.Source)
	}

	if cur := w.Current(); cur.Number > 0 {
		submit(cur)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case rev, ok := <-ch:
			if !ok {
				return
			}
			submit(rev)
		}
	}
}
