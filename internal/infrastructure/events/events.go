// Package events publishes domain events. The NATS publisher fans them
// out to other processes; Memory keeps them in-process for tests and
// single-node setups.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Event types
const (
	GenerationCompleted = "generation.completed"
	GenerationFallback  = "generation.fallback"
	ScriptError         = "preview.script_error"
	WorkspaceUpdated    = "workspace.updated"
	ComponentSaved      = "component.saved"
	ComponentDeleted    = "component.deleted"
)

// Event is the envelope published for every domain change.
type Event struct {
	Type      string            `json:"type"`
	Subject   string            `json:"subject,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// New stamps an event with the current time.
func New(eventType, subject string, attrs map[string]string) Event {
	return Event{
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Attrs:     attrs,
	}
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return sonic.ConfigStd.Marshal(e)
}

// Decode parses a wire event.
func Decode(data []byte) (Event, error) {
	var e Event
	err := sonic.ConfigStd.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events. Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error { return nil }

// Memory records events and delivers them to in-process handlers.
type Memory struct {
	mu       sync.Mutex
	events   []Event
	handlers []func(Event)
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.events = append(m.events, e)
	handlers := append([]func(Event){}, m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
	return nil
}

// Subscribe registers a handler for every subsequent event.
func (m *Memory) Subscribe(h func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// OfType filters recorded events by type.
func (m *Memory) OfType(eventType string) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) Close() error { return nil }
