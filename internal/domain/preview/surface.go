package preview

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

// State of a preview surface.
type State int

const (
	Idle State = iota
	Composing
	Rendering
	Rendered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Composing:
		return "composing"
	case Rendering:
		return "rendering"
	case Rendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Triggers that cause a new frame.
const (
	TriggerGeneration = "generation"
	TriggerEdit       = "edit"
	TriggerTemplate   = "template"
	TriggerComponent  = "component"
	TriggerImport     = "import"
	TriggerFormat     = "format"
	TriggerRestore    = "restore"
)

// Frame is one fully composed document handed to the isolated context.
// Frames are immutable; a newer generation always replaces an older one.
type Frame struct {
	Generation uint64              `json:"generation"`
	Trigger    string              `json:"trigger"`
	Payload    payload.CodePayload `json:"-"`
	Document   Document            `json:"-"`
	ComposedAt time.Time           `json:"composed_at"`
}

// Surface holds the render state machine for one preview.
type Surface struct {
	composer *Composer

	mu      sync.Mutex
	state   State
	gen     uint64
	current Frame
	subs    map[int]chan Frame
	nextSub int
}

func NewSurface(composer *Composer) *Surface {
	return &Surface{
		composer: composer,
		subs:     make(map[int]chan Frame),
	}
}

// Submit composes p and makes it the current frame, replacing whatever
// was shown before. Subscribers receive the new frame.
func (s *Surface) Submit(p payload.CodePayload, trigger string) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Composing
	doc := s.composer.Compose(p, trigger)

	s.gen++
	s.current = Frame{
		Generation: s.gen,
		Trigger:    trigger,
		Payload:    p,
		Document:   doc,
		ComposedAt: time.Now().UTC(),
	}
	s.state = Rendering

	for _, ch := range s.subs {
		offer(ch, s.current)
	}
	return s.current
}

// Acknowledge marks generation gen as rendered. Acks for superseded
// generations are ignored and report false.
func (s *Surface) Acknowledge(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != Rendering {
		return false
	}
	s.state = Rendered
	return true
}

func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the latest frame, if any.
func (s *Surface) Current() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.gen > 0
}

// Subscribe returns a channel that always holds the newest frame not yet
// read. Older unread frames are dropped. Call cancel to unsubscribe.
func (s *Surface) Subscribe() (<-chan Frame, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Frame, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// offer replaces any unread frame with f. Callers hold s.mu.
func offer(ch chan Frame, f Frame) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- f:
	default:
	}
}
