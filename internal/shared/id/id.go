// Package id generates prefixed, time-sortable ULID identifiers.
//
// Prefixes keep logs readable and the typed wrappers stop a revision ID
// from being passed where a component ID is expected.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ComponentID identifies a saved component.
type ComponentID string

// RevisionID identifies one workspace revision.
type RevisionID string

// RequestID identifies an API request or trace.
type RequestID string

// SubmissionID identifies a generation submission.
type SubmissionID string

const (
	ComponentPrefix  = "cmp"
	RevisionPrefix   = "rev"
	RequestPrefix    = "req"
	SubmissionPrefix = "sub"
)

// Generator produces monotonic ULIDs. IDs minted within the same
// millisecond still sort in creation order.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy
// source, for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

func NewComponentID() ComponentID {
	return ComponentID(Default().GenerateWithPrefix(ComponentPrefix))
}

func NewRevisionID() RevisionID {
	return RevisionID(Default().GenerateWithPrefix(RevisionPrefix))
}

func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func NewSubmissionID() SubmissionID {
	return SubmissionID(Default().GenerateWithPrefix(SubmissionPrefix))
}

func (id ComponentID) String() string { return string(id) }
func (id RevisionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id SubmissionID) String() string { return string(id) }

// Split separates a prefixed ID and validates the ULID part.
func Split(s string) (prefix string, u ulid.ULID, err error) {
	prefix, raw, ok := strings.Cut(s, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", s)
	}
	u, err = ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", s, err)
	}
	return prefix, u, nil
}

// Valid reports whether s is a well-formed ID with the given prefix.
func Valid(s, prefix string) bool {
	p, _, err := Split(s)
	return err == nil && p == prefix
}

// Timestamp extracts the creation time of a prefixed ID.
func Timestamp(s string) (time.Time, error) {
	_, u, err := Split(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
