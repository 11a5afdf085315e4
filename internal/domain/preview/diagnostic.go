package preview

import (
	"errors"
	"fmt"
	"time"
)

// ErrRuntimeScript marks errors thrown by component js. They are contained
// in the preview and only ever reported, never raised to the host.
var ErrRuntimeScript = errors.New("runtime script error")

// Origins of a script error report.
const (
	OriginShell   = "shell"
	OriginHarness = "harness"
)

// ScriptError is one diagnostic reported from inside a preview.
type ScriptError struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Origin     string    `json:"origin"`
	Generation uint64    `json:"generation,omitempty"`
	At         time.Time `json:"at"`
}

func (e ScriptError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e ScriptError) Unwrap() error { return ErrRuntimeScript }

// ValidKind reports whether kind is one the guard emits.
func ValidKind(kind string) bool {
	switch kind {
	case KindLoad, KindRuntime, KindPromise:
		return true
	}
	return false
}
