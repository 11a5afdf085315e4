package normalizer

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Kind categorizes why a response could not be normalized.
type Kind string

const (
	KindNoJSONFound        Kind = "NoJsonFound"
	KindMalformedJSON      Kind = "MalformedJson"
	KindMissingFields      Kind = "MissingFields"
	KindPlaceholderContent Kind = "PlaceholderContent"
)

// Stage is the pipeline stage at which normalization gave up.
type Stage string

const (
	StageExtraction  Stage = "extraction"
	StageStructural  Stage = "structural"
	StagePlaceholder Stage = "placeholder"
)

// SnippetLimit bounds the offending text carried by a Failure, in runes.
const SnippetLimit = 160

var (
	ErrNoJSONFound        = errors.New("no json object found")
	ErrMalformedJSON      = errors.New("malformed json")
	ErrMissingFields      = errors.New("missing required fields")
	ErrPlaceholderContent = errors.New("placeholder content")
)

// Failure is the tagged outcome of a rejected response.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Stage   Stage  `json:"stage"`
	Reason  string `json:"reason"`
	Snippet string `json:"snippet"`
	Err     error  `json:"-"`
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("normalize %s (%s): %s", f.Kind, f.Stage, f.Reason)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := []error{sentinel(f.Kind)}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func sentinel(k Kind) error {
	switch k {
	case KindNoJSONFound:
		return ErrNoJSONFound
	case KindMalformedJSON:
		return ErrMalformedJSON
	case KindMissingFields:
		return ErrMissingFields
	default:
		return ErrPlaceholderContent
	}
}

func fail(kind Kind, stage Stage, reason, text string, cause error) *Failure {
	return &Failure{
		Kind:    kind,
		Stage:   stage,
		Reason:  reason,
		Snippet: Snippet(text),
		Err:     cause,
	}
}

// Snippet truncates s to SnippetLimit runes.
func Snippet(s string) string {
	if utf8.RuneCountInString(s) <= SnippetLimit {
		return s
	}
	n := 0
	for i := range s {
		if n == SnippetLimit {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
