// Package format re-indents component source for display.
//
// Every formatter here only adds, removes or moves whitespace between
// tokens: stripping all whitespace from the output gives the input with
// all whitespace stripped. Strings, comments, template literals and the
// contents of pre, textarea, script and style elements are left alone.
package format

import (
	"strings"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

const unit = "  "

// Payload formats all three fields of p.
func Payload(p payload.CodePayload) payload.CodePayload {
	return payload.New(HTML(p.HTML), CSS(p.CSS), JS(p.JS))
}

func pad(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat(unit, depth)
}
