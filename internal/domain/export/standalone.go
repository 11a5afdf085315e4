package export

import (
	"errors"
	"html"
	"strings"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
)

// Inert blocks carry the payload verbatim. The browser never runs or
// renders them; ParseStandalone reads them back.
const (
	markupOpen = `<script type="text/plain" id="component-markup">`
	cssOpen    = `<script type="text/plain" id="component-css">`
	sourceOpen = `<script type="text/plain" id="component-source">`
	blockClose = "</script>"
	styleOpen  = `<style id="component-style">`
)

const runner = `<script>
(function () {
  var node = document.getElementById('component-source');
  var src = node ? node.textContent.replace(/<\\/g, '<') : '';
  try {
    (0, eval)(src);
  } catch (error) {
    console.error('JavaScript error:', error);
  }
})();
</script>`

var errNotStandalone = errors.New("not a standalone component document")

// Standalone renders p as a single self-contained HTML file that shows
// exactly what the preview shows: the same defanged markup and
// sanitized css, with the js run by a guarded loader at the end of the
// body. The unmodified payload travels in inert blocks in the head, so
// ParseStandalone recovers p exactly.
func Standalone(p payload.CodePayload, title string) string {
	var b strings.Builder
	b.Grow(2*p.Size() + len(runner) + 768)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("  <title>" + html.EscapeString(title) + "</title>\n")
	writeBlock(&b, markupOpen, p.HTML)
	writeBlock(&b, cssOpen, p.CSS)
	writeBlock(&b, sourceOpen, p.JS)
	b.WriteString("  " + styleOpen + "\n" + preview.SanitizeCSS(p.CSS) + "\n</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(preview.Markup(p.HTML) + "\n\n")
	b.WriteString(runner + "\n</body>\n</html>\n")
	return b.String()
}

func writeBlock(b *strings.Builder, open, text string) {
	b.WriteString(open + "\n" + preview.EncodeSource(text) + "\n" + blockClose + "\n")
}

// ParseStandalone extracts the payload from a document produced by
// Standalone.
func ParseStandalone(doc string) (payload.CodePayload, error) {
	// Nothing before the first block can contain its open tag: the title
	// is escaped and the blocks precede the style and body.
	at := strings.Index(doc, markupOpen)
	if at < 0 {
		return payload.CodePayload{}, errNotStandalone
	}
	rest := doc[at:]

	var parts [3]string
	for i, open := range []string{markupOpen, cssOpen, sourceOpen} {
		text, next, ok := readBlock(rest, open)
		if !ok {
			return payload.CodePayload{}, errNotStandalone
		}
		parts[i] = preview.DecodeRaw(text)
		rest = next
	}
	return payload.New(parts[0], parts[1], parts[2]), nil
}

// readBlock reads one inert block at the start of s, ignoring leading
// whitespace. Encoded text never contains "</script", so the first
// closer ends the block.
func readBlock(s, open string) (text, rest string, ok bool) {
	s, ok = strings.CutPrefix(strings.TrimLeft(s, " \t\r\n"), open)
	if !ok {
		return "", "", false
	}
	end := strings.Index(s, blockClose)
	if end < 0 {
		return "", "", false
	}
	return trimOneNewline(s[:end]), s[end+len(blockClose):], true
}

// trimOneNewline removes exactly the newline the writer put on each side.
func trimOneNewline(s string) string {
	s = strings.TrimPrefix(s, "\n")
	return strings.TrimSuffix(s, "\n")
}
