// Package preview composes payloads into isolated preview documents and
// tracks what each preview surface is showing.
package preview

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
)

// ContentSecurityPolicy is set on every composed document. Inline and
// eval'd script may run, nothing may be fetched, submitted or framed.
const ContentSecurityPolicy = "default-src 'none'; script-src 'unsafe-inline' 'unsafe-eval'; " +
	"style-src 'unsafe-inline'; img-src data: blob: https:; font-src data: https:; " +
	"connect-src 'none'; form-action 'none'; base-uri 'none'"

// FrameHeaderPolicy is the response header used when a document is
// served directly rather than through srcdoc.
const FrameHeaderPolicy = "sandbox allow-scripts"

const baseStyle = "body { margin: 0; padding: 20px; font-family: system-ui, sans-serif; }"

const emptyBody = `<div style="text-align:center;padding:20px;color:#666;">No HTML content available</div>`

// Document is a complete, self-contained preview document.
type Document struct {
	Source string
	Hash   string
}

func (d Document) String() string { return d.Source }

// ETag returns a strong entity tag for the document.
func (d Document) ETag() string { return `"` + d.Hash + `"` }

// Markup is the body markup shown for html: the defanged markup, or a
// notice when there is none.
func Markup(html string) string {
	if strings.TrimSpace(html) == "" {
		return emptyBody
	}
	return DefangHTML(html)
}

// Compose builds the isolated document for p. It is pure: the same
// payload always yields byte-identical output.
func Compose(p payload.CodePayload) Document {
	var b strings.Builder
	b.Grow(len(p.HTML) + len(p.CSS) + len(p.JS) + len(guardScript) + 1024)

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<meta http-equiv=\"Content-Security-Policy\" content=\"" + ContentSecurityPolicy + "\">\n")
	b.WriteString("<style>\n" + baseStyle + "\n")
	b.WriteString(SanitizeCSS(p.CSS))
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(Markup(p.HTML))
	b.WriteString("\n<script type=\"text/x-preview-source\" id=\"" + SourceElementID + "\">\n")
	b.WriteString(EncodeSource(p.JS))
	b.WriteString("\n</script>\n<script>\n")
	b.WriteString(guardScript)
	b.WriteString("\n</script>\n</body>\n</html>\n")

	src := b.String()
	sum := sha256.Sum256([]byte(src))
	return Document{Source: src, Hash: hex.EncodeToString(sum[:16])}
}

// Composer caches composed documents by payload hash.
type Composer struct {
	cache   *lru.Cache[string, Document]
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewComposer creates a composer holding up to size documents.
func NewComposer(size int, logger *zap.Logger) (*Composer, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, Document](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{cache: cache, logger: logger}, nil
}

// WithMetrics attaches a metrics collector.
func (c *Composer) WithMetrics(m *monitoring.Metrics) *Composer {
	c.metrics = m
	return c
}

// Compose returns the cached document for p, composing it on a miss.
func (c *Composer) Compose(p payload.CodePayload, trigger string) Document {
	key := p.Hash()
	doc, hit := c.cache.Get(key)
	if !hit {
		doc = Compose(p)
		c.cache.Add(key, doc)
	}

	if c.metrics != nil {
		c.metrics.RecordCacheLookup("document", hit)
		c.metrics.RecordComposition(trigger)
	}
	c.logger.Debug("Composed preview document",
		zap.String("trigger", trigger),
		zap.String("hash", doc.Hash),
		zap.Int("bytes", len(doc.Source)),
		zap.Bool("cached", hit),
	)
	return doc
}
