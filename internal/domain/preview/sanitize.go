package preview

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	scriptOpenTag = regexp.MustCompile(`(?i)<script`)
	styleClose    = regexp.MustCompile(`(?i)</style`)
	javascriptURL = regexp.MustCompile(`(?i)javascript\s*:`)
)

// urlAttrs carry a URL the browser may navigate to or load.
var urlAttrs = map[string]bool{
	"src": true, "href": true, "action": true, "formaction": true,
	"data": true, "xlink:href": true, "poster": true, "background": true,
}

// mediaTags may load data: URLs; nothing they load can run script.
var mediaTags = map[string]bool{
	"img": true, "source": true, "picture": true, "video": true, "audio": true, "track": true, "input": true,
}

// rawTextTags hold unparsed text in HTML, but their content is parsed
// as markup inside svg or math.
var rawTextTags = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true, "plaintext": true,
	"style": true, "textarea": true, "title": true, "xmp": true,
}

// DefangHTML rewrites markup so the browser never starts a script from
// it. Script elements are escaped into visible text, srcdoc and
// http-equiv attributes are dropped, and URL attributes lose
// script-bearing schemes. Script only ever runs through the guarded
// source block. Everything else passes through byte for byte.
func DefangHTML(markup string) string {
	if !strings.Contains(markup, "<") {
		return markup
	}

	var b strings.Builder
	b.Grow(len(markup) + 16)

	z := html.NewTokenizer(strings.NewReader(markup))
	inScript, inRaw := false, false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF; the tokenizer never fails on a string reader otherwise.
			return b.String()
		}
		raw := string(z.Raw())
		wasRaw := inRaw
		inRaw = false

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "script" {
				// A self-closing script tag still opens a script element.
				b.WriteString("&lt;" + escapeLT(raw[1:]))
				inScript = true
				continue
			}
			tag := string(name)
			b.WriteString(rewriteTag(z, tag, raw, tt == html.SelfClosingTagToken))
			inRaw = rawTextTags[tag]
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "script" {
				b.WriteString("&lt;/script>")
				inScript = false
				continue
			}
			b.WriteString(raw)
		case html.TextToken:
			if inScript {
				b.WriteString(escapeLT(raw))
				continue
			}
			if wasRaw {
				// Strictly shorter than markup, so this terminates.
				b.WriteString(DefangHTML(raw))
				continue
			}
			b.WriteString(scriptOpenTag.ReplaceAllString(raw, "&lt;script"))
		default:
			b.WriteString(raw)
		}
	}
}

// rewriteTag returns raw unless an attribute has to go, in which case
// the tag is rebuilt from the remaining attributes.
func rewriteTag(z *html.Tokenizer, name, raw string, selfClosing bool) string {
	type attribute struct{ key, val string }
	var kept []attribute
	dropped := false
	for {
		key, val, more := z.TagAttr()
		if len(key) > 0 {
			k, v := string(key), string(val)
			if unsafeAttr(name, k, v) {
				dropped = true
			} else {
				kept = append(kept, attribute{k, v})
			}
		}
		if !more {
			break
		}
	}
	if !dropped {
		return raw
	}

	var b strings.Builder
	b.WriteString("<" + name)
	for _, a := range kept {
		b.WriteString(" " + a.key + `="` + html.EscapeString(a.val) + `"`)
	}
	if selfClosing {
		b.WriteString(" /")
	}
	b.WriteString(">")
	return b.String()
}

func unsafeAttr(tag, key, val string) bool {
	switch {
	case key == "srcdoc", key == "http-equiv":
		return true
	case strings.Contains(strings.ToLower(val), "<script"):
		return true
	case urlAttrs[key]:
		return unsafeURL(tag, val)
	}
	return false
}

// unsafeURL reports script-capable schemes. Browsers ignore ASCII
// whitespace and control characters inside the scheme.
func unsafeURL(tag, val string) bool {
	scheme := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, strings.ToLower(val))

	switch {
	case strings.HasPrefix(scheme, "javascript:"), strings.HasPrefix(scheme, "vbscript:"):
		return true
	case strings.HasPrefix(scheme, "data:"):
		return !mediaTags[tag] || !strings.HasPrefix(scheme, "data:image/")
	}
	return false
}

func escapeLT(s string) string {
	return strings.ReplaceAll(s, "<", "&lt;")
}

// SanitizeCSS stops css from closing its style element and rewrites
// javascript: URLs.
func SanitizeCSS(css string) string {
	css = styleClose.ReplaceAllStringFunc(css, func(m string) string {
		return `<\/` + m[2:]
	})
	return javascriptURL.ReplaceAllString(css, "invalid:")
}

// EncodeSource makes script text safe to carry inside a raw-text
// script element. A backslash is inserted after every '<' that starts
// "</script", "<!--" or "<\", which DecodeRaw removes again, so the
// mapping is lossless.
func EncodeSource(src string) string {
	return escapeRawText(src, "/script", true)
}

// EncodeStyle applies the same escape to css destined for a style
// element. CSS reads "<\/style" as "</style", so rules are unchanged.
func EncodeStyle(css string) string {
	return escapeRawText(css, "/style", false)
}

// DecodeRaw reverses EncodeSource and EncodeStyle.
func DecodeRaw(encoded string) string {
	return strings.ReplaceAll(encoded, `<\`, "<")
}

func escapeRawText(s, closer string, comments bool) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] == '<' && needsEscape(s[i+1:], closer, comments) {
			b.WriteByte('\\')
		}
	}
	return b.String()
}

func needsEscape(rest, closer string, comments bool) bool {
	switch {
	case strings.HasPrefix(rest, `\`):
		return true
	case comments && strings.HasPrefix(rest, "!--"):
		return true
	case len(rest) >= len(closer) && strings.EqualFold(rest[:len(closer)], closer):
		return true
	}
	return false
}
