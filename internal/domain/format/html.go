package format

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// verbatimElements keep their content byte for byte.
var verbatimElements = map[string]bool{
	"pre": true, "textarea": true, "script": true, "style": true,
}

// HTML puts each tag and text run on its own line, indented by nesting
// depth. Tokens are written from their raw bytes.
func HTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return src
	}

	z := html.NewTokenizer(strings.NewReader(src))
	var out []string
	depth := 0

	// verbatim collects the raw bytes of a pre/textarea/script/style
	// element until its matching end tag.
	var verbatim strings.Builder
	verbatimTag := ""
	nested := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// unparseable remainder
				out = append(out, pad(depth)+string(z.Raw()))
			}
			break
		}
		raw := string(z.Raw())
		name, _ := z.TagName()
		tag := string(name)

		if verbatimTag != "" {
			verbatim.WriteString(raw)
			switch {
			case tt == html.StartTagToken && tag == verbatimTag:
				nested++
			case tt == html.EndTagToken && tag == verbatimTag:
				if nested > 0 {
					nested--
					continue
				}
				out = append(out, pad(depth)+verbatim.String())
				verbatim.Reset()
				verbatimTag = ""
			}
			continue
		}

		switch tt {
		case html.TextToken:
			if text := strings.TrimSpace(raw); text != "" {
				out = append(out, pad(depth)+text)
			}
		case html.StartTagToken:
			if verbatimElements[tag] {
				verbatim.WriteString(raw)
				verbatimTag = tag
				continue
			}
			out = append(out, pad(depth)+raw)
			if !voidElements[tag] {
				depth++
			}
		case html.EndTagToken:
			if depth > 0 {
				depth--
			}
			out = append(out, pad(depth)+raw)
		default:
			out = append(out, pad(depth)+raw)
		}
	}
	if verbatimTag != "" {
		out = append(out, pad(depth)+verbatim.String())
	}
	return strings.Join(out, "\n")
}
