package normalizer

import (
	"fmt"
	"regexp"
	"strings"
)

// RepairStep is one named, independently testable fix applied to an
// extracted JSON-ish span.
type RepairStep struct {
	Name  string
	Apply func(string) string
}

// RepairSteps run in this order; later steps assume earlier ones ran.
var RepairSteps = []RepairStep{
	{Name: "strip-comments", Apply: StripComments},
	{Name: "single-quotes", Apply: NormalizeQuotes},
	{Name: "bare-keys", Apply: QuoteBareKeys},
	{Name: "trailing-commas", Apply: RemoveTrailingCommas},
	{Name: "control-chars", Apply: EscapeControlChars},
	{Name: "collapse-escapes", Apply: CollapseEscapedQuotes},
}

// Repair applies every step in order and returns the names of the steps
// that changed the text.
func Repair(text string) (string, []string) {
	var applied []string
	for _, step := range RepairSteps {
		next := step.Apply(text)
		if next != text {
			applied = append(applied, step.Name)
		}
		text = next
	}
	return text, applied
}

// StripComments removes // line and /* */ block comments outside strings.
func StripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}

		if c == '"' || c == '\'' {
			quote = c
			b.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(s) {
			if s[i+1] == '/' {
				nl := strings.IndexByte(s[i:], '\n')
				if nl < 0 {
					break
				}
				i += nl - 1
				continue
			}
			if s[i+1] == '*' {
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					break
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// NormalizeQuotes rewrites single-quoted strings as double-quoted ones,
// unescaping \' and escaping bare double quotes inside them.
func NormalizeQuotes(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch quote {
		case '"':
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				quote = 0
			}
		case '\'':
			switch {
			case c == '\\' && i+1 < len(s) && s[i+1] == '\'':
				i++
				b.WriteByte('\'')
			case c == '\\' && i+1 < len(s):
				b.WriteByte(c)
				i++
				b.WriteByte(s[i])
			case c == '"':
				b.WriteString(`\"`)
			case c == '\'':
				b.WriteByte('"')
				quote = 0
			default:
				b.WriteByte(c)
			}
		default:
			switch c {
			case '"':
				quote = '"'
				b.WriteByte(c)
			case '\'':
				quote = '\''
				b.WriteByte('"')
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// QuoteBareKeys wraps unquoted object keys in double quotes.
func QuoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	var quote byte
	var last byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
				last = c
			}
			continue
		}

		if c == '"' || c == '\'' {
			quote = c
			b.WriteByte(c)
			continue
		}

		if (last == '{' || last == ',') && isIdentStart(c) {
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			last = s[j-1]
			i = j - 1
			continue
		}

		if !isSpace(c) {
			last = c
		}
		b.WriteByte(c)
	}
	return b.String()
}

// RemoveTrailingCommas drops commas that directly precede } or ].
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}

		if c == '"' || c == '\'' {
			quote = c
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeControlChars escapes raw control characters found inside strings.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 {
			if c == '"' || c == '\'' {
				quote = c
			}
			b.WriteByte(c)
			continue
		}

		switch {
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			i++
			b.WriteByte(s[i])
		case c == quote:
			quote = 0
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var escapedObject = regexp.MustCompile(`^\s*\{\s*\\"`)

// CollapseEscapedQuotes undoes one level of escaping when the whole object
// arrives escaped ({\"html\": \"...\"}), a shape that no earlier step fixes.
func CollapseEscapedQuotes(s string) string {
	if !escapedObject.MatchString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
