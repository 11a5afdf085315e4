package format

import "strings"

// CSS breaks rules onto separate lines: one declaration per line inside
// an indented block. Whitespace runs between tokens collapse to one space.
func CSS(src string) string {
	if strings.TrimSpace(src) == "" {
		return src
	}

	var b strings.Builder
	depth := 0
	parens := 0
	pending := false // a whitespace run is waiting to be written
	atLineStart := true

	newline := func() {
		if !atLineStart {
			b.WriteString("\n")
			atLineStart = true
		}
		pending = false
	}
	write := func(s string) {
		if atLineStart {
			b.WriteString(pad(depth))
			atLineStart = false
		} else if pending {
			b.WriteString(" ")
		}
		pending = false
		b.WriteString(s)
	}

	r := []rune(src)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '/' && i+1 < len(r) && r[i+1] == '*':
			j := i + 2
			for j+1 < len(r) && !(r[j] == '*' && r[j+1] == '/') {
				j++
			}
			end := j + 2
			if end > len(r) {
				end = len(r)
			}
			write(string(r[i:end]))
			i = end - 1
			if parens == 0 {
				newline()
			}
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(r) && r[j] != c {
				if r[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(r) {
				j = len(r) - 1
			}
			write(string(r[i : j+1]))
			i = j
		case isSpace(c):
			pending = true
		case c == '(':
			parens++
			write("(")
		case c == ')':
			if parens > 0 {
				parens--
			}
			write(")")
		case parens > 0:
			write(string(c))
		case c == '{':
			pending = !atLineStart
			write("{")
			depth++
			newline()
		case c == '}':
			newline()
			if depth > 0 {
				depth--
			}
			write("}")
			newline()
		case c == ';':
			pending = false
			write(";")
			newline()
		default:
			write(string(c))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
