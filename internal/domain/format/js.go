package format

import (
	"strings"
	"unicode"
)

type jsMode int

const (
	jsCode jsMode = iota
	jsSingle
	jsDouble
	jsTemplate
	jsLineComment
	jsBlockComment
	jsRegex
	jsRegexClass
)

// keywords after which a slash starts a regular expression.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "of": true, "new": true, "delete": true, "void": true,
	"throw": true, "instanceof": true, "yield": true, "await": true,
}

// jsScanner tracks lexical state across lines.
type jsScanner struct {
	mode      jsMode
	depth     int
	templates []int // depth at each open ${
	lastSig   rune
	word      []rune
	lastWord  string
	continued bool
}

// JS re-indents lines by bracket depth. It never adds or joins lines, so
// automatic semicolon insertion sees the same program. Lines that begin
// inside a template literal, block comment or continued string are kept
// as they are.
func JS(src string) string {
	if strings.TrimSpace(src) == "" {
		return src
	}

	s := &jsScanner{}
	lines := strings.Split(src, "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		if s.mode != jsCode {
			out[i] = line
			s.scan(line)
			s.endLine()
			continue
		}

		trimmed := strings.TrimLeft(line, " \t\r")
		depth := s.depth
		if trimmed != "" && strings.ContainsRune("})]", rune(trimmed[0])) {
			depth--
		}
		s.scan(trimmed)
		if s.mode == jsCode {
			trimmed = strings.TrimRight(trimmed, " \t\r")
		}
		if trimmed == "" {
			out[i] = ""
		} else {
			out[i] = pad(depth) + trimmed
		}
		s.endLine()
	}
	return strings.Join(out, "\n")
}

// endLine applies the effect of a newline on the current mode.
func (s *jsScanner) endLine() {
	switch s.mode {
	case jsLineComment, jsRegex, jsRegexClass:
		s.mode = jsCode
	case jsSingle, jsDouble:
		if !s.continued {
			s.mode = jsCode
		}
	}
	s.continued = false
	s.finishWord()
}

func (s *jsScanner) scan(line string) {
	r := []rune(line)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch s.mode {
		case jsLineComment:
			return
		case jsBlockComment:
			if c == '*' && i+1 < len(r) && r[i+1] == '/' {
				s.mode = jsCode
				i++
			}
		case jsSingle, jsDouble:
			quote := '\''
			if s.mode == jsDouble {
				quote = '"'
			}
			switch {
			case c == '\\' && i+1 == len(r):
				s.continued = true
				return
			case c == '\\':
				i++
			case c == quote:
				s.mode = jsCode
				s.lastSig = c
			}
		case jsTemplate:
			switch {
			case c == '\\':
				i++
			case c == '`':
				s.mode = jsCode
				s.lastSig = c
			case c == '$' && i+1 < len(r) && r[i+1] == '{':
				s.templates = append(s.templates, s.depth)
				s.mode = jsCode
				s.lastSig = '{'
				i++
			}
		case jsRegex:
			switch c {
			case '\\':
				i++
			case '[':
				s.mode = jsRegexClass
			case '/':
				s.mode = jsCode
				s.lastSig = 'x'
				s.lastWord = ""
			}
		case jsRegexClass:
			switch c {
			case '\\':
				i++
			case ']':
				s.mode = jsRegex
			}
		default:
			i = s.code(r, i)
		}
	}
}

// code handles one rune in code mode and returns the index to resume at.
func (s *jsScanner) code(r []rune, i int) int {
	c := r[i]
	if isIdent(c) {
		s.word = append(s.word, c)
		s.lastSig = c
		return i
	}
	s.finishWord()

	switch {
	case c == ' ' || c == '\t' || c == '\r':
		return i
	case c == '/' && i+1 < len(r) && r[i+1] == '/':
		s.mode = jsLineComment
		return len(r)
	case c == '/' && i+1 < len(r) && r[i+1] == '*':
		s.mode = jsBlockComment
		return i + 1
	case c == '/' && s.regexAllowed():
		s.mode = jsRegex
		return i
	case c == '\'':
		s.mode = jsSingle
	case c == '"':
		s.mode = jsDouble
	case c == '`':
		s.mode = jsTemplate
	case c == '}' && len(s.templates) > 0 && s.templates[len(s.templates)-1] == s.depth:
		s.templates = s.templates[:len(s.templates)-1]
		s.mode = jsTemplate
	case c == '{' || c == '(' || c == '[':
		s.depth++
	case c == '}' || c == ')' || c == ']':
		if s.depth > 0 {
			s.depth--
		}
	}
	s.lastSig = c
	s.lastWord = ""
	return i
}

func (s *jsScanner) finishWord() {
	if len(s.word) > 0 {
		s.lastWord = string(s.word)
		s.word = s.word[:0]
	}
}

func (s *jsScanner) regexAllowed() bool {
	if s.lastSig == 0 {
		return true
	}
	if isIdent(s.lastSig) || s.lastSig == ')' || s.lastSig == ']' || s.lastSig == '}' {
		return regexKeywords[s.lastWord]
	}
	return true
}

func isIdent(c rune) bool {
	return c == '_' || c == '$' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
