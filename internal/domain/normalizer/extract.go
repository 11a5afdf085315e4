package normalizer

import (
	"regexp"
	"strings"
)

var (
	reasoningBlock = regexp.MustCompile(`(?is)^\s*(?:<think>.*?</think>|<thinking>.*?</thinking>)`)
	leadingFence   = regexp.MustCompile("(?i)^```[a-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence  = regexp.MustCompile("\r?\n?```[ \t]*$")
)

// Strip removes a leading reasoning block and surrounding markdown fences.
// Clean JSON passes through unchanged apart from outer whitespace.
func Strip(raw string) string {
	text := reasoningBlock.ReplaceAllString(raw, "")
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Candidates returns the top-level balanced {...} spans of text in order,
// followed by the loose first-'{'-to-last-'}' span when it differs. Quotes
// (single or double) and comments inside a span are honoured so braces in
// string values do not end it early.
func Candidates(text string) []string {
	var spans []string

	depth := 0
	start := -1
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		if depth > 0 {
			if c == '/' && i+1 < len(text) {
				switch text[i+1] {
				case '/':
					if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
						i += nl
					} else {
						i = len(text)
					}
					continue
				case '*':
					if end := strings.Index(text[i+2:], "*/"); end >= 0 {
						i += end + 3
					} else {
						i = len(text)
					}
					continue
				}
			}
			if c == '"' || c == '\'' {
				quote = c
				continue
			}
		}

		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, text[start:i+1])
			}
		}
	}

	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first >= 0 && last > first {
		loose := text[first : last+1]
		if len(spans) == 0 || spans[0] != loose {
			spans = append(spans, loose)
		}
	}

	return spans
}
