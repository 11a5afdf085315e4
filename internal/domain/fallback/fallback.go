// Package fallback picks the placeholder component shown when generation
// cannot produce one. It is the only place that decides what a failed
// generation looks like.
package fallback

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

// Reason explains why a fallback was used. Its value is shown to the user.
type Reason string

const (
	ReasonUnavailable Reason = "service unavailable"
	ReasonFailed      Reason = "generation failed"
)

// Category is the broad kind of component a prompt asks for.
type Category string

const (
	CategoryForm       Category = "form"
	CategoryCard       Category = "card"
	CategoryNavigation Category = "navigation"
	CategoryTable      Category = "table"
	CategoryChart      Category = "chart"
	CategoryGeneric    Category = "generic"
)

const maxEcho = 120

var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryForm, []string{"form", "login", "sign up", "signup", "register", "input", "contact", "subscribe", "search"}},
	{CategoryCard, []string{"card", "product", "profile", "pricing", "tile"}},
	{CategoryNavigation, []string{"nav", "menu", "header", "sidebar", "tabs", "breadcrumb"}},
	{CategoryTable, []string{"table", "grid", "list", "rows", "spreadsheet"}},
	{CategoryChart, []string{"chart", "graph", "plot", "dashboard", "progress", "meter"}},
}

var accents = []struct {
	word  string
	color string
}{
	{"red", "#ef4444"},
	{"orange", "#f97316"},
	{"yellow", "#eab308"},
	{"green", "#22c55e"},
	{"teal", "#14b8a6"},
	{"purple", "#8b5cf6"},
	{"pink", "#ec4899"},
	{"gray", "#6b7280"},
	{"grey", "#6b7280"},
	{"blue", "#3b82f6"},
}

const defaultAccent = "#3b82f6"

var echoPolicy = bluemonday.StrictPolicy()

// Classify maps a prompt to a category by keyword.
func Classify(prompt string) Category {
	lower := strings.ToLower(prompt)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.category
			}
		}
	}
	return CategoryGeneric
}

// Style is the look derived from a prompt.
type Style struct {
	Accent     string
	Background string
	Text       string
	Dark       bool
}

// StyleFor picks colors mentioned in the prompt.
func StyleFor(prompt string) Style {
	lower := strings.ToLower(prompt)
	s := Style{Accent: defaultAccent, Background: "#ffffff", Text: "#1f2937"}
	for _, a := range accents {
		if strings.Contains(lower, a.word) {
			s.Accent = a.color
			break
		}
	}
	if strings.Contains(lower, "dark") || strings.Contains(lower, "night") {
		s.Dark = true
		s.Background = "#111827"
		s.Text = "#f9fafb"
	}
	return s
}

// Echo returns the prompt reduced to plain, escaped text of bounded length.
func Echo(prompt string) string {
	text := strings.Join(strings.Fields(prompt), " ")
	if utf8.RuneCountInString(text) > maxEcho {
		r := []rune(text)
		text = string(r[:maxEcho]) + "…"
	}
	return echoPolicy.Sanitize(text)
}

// Select returns the placeholder for a failed generation. The same reason
// and prompt always produce the same payload.
func Select(reason Reason, prompt string) payload.CodePayload {
	if reason == "" {
		reason = ReasonFailed
	}
	category := Classify(prompt)
	style := StyleFor(prompt)

	r := strings.NewReplacer(
		"{{accent}}", style.Accent,
		"{{background}}", style.Background,
		"{{text}}", style.Text,
		"{{reason}}", string(reason),
		"{{prompt}}", Echo(prompt),
		"{{category}}", string(category),
	)

	t := layouts[category]
	return payload.New(
		r.Replace(bannerHTML+t.html+"\n</div>"),
		r.Replace(baseCSS+t.css),
		r.Replace(t.js),
	)
}
