package fallback

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/uibuilder/internal/providers/sandbox"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		prompt string
		want   Category
	}{
		{"a login form with remember me", CategoryForm},
		{"Product card for shoes", CategoryCard},
		{"responsive navigation menu", CategoryNavigation},
		{"table of users", CategoryTable},
		{"sales bar chart", CategoryChart},
		{"a spinning cube", CategoryGeneric},
		{"", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(string(tt.want)+"/"+tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.prompt))
		})
	}
}

func TestStyleFor(t *testing.T) {
	s := StyleFor("a dark purple pricing card")
	assert.Equal(t, "#8b5cf6", s.Accent)
	assert.True(t, s.Dark)

	s = StyleFor("a card")
	assert.Equal(t, defaultAccent, s.Accent)
	assert.False(t, s.Dark)
}

func TestEcho(t *testing.T) {
	assert.Equal(t, "make a bold button", Echo("make a\n <b>bold</b> button"))
	assert.Equal(t, "say &#34;hi&#34;", Echo(`say "hi"`))
	assert.NotContains(t, Echo(`<script>alert("x")</script>`), "<script")

	long := Echo(strings.Repeat("word ", 100))
	assert.True(t, strings.HasSuffix(long, "…"))
}

func TestSelectIsDeterministic(t *testing.T) {
	a := Select(ReasonUnavailable, "a red signup form")
	b := Select(ReasonUnavailable, "a red signup form")
	assert.Equal(t, a, b)

	assert.Contains(t, a.HTML, "service unavailable")
	assert.Contains(t, a.HTML, "fallback-form")
	assert.Contains(t, a.CSS, "#ef4444")
	assert.NotContains(t, a.CSS, "{{")

	c := Select(ReasonFailed, "a red signup form")
	assert.NotEqual(t, a, c)
	assert.Contains(t, c.HTML, "generation failed")

	assert.Contains(t, Select("", "x").HTML, string(ReasonFailed))
}

func TestSelectNeverEchoesMarkup(t *testing.T) {
	p := Select(ReasonFailed, `<img src=x onerror="alert(1)"> card`)
	assert.NotContains(t, p.HTML, "<img")
	assert.NotContains(t, p.HTML, `onerror="alert(1)"`)
}

func TestEveryLayoutRunsCleanly(t *testing.T) {
	h := sandbox.New(1, time.Second, nil)
	defer h.Close()

	prompts := map[Category]string{
		CategoryForm:       "contact form",
		CategoryCard:       "profile card",
		CategoryNavigation: "top menu",
		CategoryTable:      "data table",
		CategoryChart:      "progress chart",
		CategoryGeneric:    "something",
	}
	require.Len(t, prompts, len(layouts))

	for category, prompt := range prompts {
		t.Run(string(category), func(t *testing.T) {
			require.Equal(t, category, Classify(prompt))
			report, err := h.Verify(context.Background(), Select(ReasonFailed, prompt))
			require.NoError(t, err)
			assert.True(t, report.OK(), "diagnostics: %v", report.Diagnostics)
			assert.Positive(t, report.Clicked)
		})
	}
}
