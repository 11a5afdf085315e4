package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairStepOrder(t *testing.T) {
	var names []string
	for _, step := range RepairSteps {
		names = append(names, step.Name)
	}
	assert.Equal(t, []string{
		"strip-comments",
		"single-quotes",
		"bare-keys",
		"trailing-commas",
		"control-chars",
		"collapse-escapes",
	}, names)
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "{\"a\":1 // one\n}", "{\"a\":1 \n}"},
		{"block comment", `{/* c */"a":1}`, `{"a":1}`},
		{"url in string", `{"a":"http://x"}`, `{"a":"http://x"}`},
		{"url in single string", `{'a':'http://x'}`, `{'a':'http://x'}`},
		{"unterminated line comment", `{"a":1} // tail`, `{"a":1} `},
		{"escaped quote in string", `{"a":"say \"//hi\""}`, `{"a":"say \"//hi\""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripComments(tt.in))
		})
	}
}

func TestNormalizeQuotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{'a':'b'}`, `{"a":"b"}`},
		{"escaped apostrophe", `{'a':'don\'t'}`, `{"a":"don't"}`},
		{"inner double quotes", `{'a':'<p class="x">'}`, `{"a":"<p class=\"x\">"}`},
		{"apostrophe inside double string", `{"a":"it's"}`, `{"a":"it's"}`},
		{"other escapes kept", `{'a':'line\nnext'}`, `{"a":"line\nnext"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuotes(tt.in))
		})
	}
}

func TestQuoteBareKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{html: "x", css: "y"}`, `{"html": "x", "css": "y"}`},
		{"already quoted", `{"html": "x"}`, `{"html": "x"}`},
		{"values untouched", `{a: true, b: [null, false]}`, `{"a": true, "b": [null, false]}`},
		{"colon inside string", `{a: "b: c"}`, `{"a": "b: c"}`},
		{"newline before key", "{\n  js: \"\"\n}", "{\n  \"js\": \"\"\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteBareKeys(tt.in))
		})
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1,}`, `{"a":1}`},
		{"{\"a\":[1,2,\n]}", "{\"a\":[1,2\n]}"},
		{`{"a":",}"}`, `{"a":",}"}`},
		{`{"a":1,"b":2}`, `{"a":1,"b":2}`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RemoveTrailingCommas(tt.in))
	}
}

func TestEscapeControlChars(t *testing.T) {
	assert.Equal(t, `{"a":"x\ny\tz\r"}`, EscapeControlChars("{\"a\":\"x\ny\tz\r\"}"))
	assert.Equal(t, `{"a":"\u0001"}`, EscapeControlChars("{\"a\":\"\x01\"}"))
	assert.Equal(t, "{\n\"a\":1\n}", EscapeControlChars("{\n\"a\":1\n}"))
}

func TestCollapseEscapedQuotes(t *testing.T) {
	assert.Equal(t, `{"a": "b"}`, CollapseEscapedQuotes(`{\"a\": \"b\"}`))
	assert.Equal(t, `{"a": "say \"hi\""}`, CollapseEscapedQuotes(`{\"a\": \"say \\\"hi\\\"\"}`))

	untouched := `{"a": "say \"hi\""}`
	assert.Equal(t, untouched, CollapseEscapedQuotes(untouched))
}

func TestRepairReportsAppliedSteps(t *testing.T) {
	out, applied := Repair(`{a: 'b',}`)
	assert.Equal(t, `{"a": "b"}`, out)
	assert.Equal(t, []string{"single-quotes", "bare-keys", "trailing-commas"}, applied)

	out, applied = Repair(`{"a": "b"}`)
	assert.Equal(t, `{"a": "b"}`, out)
	assert.Empty(t, applied)
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "no braces", nil},
		{"single", `x {"a":1} y`, []string{`{"a":1}`}},
		{"nested", `{"a":{"b":1}}`, []string{`{"a":{"b":1}}`}},
		{"two spans", `{a} {b}`, []string{`{a}`, `{b}`, `{a} {b}`}},
		{"unbalanced falls back", `{"a":"}`, []string{`{"a":"}`}},
		{"comment with apostrophe", "{\"a\":1 // don't\n}", []string{"{\"a\":1 // don't\n}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.in))
		})
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Strip("<think>\nplan\n</think>\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, Strip("  {\"a\":1}  "))
	assert.Equal(t, "text <think>late</think>", Strip("text <think>late</think>"))
}
