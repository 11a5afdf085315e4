package normalizer

import (
	"strings"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

// placeholderTokens are template markers the model sometimes echoes back
// instead of real content. Matched case-insensitively as substrings.
var placeholderTokens = []string{
	"YOUR_HTML_CODE_HERE",
	"YOUR_CSS_CODE_HERE",
	"YOUR_JAVASCRIPT_CODE_HERE",
	"YOUR_JS_CODE_HERE",
}

// placeholderValues are echoed instructions that only count when they make
// up the whole field.
var placeholderValues = []string{
	"optimized HTML",
	"optimized CSS",
	"optimized JavaScript",
}

func validateFields(obj map[string]interface{}, span string) (payload.CodePayload, *Failure) {
	html, htmlOK := obj["html"].(string)
	css, cssOK := obj["css"].(string)

	var missing []string
	if !htmlOK || strings.TrimSpace(html) == "" {
		missing = append(missing, "html")
	}
	if !cssOK || strings.TrimSpace(css) == "" {
		missing = append(missing, "css")
	}
	if len(missing) > 0 {
		return payload.CodePayload{}, fail(KindMissingFields, StageStructural,
			"missing or empty "+strings.Join(missing, ", "), span, nil)
	}

	return payload.New(html, css, payload.StringField(obj, "js")), nil
}

func checkPlaceholders(p payload.CodePayload) *Failure {
	fields := []struct {
		name  string
		value string
	}{
		{"html", p.HTML},
		{"css", p.CSS},
		{"js", p.JS},
	}

	for _, f := range fields {
		if token, ok := placeholderIn(f.value); ok {
			return fail(KindPlaceholderContent, StagePlaceholder,
				f.name+" contains template placeholder "+token, f.value, nil)
		}
	}
	return nil
}

func placeholderIn(value string) (string, bool) {
	upper := strings.ToUpper(value)
	for _, token := range placeholderTokens {
		if strings.Contains(upper, token) {
			return token, true
		}
	}
	trimmed := strings.TrimSpace(value)
	for _, v := range placeholderValues {
		if strings.EqualFold(trimmed, v) {
			return v, true
		}
	}
	return "", false
}
