package llm

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are an expert web developer specializing in creating modern UI components.
Based on the following user request, generate the HTML, CSS, and JavaScript code for a single, self-contained UI component.
The HTML should be within a single root div. The CSS should be scoped or otherwise designed to apply only to this component.
Use standard CSS and avoid preprocessors. The JavaScript should be minimal and only for interactivity within this component.
If no JavaScript is needed, provide an empty string for the 'js' field.

User Request: %q

Please provide your response as a single JSON object with the following exact structure, and nothing else (no explanations, no markdown code fences):
{
  "html": "YOUR_HTML_CODE_HERE",
  "css": "YOUR_CSS_CODE_HERE",
  "js": "YOUR_JAVASCRIPT_CODE_HERE"
}

IMPORTANT: Within the JSON string values for "html", "css", and "js", all newline characters must be properly escaped as \n.
Ensure the JSON itself is valid. Ensure the HTML, CSS, and JavaScript are complete and ready to use.`

// BuildPrompt wraps a user request in the flat JSON contract.
func BuildPrompt(request string) string {
	return fmt.Sprintf(promptTemplate, request)
}

const analysisTemplate = `Analyze this UI component code and provide:
1. Performance optimization suggestions
2. Accessibility improvements
3. A smart, descriptive component name based on functionality
4. Code structure improvements

HTML:
%s

CSS:
%s

JavaScript:
%s

Return as JSON with this structure:
{
  "smartName": "ComponentName",
  "suggestions": [
    {
      "type": "performance|accessibility|naming|structure",
      "severity": "low|medium|high",
      "description": "Issue description",
      "suggestion": "Improvement suggestion"
    }
  ],
  "optimizedCode": {
    "html": "optimized HTML",
    "css": "optimized CSS",
    "js": "optimized JavaScript"
  }
}`

// AnalysisTemperature keeps review answers close to deterministic.
const AnalysisTemperature = 0.3

// BuildAnalysisPrompt asks for a name, suggestions and an optimized
// rewrite of an existing component.
func BuildAnalysisPrompt(html, css, js string) string {
	return fmt.Sprintf(analysisTemplate, html, css, js)
}

// BuildVariationPrompt appends a style direction to a request. The
// result is a user request, wrapped by BuildPrompt like any other.
func BuildVariationPrompt(request, style, description string) string {
	return strings.TrimSpace(request) + ". Style: " + style + " - " + description
}
