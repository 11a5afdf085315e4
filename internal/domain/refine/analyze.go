package refine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/export"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
)

// Suggestion is one review note.
type Suggestion struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// Analysis is the review of one component.
type Analysis struct {
	SmartName   string              `json:"smart_name"`
	Suggestions []Suggestion        `json:"suggestions"`
	Optimized   payload.CodePayload `json:"optimized"`
	Source      string              `json:"source"`
	Model       string              `json:"model,omitempty"`
	Cause       string              `json:"cause,omitempty"`
	Repairs     []string            `json:"repairs,omitempty"`
}

// reply is the shape the analysis prompt asks for.
type reply struct {
	SmartName     string          `json:"smartName"`
	Suggestions   []Suggestion    `json:"suggestions"`
	OptimizedCode json.RawMessage `json:"optimizedCode"`
}

var severities = map[string]bool{"low": true, "medium": true, "high": true}

// Analyze asks the model for a name, review notes and an optimized
// rewrite of p. When the model is unreachable or its answer cannot be
// read, the heuristic name and p itself are returned. An error is
// returned only for an empty component or caller cancellation.
func (s *Service) Analyze(ctx context.Context, p payload.CodePayload, model string) (Analysis, error) {
	if strings.TrimSpace(p.HTML+p.CSS+p.JS) == "" {
		return Analysis{}, ErrEmptyComponent
	}

	a := Analysis{
		SmartName:   export.SmartName(p.HTML),
		Suggestions: []Suggestion{},
		Optimized:   p,
		Source:      SourceHeuristic,
	}
	degrade := func(cause error) (Analysis, error) {
		a.Cause = cause.Error()
		s.logger.Warn("Analysis fell back to heuristics", zap.Error(cause))
		return a, nil
	}

	completion, err := s.llm.Generate(ctx, llm.GenerateRequest{
		Model:       model,
		Prompt:      llm.BuildAnalysisPrompt(p.HTML, p.CSS, p.JS),
		Temperature: llm.AnalysisTemperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Analysis{}, ctx.Err()
		}
		return degrade(err)
	}

	r, repairs, err := parseReply(completion.Response)
	if err != nil {
		return degrade(err)
	}

	a.Source = SourceLLM
	a.Model = completion.Model
	a.Repairs = repairs
	if name := strings.TrimSpace(r.SmartName); name != "" {
		a.SmartName = export.PascalCase(name)
	}
	a.Suggestions = cleanSuggestions(r.Suggestions)

	if len(r.OptimizedCode) > 0 && string(r.OptimizedCode) != "null" {
		res := s.normalizer.Normalize(string(r.OptimizedCode))
		if res.Failure != nil {
			a.Cause = res.Failure.Error()
		} else {
			a.Optimized = res.Payload
		}
	}

	s.logger.Info("Analysis finished",
		zap.String("name", a.SmartName),
		zap.Int("suggestions", len(a.Suggestions)),
		zap.Bool("optimized", a.Optimized != p))
	return a, nil
}

// parseReply reads the first object in text that decodes, repairing
// the usual model damage on the way.
func parseReply(raw string) (reply, []string, error) {
	spans := normalizer.Candidates(normalizer.Strip(raw))
	if len(spans) == 0 {
		return reply{}, nil, normalizer.ErrNoJSONFound
	}

	var lastErr error
	for _, span := range spans {
		var r reply
		if err := sonic.UnmarshalString(span, &r); err == nil {
			return r, nil, nil
		}
		repaired, repairs := normalizer.Repair(span)
		if err := sonic.UnmarshalString(repaired, &r); err != nil {
			lastErr = err
			continue
		}
		return r, repairs, nil
	}
	return reply{}, nil, errors.Join(normalizer.ErrMalformedJSON, lastErr)
}

func cleanSuggestions(in []Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(in))
	for _, sg := range in {
		sg.Type = strings.ToLower(strings.TrimSpace(sg.Type))
		sg.Severity = strings.ToLower(strings.TrimSpace(sg.Severity))
		sg.Description = strings.TrimSpace(sg.Description)
		sg.Suggestion = strings.TrimSpace(sg.Suggestion)
		if sg.Description == "" && sg.Suggestion == "" {
			continue
		}
		if !severities[sg.Severity] {
			sg.Severity = "low"
		}
		out = append(out, sg)
	}
	return out
}
