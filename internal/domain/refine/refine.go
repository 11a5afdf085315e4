// Package refine asks the model to review or restyle a component. Both
// operations degrade to a local answer when the model cannot help, so a
// caller always gets something usable back.
package refine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/fallback"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
)

// Result sources.
const (
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
	SourceFallback  = "fallback"
)

var (
	ErrEmptyComponent = errors.New("component has no html, css or js")
	ErrEmptyPrompt    = errors.New("prompt is empty")
)

// Completer is the LLM endpoint.
type Completer interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (llm.Completion, error)
}

// Options tune a Service.
type Options struct {
	// Parallel bounds concurrent variation requests.
	Parallel int
}

// Service runs analyses and variations. It is safe for concurrent use.
type Service struct {
	llm        Completer
	normalizer *normalizer.Normalizer
	parallel   int
	logger     *zap.Logger
}

// NewService creates a refine service.
func NewService(client Completer, norm *normalizer.Normalizer, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 2
	}
	return &Service{
		llm:        client,
		normalizer: norm,
		parallel:   opts.Parallel,
		logger:     logger.Named("refine"),
	}
}

// Style is one design direction for a variation.
type Style struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Styles are the directions every variation run covers, in order.
var Styles = []Style{
	{"Modern", "Clean, contemporary design with subtle shadows"},
	{"Glassmorphism", "Frosted glass effect with transparency"},
	{"Neumorphism", "Soft, extruded appearance with inner shadows"},
	{"Material Design", "Google's material design principles"},
	{"Minimalist", "Simple, clean design with minimal elements"},
	{"Retro", "Vintage-inspired design with bold colors"},
}

// VariationRequest asks for one variation per style. Base is shown for
// any style the model cannot produce.
type VariationRequest struct {
	Prompt string
	Model  string
	Base   payload.CodePayload
}

// Variation is one restyled component.
type Variation struct {
	Style
	Payload payload.CodePayload `json:"payload"`
	Source  string              `json:"source"`
	Model   string              `json:"model,omitempty"`
	Failure *normalizer.Failure `json:"failure,omitempty"`
	Cause   string              `json:"cause,omitempty"`
	Repairs []string            `json:"repairs,omitempty"`
}

// Variations generates the prompt once per style. Failures are per
// variation; an error is returned only for an empty prompt or caller
// cancellation.
func (s *Service) Variations(ctx context.Context, req VariationRequest) ([]Variation, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	start := time.Now()
	out := make([]Variation, len(Styles))
	sem := make(chan struct{}, s.parallel)
	var wg sync.WaitGroup
	for i, style := range Styles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			out[i] = s.variation(ctx, style, prompt, req)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	produced := 0
	for _, v := range out {
		if v.Source == SourceLLM {
			produced++
		}
	}
	s.logger.Info("Variations finished",
		zap.Int("styles", len(out)),
		zap.Int("produced", produced),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *Service) variation(ctx context.Context, style Style, prompt string, req VariationRequest) Variation {
	request := llm.BuildVariationPrompt(prompt, style.Name, style.Description)
	v := Variation{Style: style}

	useBase := func(cause error) Variation {
		v.Source = SourceFallback
		v.Payload = req.Base
		if req.Base.IsEmpty() {
			v.Payload = fallback.Select(fallback.ReasonFailed, request)
		}
		if cause != nil {
			v.Cause = cause.Error()
		}
		s.logger.Warn("Variation fell back", zap.String("style", style.Name), zap.Error(cause))
		return v
	}

	completion, err := s.llm.Generate(ctx, llm.GenerateRequest{Model: req.Model, Prompt: llm.BuildPrompt(request)})
	if err != nil {
		return useBase(err)
	}
	v.Model = completion.Model

	res := s.normalizer.Normalize(completion.Response)
	v.Repairs = res.Repairs
	if res.Failure != nil {
		v.Failure = res.Failure
		return useBase(res.Failure)
	}
	v.Source = SourceLLM
	v.Payload = res.Payload
	return v
}
