// Package generation turns a prompt into the current workspace payload.
//
// A run probes the endpoint, requests a completion, normalizes it and,
// on any failure, substitutes a deterministic fallback so the preview
// always has something to show.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/fallback"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
	"github.com/GriffinCanCode/uibuilder/internal/providers/sandbox"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
)

// Result sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

var (
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrSubmissionInFlight = errors.New("generation already in progress for this submission")
)

// Completer is the LLM endpoint.
type Completer interface {
	Probe(ctx context.Context) error
	Generate(ctx context.Context, req llm.GenerateRequest) (llm.Completion, error)
}

// Verifier runs a payload headlessly and reports script errors.
type Verifier interface {
	Verify(ctx context.Context, p payload.CodePayload) (sandbox.Report, error)
}

// Replacer is the part of the workspace a generation writes to.
type Replacer interface {
	Replace(ctx context.Context, p payload.CodePayload, change workspace.Change) (workspace.Revision, error)
}

// Request is one submission.
type Request struct {
	Prompt       string          `json:"prompt"`
	Model        string          `json:"model,omitempty"`
	SubmissionID id.SubmissionID `json:"submission_id,omitempty"`
}

// Result describes what a generation produced.
type Result struct {
	SubmissionID id.SubmissionID       `json:"submission_id"`
	Revision     workspace.Revision    `json:"revision"`
	Source       string                `json:"source"`
	Model        string                `json:"model,omitempty"`
	Reason       fallback.Reason       `json:"reason,omitempty"`
	Failure      *normalizer.Failure   `json:"failure,omitempty"`
	Cause        string                `json:"cause,omitempty"`
	Repairs      []string              `json:"repairs,omitempty"`
	Diagnostics  []preview.ScriptError `json:"diagnostics,omitempty"`
	Duration     time.Duration         `json:"duration"`
}

// Payload is the payload now current in the workspace.
func (r Result) Payload() payload.CodePayload {
	return r.Revision.Payload
}

// Fallback reports whether the placeholder was used.
func (r Result) Fallback() bool {
	return r.Source == SourceFallback
}

// Options wire optional collaborators.
type Options struct {
	Verifier  Verifier
	Publisher events.Publisher
	Metrics   *monitoring.Metrics
	// VerifyTimeout bounds the post-generation sandbox run.
	VerifyTimeout time.Duration
}

// Service runs generations. It is safe for concurrent use.
type Service struct {
	llm        Completer
	normalizer *normalizer.Normalizer
	workspace  Replacer
	verifier   Verifier
	publisher  events.Publisher
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	verifyTimeout time.Duration

	mu       sync.Mutex
	inFlight map[id.SubmissionID]struct{}
}

// NewService creates a generation service.
func NewService(client Completer, norm *normalizer.Normalizer, ws Replacer, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 5 * time.Second
	}
	return &Service{
		llm:           client,
		normalizer:    norm,
		workspace:     ws,
		verifier:      opts.Verifier,
		publisher:     opts.Publisher,
		metrics:       opts.Metrics,
		logger:        logger.Named("generation"),
		verifyTimeout: opts.VerifyTimeout,
		inFlight:      make(map[id.SubmissionID]struct{}),
	}
}

// Generate runs one submission to completion. Endpoint and normalizer
// failures never surface as errors: they produce a fallback result. An
// error is returned only for an invalid request, a duplicate submission,
// caller cancellation or a workspace write failure.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}
	if req.SubmissionID == "" {
		req.SubmissionID = id.NewSubmissionID()
	}

	release, err := s.claim(req.SubmissionID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	if s.metrics != nil {
		s.metrics.GenerationsActive.Inc()
		defer s.metrics.GenerationsActive.Dec()
	}

	start := time.Now()
	logger := s.logger.With(zap.String("submission_id", req.SubmissionID.String()))

	res := Result{SubmissionID: req.SubmissionID}
	p, outcome, err := s.complete(ctx, prompt, req.Model, &res)
	if err != nil {
		return Result{}, err
	}

	if res.Source == SourceLLM && s.verifier != nil {
		res.Diagnostics = s.verify(ctx, p, logger)
	}

	rev, err := s.workspace.Replace(ctx, p, workspace.Change{
		Source:   preview.TriggerGeneration,
		Prompt:   prompt,
		Fallback: res.Fallback(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("update workspace: %w", err)
	}
	res.Revision = rev
	res.Duration = time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordGeneration(res.Source, outcome, res.Duration)
	}
	s.announce(ctx, res)

	logger.Info("Generation finished",
		zap.String("source", res.Source),
		zap.String("outcome", outcome),
		zap.Uint64("revision", rev.Number),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// complete produces the payload and fills the llm-side fields of res.
// It returns an error only when the caller gave up.
func (s *Service) complete(ctx context.Context, prompt, model string, res *Result) (payload.CodePayload, string, error) {
	useFallback := func(reason fallback.Reason, cause error, outcome string) (payload.CodePayload, string, error) {
		res.Source = SourceFallback
		res.Reason = reason
		if cause != nil {
			res.Cause = cause.Error()
		}
		s.logger.Warn("Using fallback component",
			zap.String("reason", string(reason)),
			zap.String("outcome", outcome),
			zap.Error(cause))
		return fallback.Select(reason, prompt), outcome, nil
	}

	if err := s.llm.Probe(ctx); err != nil {
		if ctx.Err() != nil {
			return payload.CodePayload{}, "", ctx.Err()
		}
		return useFallback(fallback.ReasonUnavailable, err, "unavailable")
	}

	completion, err := s.llm.Generate(ctx, llm.GenerateRequest{Model: model, Prompt: llm.BuildPrompt(prompt)})
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrRequestTimeout):
		return useFallback(fallback.ReasonFailed, err, "timeout")
	case errors.Is(err, llm.ErrEndpointUnavailable):
		return useFallback(fallback.ReasonUnavailable, err, "unavailable")
	default:
		return payload.CodePayload{}, "", err
	}
	res.Model = completion.Model

	norm := s.normalizer.Normalize(completion.Response)
	res.Repairs = norm.Repairs
	if norm.Failure != nil {
		res.Failure = norm.Failure
		return useFallback(fallback.ReasonFailed, norm.Failure, strings.ToLower(string(norm.Failure.Kind)))
	}

	res.Source = SourceLLM
	return norm.Payload, "ok", nil
}

func (s *Service) verify(ctx context.Context, p payload.CodePayload, logger *zap.Logger) []preview.ScriptError {
	ctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	report, err := s.verifier.Verify(ctx, p)
	if err != nil {
		logger.Warn("Sandbox verification failed", zap.Error(err))
		return nil
	}
	if report.TimedOut {
		logger.Warn("Sandbox verification timed out")
	}
	for _, d := range report.Diagnostics {
		e := events.New(events.ScriptError, d.Kind, map[string]string{
			"message": d.Message,
			"origin":  d.Origin,
		})
		if err := s.publisher.Publish(ctx, e); err != nil {
			logger.Debug("Failed to publish script error", zap.Error(err))
		}
	}
	return report.Diagnostics
}

func (s *Service) announce(ctx context.Context, res Result) {
	attrs := map[string]string{
		"source":   res.Source,
		"revision": strconv.FormatUint(res.Revision.Number, 10),
		"hash":     res.Revision.Payload.Hash(),
	}
	eventType := events.GenerationCompleted
	if res.Fallback() {
		eventType = events.GenerationFallback
		attrs["reason"] = string(res.Reason)
		if res.Failure != nil {
			attrs["failure"] = string(res.Failure.Kind)
		}
	}
	if err := s.publisher.Publish(ctx, events.New(eventType, res.SubmissionID.String(), attrs)); err != nil {
		s.logger.Warn("Failed to publish generation event", zap.String("type", eventType), zap.Error(err))
	}
}

// claim marks a submission as running.
func (s *Service) claim(sid id.SubmissionID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sid]; busy {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionInFlight, sid)
	}
	s.inFlight[sid] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, sid)
		s.mu.Unlock()
	}, nil
}

// InFlight reports the number of running generations.
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}
