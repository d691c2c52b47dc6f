package service

import (
	"context"
	"errors"
	"time"

	"alcyxob/protocol-engine/internal/assembler"
	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/knowledge"
	"alcyxob/protocol-engine/internal/metrics"
	"alcyxob/protocol-engine/internal/safety"
	"alcyxob/protocol-engine/internal/sanitize"

	"go.uber.org/zap"
)

// Drafter produces a validated draft for an approved request.
// *generation.Orchestrator is the production implementation.
type Drafter interface {
	Generate(ctx context.Context, req *domain.GenerationRequest, focus domain.NutritionFocus) (*domain.RawArtifactDraft, error)
}

// GenerationResult is the outcome of one successful pipeline run.
type GenerationResult struct {
	Artifact *domain.ProtocolArtifact
	Warnings []string
	Attempts int
}

// ProtocolService runs the generation pipeline:
// sanitize, safety gate, aggregate, draft, assemble.
type ProtocolService interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*GenerationResult, error)
	// Screen runs the sanitizer and the safety gate only and returns the warnings.
	Screen(req *domain.GenerationRequest) ([]string, error)
	Conditions() []domain.Condition
}

type protocolService struct {
	base       *knowledge.Base
	sanitizer  *sanitize.Sanitizer
	validator  *safety.Validator
	aggregator *knowledge.Aggregator
	drafter    Drafter
	assembler  *assembler.Assembler
	logger     *zap.Logger
}

func NewProtocolService(
	base *knowledge.Base,
	sanitizer *sanitize.Sanitizer,
	validator *safety.Validator,
	drafter Drafter,
	asm *assembler.Assembler,
	logger *zap.Logger,
) ProtocolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &protocolService{
		base:       base,
		sanitizer:  sanitizer,
		validator:  validator,
		aggregator: knowledge.NewAggregator(base),
		drafter:    drafter,
		assembler:  asm,
		logger:     logger.Named("protocol"),
	}
}

// Generate works on a copy of req; the caller's value is never modified.
func (s *protocolService) Generate(ctx context.Context, req domain.GenerationRequest) (*GenerationResult, error) {
	start := time.Now()
	req = req.Clone()

	warnings, err := s.Screen(&req)
	if err != nil {
		return nil, s.finish(&req, start, err)
	}

	focus, err := s.aggregator.Aggregate(req.SelectedConditionIDs, req.PriorityLevel)
	if err != nil {
		return nil, s.finish(&req, start, err)
	}

	draft, err := s.drafter.Generate(ctx, &req, focus)
	if err != nil {
		return nil, s.finish(&req, start, err)
	}

	artifact, err := s.assembler.Assemble(&req, focus, draft, warnings)
	if err != nil {
		return nil, s.finish(&req, start, err)
	}

	s.finish(&req, start, nil)
	return &GenerationResult{Artifact: artifact, Warnings: warnings, Attempts: draft.Attempts}, nil
}

func (s *protocolService) Screen(req *domain.GenerationRequest) ([]string, error) {
	if err := s.sanitizer.SanitizeRequest(req); err != nil {
		metrics.SanitizerRejections.WithLabelValues("input", sanitize.ReasonOf(err)).Inc()
		return nil, err
	}
	decision := s.validator.Validate(req)
	if decision.Blocked() {
		return nil, decision.Err
	}
	return decision.Warnings, nil
}

func (s *protocolService) Conditions() []domain.Condition {
	return s.base.All()
}

// finish records the outcome. Only enum fields and codes are logged, never free text.
func (s *protocolService) finish(req *domain.GenerationRequest, start time.Time, err error) error {
	code := outcomeCode(err)
	metrics.PipelineOutcomes.WithLabelValues(code).Inc()

	fields := []zap.Field{
		zap.String("code", code),
		zap.String("kind", string(req.ProtocolKind)),
		zap.Int("durationDays", req.DurationDays),
		zap.Int("conditions", len(req.SelectedConditionIDs)),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch {
	case err == nil:
		s.logger.Info("protocol generated", fields...)
	case code == "cancelled" || code == "internal":
		s.logger.Warn("protocol pipeline aborted", append(fields, zap.Error(err))...)
	default:
		if pe, ok := domain.AsProtocolError(err); ok && pe.Field != "" {
			fields = append(fields, zap.String("field", pe.Field))
		}
		s.logger.Info("protocol request rejected", fields...)
	}
	return err
}

func outcomeCode(err error) string {
	if err == nil {
		return "ok"
	}
	if pe, ok := domain.AsProtocolError(err); ok {
		return string(pe.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "internal"
}
