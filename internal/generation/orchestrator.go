package generation

import (
	"context"
	"errors"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/metrics"
	"alcyxob/protocol-engine/internal/sanitize"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config tunes one Orchestrator.
type Config struct {
	// Provider labels metrics and logs.
	Provider string
	// Timeout bounds a whole Generate call, every attempt and wait included.
	Timeout time.Duration
	// AttemptTimeout bounds a single capability call. Zero means no separate limit.
	AttemptTimeout time.Duration
	// RatePerSecond caps outbound calls across all requests. Zero disables the cap.
	RatePerSecond float64
	Burst         int
	Retry         RetryPolicy
}

// Orchestrator is safe for concurrent use; it keeps no per-request state.
type Orchestrator struct {
	completer Completer
	sanitizer *sanitize.Sanitizer
	limiter   *rate.Limiter
	cfg       Config
	logger    *zap.Logger
}

func NewOrchestrator(completer Completer, sanitizer *sanitize.Sanitizer, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Provider == "" {
		cfg.Provider = "unknown"
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		completer: completer,
		sanitizer: sanitizer,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		cfg:       cfg,
		logger:    logger.Named("generation"),
	}
}

// Generate calls the capability until it returns a usable draft, a fatal error occurs,
// attempts run out, or the overall timeout expires. Those failures come back as
// GENERATION_FAILED. If the caller's ctx ends first, its error is returned as is and
// no further attempt is started.
func (o *Orchestrator) Generate(ctx context.Context, req *domain.GenerationRequest, focus domain.NutritionFocus) (*domain.RawArtifactDraft, error) {
	start := time.Now()
	callerCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req, focus)
	policy := o.cfg.Retry

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := callerCtx.Err(); err != nil {
			return nil, o.cancelled(start, attempt-1, err)
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		days, err := o.attempt(ctx, prompt, req.DurationDays)
		if err == nil {
			o.outcome("success")
			metrics.GenerationLatency.WithLabelValues(o.cfg.Provider, "success").Observe(time.Since(start).Seconds())
			o.logger.Info("protocol draft generated",
				zap.Int("attempts", attempt),
				zap.Int("days", len(days)),
				zap.Duration("elapsed", time.Since(start)))
			return &domain.RawArtifactDraft{Days: days, Attempts: attempt}, nil
		}
		lastErr = err

		if cerr := callerCtx.Err(); cerr != nil {
			return nil, o.cancelled(start, attempt, cerr)
		}

		retryable := policy.IsRetryable(err)
		o.outcome(outcomeLabel(err, retryable))
		o.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", policy.MaxAttempts),
			zap.Bool("retryable", retryable),
			zap.Error(err))
		if !retryable {
			break
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if werr := wait(ctx, policy.Backoff(attempt)); werr != nil {
			if cerr := callerCtx.Err(); cerr != nil {
				return nil, o.cancelled(start, attempt, cerr)
			}
			lastErr = werr
			break
		}
	}

	metrics.GenerationLatency.WithLabelValues(o.cfg.Provider, "failed").Observe(time.Since(start).Seconds())
	o.logger.Error("protocol generation failed", zap.Error(lastErr), zap.Duration("elapsed", time.Since(start)))
	return nil, domain.NewGenerationFailedError(lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, prompt StructuredPrompt, durationDays int) ([]domain.DraftDay, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if o.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		defer cancel()
	}

	text, err := o.completer.Complete(callCtx, prompt)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, NewRetryableError(0, ErrEmptyReply)
	}

	days, err := ParseDraft(text, durationDays)
	if err != nil {
		return nil, err
	}
	if err := CheckDraftText(o.sanitizer, days); err != nil {
		metrics.SanitizerRejections.WithLabelValues("output", "draft").Inc()
		return nil, err
	}
	return days, nil
}

func (o *Orchestrator) cancelled(start time.Time, attempts int, err error) error {
	metrics.GenerationLatency.WithLabelValues(o.cfg.Provider, "cancelled").Observe(time.Since(start).Seconds())
	o.logger.Info("protocol generation cancelled by caller", zap.Int("attempts", attempts), zap.Error(err))
	return err
}

func (o *Orchestrator) outcome(label string) {
	metrics.GenerationAttempts.WithLabelValues(o.cfg.Provider, label).Inc()
}

func outcomeLabel(err error, retryable bool) string {
	var invalid *InvalidDraftError
	switch {
	case errors.As(err, &invalid):
		return "invalid_draft"
	case retryable:
		return "retryable"
	default:
		return "fatal"
	}
}
