// Package generation is the only code that talks to the external text-generation
// capability. It builds the structured prompt, calls the capability under a bounded
// retry policy and turns the reply into a validated draft.
package generation

import (
	"context"
	"errors"
	"fmt"
)

// StructuredPrompt is what a Completer receives. System carries fixed instructions,
// User the request-specific data, and Schema the JSON shape the reply must follow.
type StructuredPrompt struct {
	System string
	User   string
	Schema string
}

// Completer is the external generation capability. Implementations return the raw
// reply text and classify their failures with NewRetryableError/NewFatalError.
// Any other error is treated as a transient transport failure.
type Completer interface {
	Complete(ctx context.Context, prompt StructuredPrompt) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt StructuredPrompt) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt StructuredPrompt) (string, error) {
	return f(ctx, prompt)
}

var (
	// ErrInputRejected means the capability refused the prompt as unsafe. Never retried.
	ErrInputRejected = errors.New("generation capability rejected the input")
	// ErrEmptyReply means the capability answered without any content.
	ErrEmptyReply = errors.New("generation capability returned an empty reply")
)

// RetryableError marks a transient failure: timeout, rate limit, 5xx, dropped connection.
type RetryableError struct {
	StatusCode int
	Err        error
}

func (e *RetryableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient generation failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient generation failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// FatalError marks a failure that another attempt cannot fix, such as a malformed
// request or input the capability flagged as unsafe.
type FatalError struct {
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fatal generation failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fatal generation failure: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func NewRetryableError(status int, err error) error {
	return &RetryableError{StatusCode: status, Err: err}
}

func NewFatalError(status int, err error) error {
	return &FatalError{StatusCode: status, Err: err}
}

// classifyStatus maps an HTTP status from a provider into the retry taxonomy.
func classifyStatus(status int, err error) error {
	switch {
	case status == 408 || status == 429 || status >= 500:
		return NewRetryableError(status, err)
	case status >= 400:
		return NewFatalError(status, err)
	default:
		return NewRetryableError(status, err)
	}
}

// InvalidDraftError means the reply could not be used: not JSON, wrong shape, or
// text fields that failed sanitization. It is retryable.
type InvalidDraftError struct {
	Reason string
}

func (e *InvalidDraftError) Error() string {
	return "invalid generation draft: " + e.Reason
}

func invalidDraft(format string, args ...any) error {
	return &InvalidDraftError{Reason: fmt.Sprintf(format, args...)}
}
