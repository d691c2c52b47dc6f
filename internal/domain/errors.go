// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, client-facing identifier of an engine error.
type ErrorCode string

const (
	CodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	CodeUnknownCondition     ErrorCode = "UNKNOWN_CONDITION"
	CodeUnsafeInput          ErrorCode = "UNSAFE_INPUT"
	CodeBoundaryViolation    ErrorCode = "BOUNDARY_VIOLATION"
	CodeContraindication     ErrorCode = "CONTRAINDICATION"
	CodeConsentRequired      ErrorCode = "CONSENT_REQUIRED"
	CodeGenerationFailed     ErrorCode = "GENERATION_FAILED"
	CodeIncompleteGeneration ErrorCode = "INCOMPLETE_GENERATION"
	CodePlanInUse            ErrorCode = "PLAN_IN_USE"
)

// Sentinels matched with errors.Is against any ProtocolError of the same kind.
var (
	ErrInvalidRequest       = errors.New("invalid generation request")
	ErrUnknownCondition     = errors.New("unknown health condition")
	ErrUnsafeInput          = errors.New("unsafe input")
	ErrBoundaryViolation    = errors.New("value out of allowed range")
	ErrContraindication     = errors.New("protocol contraindicated")
	ErrConsentRequired      = errors.New("healthcare provider consent required")
	ErrGenerationFailed     = errors.New("protocol generation failed")
	ErrIncompleteGeneration = errors.New("protocol generation incomplete")
	ErrPlanInUse            = errors.New("protocol plan in use")
)

var sentinelByCode = map[ErrorCode]error{
	CodeInvalidRequest:       ErrInvalidRequest,
	CodeUnknownCondition:     ErrUnknownCondition,
	CodeUnsafeInput:          ErrUnsafeInput,
	CodeBoundaryViolation:    ErrBoundaryViolation,
	CodeContraindication:     ErrContraindication,
	CodeConsentRequired:      ErrConsentRequired,
	CodeGenerationFailed:     ErrGenerationFailed,
	CodeIncompleteGeneration: ErrIncompleteGeneration,
	CodePlanInUse:            ErrPlanInUse,
}

// ProtocolError is terminal for the current request. Message is safe to show to
// end users: it never contains submitted text or provider details. Cause is kept
// for logs only.
type ProtocolError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

func (e *ProtocolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the sentinel for the code and the underlying cause.
func (e *ProtocolError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinelByCode[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// AsProtocolError extracts the first ProtocolError in err's chain.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func NewUnsafeInputError(field string) *ProtocolError {
	return &ProtocolError{
		Code:    CodeUnsafeInput,
		Field:   field,
		Message: "the submitted text contains disallowed content",
	}
}

func NewBoundaryViolation(field string, min, max int) *ProtocolError {
	return &ProtocolError{
		Code:    CodeBoundaryViolation,
		Field:   field,
		Message: fmt.Sprintf("value must be between %d and %d", min, max),
	}
}

func NewInvalidRequestError(field, message string) *ProtocolError {
	return &ProtocolError{Code: CodeInvalidRequest, Field: field, Message: message}
}

func NewUnknownConditionError() *ProtocolError {
	return &ProtocolError{
		Code:    CodeUnknownCondition,
		Field:   "selectedConditionIds",
		Message: "one or more selected conditions are not recognized",
	}
}

func NewContraindicationError() *ProtocolError {
	return &ProtocolError{
		Code:    CodeContraindication,
		Message: "parasite-cleanse protocols cannot be generated during pregnancy or breastfeeding",
	}
}

func NewConsentRequiredError(kind ProtocolKind) *ProtocolError {
	return &ProtocolError{
		Code:    CodeConsentRequired,
		Field:   "healthcareProviderConsent",
		Message: fmt.Sprintf("%s protocols require healthcare provider acknowledgment", kind),
	}
}

func NewGenerationFailedError(cause error) *ProtocolError {
	return &ProtocolError{
		Code:    CodeGenerationFailed,
		Message: "the protocol could not be generated, please try again later",
		Cause:   cause,
	}
}

func NewIncompleteGenerationError(got, want int) *ProtocolError {
	return &ProtocolError{
		Code:    CodeIncompleteGeneration,
		Message: fmt.Sprintf("generated content covered %d of %d days", got, want),
	}
}

func NewPlanInUseError(active int64) *ProtocolError {
	return &ProtocolError{
		Code:    CodePlanInUse,
		Message: fmt.Sprintf("plan is assigned to %d active customer(s)", active),
	}
}
