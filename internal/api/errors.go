package api

import (
	"context"
	"errors"
	"net/http"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	contextErrorCodeKey = "errorCode"

	// Not in net/http; used when the client went away before the response.
	statusClientClosedRequest = 499
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code,omitempty"`
	Field string           `json:"field,omitempty"`
}

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeInvalidRequest:       http.StatusBadRequest,
	domain.CodeUnknownCondition:     http.StatusBadRequest,
	domain.CodeUnsafeInput:          http.StatusBadRequest,
	domain.CodeBoundaryViolation:    http.StatusUnprocessableEntity,
	domain.CodeContraindication:     http.StatusUnprocessableEntity,
	domain.CodeConsentRequired:      http.StatusUnprocessableEntity,
	domain.CodeGenerationFailed:     http.StatusBadGateway,
	domain.CodeIncompleteGeneration: http.StatusBadGateway,
	domain.CodePlanInUse:            http.StatusConflict,
}

var serviceErrors = []struct {
	err    error
	status int
}{
	{service.ErrPlanNotFound, http.StatusNotFound},
	{service.ErrInstanceNotFound, http.StatusNotFound},
	{service.ErrCustomerNotFound, http.StatusNotFound},
	{service.ErrSnapshotUnavailable, http.StatusNotFound},
	{service.ErrPlanAccessDenied, http.StatusForbidden},
	{service.ErrInstanceAccess, http.StatusForbidden},
	{service.ErrCustomerNotRole, http.StatusForbidden},
	{service.ErrCustomerNotManaged, http.StatusForbidden},
	{service.ErrPlanArchived, http.StatusConflict},
	{service.ErrCustomerAssigned, http.StatusConflict},
	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrAuthenticationFailed, http.StatusUnauthorized},
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: message})
}

// respondError maps engine and service errors to a status and a client-safe body.
// Anything unrecognized becomes a 500 without details.
func respondError(c *gin.Context, err error) {
	if pe, ok := domain.AsProtocolError(err); ok {
		status, known := statusByCode[pe.Code]
		if !known {
			status = http.StatusInternalServerError
		}
		c.Set(contextErrorCodeKey, pe.Code)
		c.AbortWithStatusJSON(status, ErrorResponse{Error: pe.Message, Code: pe.Code, Field: pe.Field})
		return
	}
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			abortWithError(c, se.status, se.err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusGatewayTimeout, "The request took too long.")
	case errors.Is(err, context.Canceled):
		abortWithError(c, statusClientClosedRequest, "The request was cancelled.")
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}
