// Package http exposes the forecast core's verb table over a chi router.
package http

import (
	"errors"
	"net/http"

	"github.com/gdralph/rfot/internal/forecast/application"
)

// ============================================================================
// Error Response Structure
// ============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	StatusCode int                    `json:"-"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// ============================================================================
// HTTP Error Constructors
// ============================================================================

func ErrBadRequest(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
}

func ErrUnauthorized(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func ErrNotFound(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

func ErrConflict(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusConflict, Code: "CONFLICT", Message: message}
}

func ErrUnprocessableEntity(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusUnprocessableEntity, Code: "UNPROCESSABLE_ENTITY", Message: message}
}

func ErrTooManyRequests(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusTooManyRequests, Code: "RATE_LIMITED", Message: message}
}

func ErrInternalServer(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}
}

func ErrValidation(message string, details map[string]interface{}) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusUnprocessableEntity, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

func ErrInvalidJSON(detail string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusBadRequest, Code: "INVALID_JSON", Message: "invalid JSON: " + detail}
}

func ErrMissingParameter(param string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusBadRequest, Code: "MISSING_PARAMETER", Message: "missing required parameter: " + param}
}

// ============================================================================
// Error Mapping
// ============================================================================

// toHTTPError converts an application/transport error into the HTTP shape
// the handler writes back.
func toHTTPError(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	var httpErr *ErrorResponse
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var appErr *application.AppError
	if errors.As(err, &appErr) {
		return mapAppError(appErr)
	}

	return ErrInternalServer("an unexpected error occurred")
}

// mapAppError maps application.ErrorCode to an HTTP status, kept separate
// from application.AppError itself so the usecase layer stays transport
// agnostic.
func mapAppError(err *application.AppError) *ErrorResponse {
	switch err.Code {
	case application.ErrCodeNotFound, application.ErrCodeOpportunityNotFound, application.ErrCodeTimelineNotFound:
		return ErrNotFound(err.Message)

	case application.ErrCodeConflict, application.ErrCodeOverwriteProtected:
		return ErrConflict(err.Message)

	case application.ErrCodeValidation,
		application.ErrCodeMissingDecisionDate,
		application.ErrCodeZeroEffortTimeline,
		application.ErrCodeInvalidResourceStatus,
		application.ErrCodeInvalidBucket,
		application.ErrCodeConfigurationGap,
		application.ErrCodeNoMatchingRows:
		return ErrValidation(err.Message, err.Details)

	case application.ErrCodeUnauthorized:
		return ErrUnauthorized(err.Message)

	case application.ErrCodeRateLimited:
		return ErrTooManyRequests(err.Message)

	case application.ErrCodeInternal,
		application.ErrCodePersistenceFailure,
		application.ErrCodeEventPublishFailed,
		application.ErrCodeCacheError:
		return ErrInternalServer("an unexpected error occurred")

	default:
		return ErrInternalServer("an unexpected error occurred")
	}
}
