// Package application is the forecast service's usecase layer: it
// orchestrates the domain package (category resolution, the offering
// multiplier, the scheduler, the aggregator) against the repository ports,
// and exposes the verb table from spec §6 to whatever transport binds to it.
package application

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error Codes
// ============================================================================

// ErrorCode represents an application error code.
type ErrorCode string

const (
	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Timeline errors, per §7 of the forecast specification
	ErrCodeOpportunityNotFound   ErrorCode = "OPPORTUNITY_NOT_FOUND"
	ErrCodeTimelineNotFound      ErrorCode = "TIMELINE_NOT_FOUND"
	ErrCodeMissingDecisionDate   ErrorCode = "MISSING_DECISION_DATE"
	ErrCodeZeroEffortTimeline    ErrorCode = "ZERO_EFFORT_TIMELINE"
	ErrCodeInvalidResourceStatus ErrorCode = "INVALID_RESOURCE_STATUS"
	ErrCodeInvalidBucket         ErrorCode = "INVALID_BUCKET_GRANULARITY"
	ErrCodeConfigurationGap      ErrorCode = "CONFIGURATION_GAP"
	ErrCodeNoMatchingRows        ErrorCode = "NO_MATCHING_ROWS"
	ErrCodeOverwriteProtected    ErrorCode = "OVERWRITE_PROTECTED"

	// Persistence errors
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	// External service errors
	ErrCodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeCacheError         ErrorCode = "CACHE_ERROR"
)

// ============================================================================
// Application Error
// ============================================================================

// AppError represents an application-level error.
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// ============================================================================
// Error Constructors
// ============================================================================

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewAppErrorf creates a new application error with a formatted message.
func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an error with an application error.
func WrapError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// ============================================================================
// Common Error Constructors
// ============================================================================

func ErrInternal(message string, cause error) *AppError {
	return WrapError(ErrCodeInternal, message, cause)
}

func ErrValidation(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func ErrConflict(message string) *AppError {
	return NewAppError(ErrCodeConflict, message)
}

func ErrRateLimited(message string) *AppError {
	return NewAppError(ErrCodeRateLimited, message)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message)
}

// ErrOpportunityNotFound reports that opportunityID has no matching
// opportunity row in component B's store.
func ErrOpportunityNotFound(opportunityID string) *AppError {
	return NewAppErrorf(ErrCodeOpportunityNotFound, "opportunity not found: %s", opportunityID)
}

// ErrTimelineNotFound reports that opportunityID has no stored
// OpportunityResourceTimeline rows.
func ErrTimelineNotFound(opportunityID string) *AppError {
	return NewAppErrorf(ErrCodeTimelineNotFound, "opportunity %s has no stored timeline", opportunityID)
}

// ErrMissingDecisionDate mirrors domain.ErrMissingDecisionDate at the
// usecase boundary, per §7.
func ErrMissingDecisionDate(opportunityID string) *AppError {
	return NewAppErrorf(ErrCodeMissingDecisionDate, "opportunity %s has no decision date", opportunityID)
}

// ErrZeroEffortTimeline reports that scheduling produced no positive FTE
// across every target service line; nothing was persisted.
func ErrZeroEffortTimeline(opportunityID string) *AppError {
	return NewAppErrorf(ErrCodeZeroEffortTimeline, "opportunity %s scheduled to zero total FTE", opportunityID)
}

// ErrInvalidResourceStatus reports a status value outside the
// Predicted/Forecast/Planned enum.
func ErrInvalidResourceStatus(status string) *AppError {
	return NewAppErrorf(ErrCodeInvalidResourceStatus, "invalid resource status: %q", status)
}

// ErrInvalidBucket reports a bucket granularity outside week/month/quarter.
func ErrInvalidBucket(bucket string) *AppError {
	return NewAppErrorf(ErrCodeInvalidBucket, "invalid bucket granularity: %q", bucket)
}

// ErrConfigurationGap reports that an opportunity cannot be scheduled
// because a category band, FTE template row, or offering mapping it needs
// is absent from component A's tables.
func ErrConfigurationGap(opportunityID, detail string) *AppError {
	return NewAppErrorf(ErrCodeConfigurationGap, "opportunity %s: %s", opportunityID, detail)
}

// ErrNoMatchingRows reports that a patch_status selector matched zero rows.
func ErrNoMatchingRows(opportunityID string) *AppError {
	return NewAppErrorf(ErrCodeNoMatchingRows, "no timeline rows matched the selector for opportunity %s", opportunityID)
}

// ErrOverwriteProtected reports that compute_timeline would have discarded
// Forecast or Planned rows without the force flag.
func ErrOverwriteProtected(opportunityID string) *AppError {
	return NewAppErrorf(ErrCodeOverwriteProtected, "opportunity %s has forecast/planned rows; pass force to overwrite", opportunityID)
}

// ErrPersistence wraps an underlying storage error unchanged, per §7.
func ErrPersistence(operation string, cause error) *AppError {
	return WrapError(ErrCodePersistenceFailure, fmt.Sprintf("persistence failure during %s", operation), cause)
}

func ErrEventPublishFailed(eventType string, cause error) *AppError {
	return WrapError(ErrCodeEventPublishFailed, fmt.Sprintf("failed to publish %s event", eventType), cause)
}

func ErrCacheError(operation string, cause error) *AppError {
	return WrapError(ErrCodeCacheError, fmt.Sprintf("cache error during %s", operation), cause)
}

// ============================================================================
// Predicates
// ============================================================================

// IsAppError checks if the error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to extract an AppError from err.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsNotFoundError checks if an error is a not-found error.
func IsNotFoundError(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		switch appErr.Code {
		case ErrCodeNotFound, ErrCodeOpportunityNotFound, ErrCodeTimelineNotFound:
			return true
		}
	}
	return false
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		switch appErr.Code {
		case ErrCodeValidation, ErrCodeMissingDecisionDate, ErrCodeZeroEffortTimeline,
			ErrCodeInvalidResourceStatus, ErrCodeInvalidBucket, ErrCodeConfigurationGap:
			return true
		}
	}
	return false
}
