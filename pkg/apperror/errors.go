package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Reason  string       `json:"reason,omitempty"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Details interface{}  `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Machine-readable reasons the cashier UI switches on.
const (
	ReasonValidation       = "validation"
	ReasonBackend          = "backend"
	ReasonNoOpenTill       = "no_open_till"
	ReasonNoSettlement     = "no_settlement"
	ReasonInFlight         = "submission_in_flight"
	ReasonLineBusy         = "line_processing"
	ReasonLineLocked       = "line_confirmed"
	ReasonUnconfirmed      = "mobile_unconfirmed"
	ReasonPartialPayment   = "partial_payment"
	ReasonWalkInCredit     = "walk_in_credit"
	ReasonNotFound         = "not_found"
	ReasonDraftPaid        = "draft_paid"
	ReasonTooManyRequests  = "too_many_requests"
	genericBackendFallback = "The payment service could not complete the request. Please try again."
)

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Reason: ReasonNotFound, Message: "Resource not found"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Message: "Invalid token"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  ReasonValidation,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewFieldError creates a validation error for a single field; the message
// doubles as the top-level message so it can be shown inline.
func NewFieldError(field, message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  ReasonValidation,
		Message: message,
		Errors:  []FieldError{{Field: field, Message: message}},
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Reason:  ReasonNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(reason, message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Reason:  reason,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// NewPreconditionError signals missing operational context (no open till,
// no settlement session).
func NewPreconditionError(reason, message string) *AppError {
	return &AppError{
		Code:    http.StatusPreconditionFailed,
		Reason:  reason,
		Message: message,
	}
}

// NewPartialPaymentError asks the caller to confirm a partial settlement.
func NewPartialPaymentError(message string, details interface{}) *AppError {
	return &AppError{
		Code:    http.StatusPreconditionRequired,
		Reason:  ReasonPartialPayment,
		Message: message,
		Details: details,
	}
}

// NewBackendError wraps a failed remote call. An empty message falls back to
// a generic banner text.
func NewBackendError(message string) *AppError {
	if message == "" {
		message = genericBackendFallback
	}
	return &AppError{
		Code:    http.StatusBadGateway,
		Reason:  ReasonBackend,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasReason reports whether err is an AppError with the given reason.
func HasReason(err error, reason string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Reason == reason
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}
