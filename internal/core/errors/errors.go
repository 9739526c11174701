package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserInactive       = errors.New("user account is disabled")
	ErrForbidden          = errors.New("action forbidden")
	ErrUnauthorized       = errors.New("unauthorized")

	// User validation
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordTooWeak  = errors.New("password does not meet security requirements")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("invalid role")

	// Ticket validation
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTicketExists          = errors.New("ticket already exists")
	ErrInvalidServiceType    = errors.New("invalid service type")
	ErrInvalidCauseType      = errors.New("invalid cause type")
	ErrInvalidStatus         = errors.New("invalid ticket status")
	ErrDescriptionRequired   = errors.New("description is required")
	ErrDescriptionTooLong    = errors.New("description exceeds maximum length")
	ErrTicketAlreadyClosed   = errors.New("ticket is already closed")
	ErrTicketNotClosed       = errors.New("ticket is not closed")
	ErrClosedBeforeCreated   = errors.New("closure time precedes creation time")
	ErrCannotAssignClosed    = errors.New("cannot assign a closed ticket")
	ErrTechnicianNotFound    = errors.New("technician not found")
	ErrTechnicianInactive    = errors.New("technician is not active")
	ErrEmptyImport           = errors.New("import contains no tickets")
	ErrUnsupportedFileFormat = errors.New("unsupported file format")

	// Aggregation
	ErrInvalidGranularity = errors.New("invalid rollup granularity")

	// Real-time delivery
	ErrEventDropped = errors.New("event queue full, event dropped")

	// Ancillary records
	ErrDeviceNotFound           = errors.New("device not found")
	ErrIncidentCauseNotFound    = errors.New("incident cause not found")
	ErrActionPlanNotFound       = errors.New("action plan not found")
	ErrInvalidActionPlanStatus  = errors.New("invalid action plan status")
	ErrRecordFieldRequired      = errors.New("required record field is missing")
	ErrDeviceSerialAlreadyInUse = errors.New("device serial number already registered")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

// Merge copies every message of other under the given field prefix.
func (v *ValidationErrors) Merge(prefix string, other *ValidationErrors) {
	if other == nil {
		return
	}
	for field, messages := range other.Errors {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		v.Errors[key] = append(v.Errors[key], messages...)
	}
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// OrNil returns v as an error when it holds messages, nil otherwise.
func (v *ValidationErrors) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
