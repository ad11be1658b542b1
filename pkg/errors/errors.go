// Package errors provides structured error handling for the application
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// Client errors (4xx)
	CodeBadRequest          ErrorCode = "BAD_REQUEST"
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests     ErrorCode = "TOO_MANY_REQUESTS"
	CodeEmptyPantry         ErrorCode = "EMPTY_PANTRY"
	CodeUnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	CodeRecipeNotFound      ErrorCode = "RECIPE_NOT_FOUND"
	CodeStaleResult         ErrorCode = "STALE_RESULT"

	// Server errors (5xx)
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"

	// Collaborator failures
	CodeRetrievalFailed     ErrorCode = "RETRIEVAL_FAILED"
	CodeTranslationFailed   ErrorCode = "TRANSLATION_FAILED"
	CodeFavoritesSyncFailed ErrorCode = "FAVORITES_SYNC_FAILED"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed, CodeEmptyPantry, CodeUnsupportedLanguage:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeRecipeNotFound:
		return http.StatusNotFound
	case CodeStaleResult:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeExternalServiceError, CodeRetrievalFailed, CodeTranslationFailed, CodeFavoritesSyncFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(CodeUnauthorized, message, "")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewExternalServiceError creates an external service error
func NewExternalServiceError(service string, cause error) *AppError {
	return NewAppError(
		CodeExternalServiceError,
		"External service error",
		fmt.Sprintf("Failed to communicate with %s", service),
	).WithCause(cause)
}

// NewEmptyPantryError is returned when generation is requested without ingredients
func NewEmptyPantryError() *AppError {
	return NewAppError(CodeEmptyPantry, "Pantry is empty", "Add at least one ingredient before generating recipes")
}

// NewUnsupportedLanguageError creates an unsupported language error
func NewUnsupportedLanguageError(language string) *AppError {
	return NewAppError(
		CodeUnsupportedLanguage,
		"Unsupported language",
		fmt.Sprintf("Language %q is not available", language),
	).WithMetadata("language", language)
}

// NewRecipeNotFoundError creates a recipe not found error
func NewRecipeNotFoundError(recipeID string) *AppError {
	return NewAppError(
		CodeRecipeNotFound,
		"Recipe not found",
		fmt.Sprintf("Recipe with ID %s is not in the active list", recipeID),
	).WithMetadata("recipe_id", recipeID)
}

// NewRetrievalError wraps a failure of the recipe retrieval collaborator
func NewRetrievalError(operation string, cause error) *AppError {
	return NewAppError(
		CodeRetrievalFailed,
		"Recipe retrieval failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewTranslationError wraps a failure of the translation collaborator
func NewTranslationError(language string, cause error) *AppError {
	return NewAppError(
		CodeTranslationFailed,
		"Translation failed",
		fmt.Sprintf("Failed to translate recipes into %s", language),
	).WithCause(cause).WithMetadata("language", language)
}

// NewFavoritesSyncError wraps a failure of the favorites persistence collaborator
func NewFavoritesSyncError(recipeID string, cause error) *AppError {
	return NewAppError(
		CodeFavoritesSyncFailed,
		"Favorites synchronization failed",
		fmt.Sprintf("Change to favorite %s was reverted", recipeID),
	).WithCause(cause).WithMetadata("recipe_id", recipeID)
}

// NewStaleResultError reports that a newer request superseded this one
func NewStaleResultError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStaleResult,
		"Result discarded",
		fmt.Sprintf("A newer %s request superseded this one", operation),
	).WithCause(cause)
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
