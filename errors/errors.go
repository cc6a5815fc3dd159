// Package errors provides the error handling system for the wxrelay webhook
// relay. It includes structured error types, the JSON error envelope the
// messaging platform expects, request ID tracking for log correlation, and
// integrated logging with Uber's zap logger.
//
// The platform contract requires failures to be reported as a JSON body of
// the form {"code": <http status>, "msg": <description>}. RelayError carries
// that envelope while keeping the error category and request ID available
// for logging.
//
// Basic usage:
//
//	// Write a constructed error
//	errors.WriteError(w, errors.NewAuthError(requestID))
//
//	// Ad-hoc categorized error
//	errors.ErrorWithType(w, "invalid signature", errors.AuthError, http.StatusUnauthorized)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the package.
// It is initialized to a production configuration but can be overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes the failures the relay can produce. The category is
// never serialized to the platform; it exists for logging and for error
// matching in tests.
type ErrorType string

const (
	// AuthError represents signature verification failures
	AuthError ErrorType = "authentication_error"

	// ValidationError represents malformed or empty input
	ValidationError ErrorType = "validation_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"

	// ConfigError represents configuration-related errors
	ConfigError ErrorType = "config_error"

	// ProviderError represents errors from the completion provider
	ProviderError ErrorType = "provider_error"
)

// RelayError is our custom error type that implements the error interface
// and serializes to the platform's error envelope. Only Code and Message
// appear in the JSON body; the type and request ID are internal context
// for logging and debugging.
type RelayError struct {
	// Code is the HTTP status code, exposed as "code" per the platform contract
	Code int `json:"code"`

	// Message is a human-readable error description, exposed as "msg"
	Message string `json:"msg"`

	// Type categorizes the error (not exposed in JSON)
	Type ErrorType `json:"-"`

	// RequestID links the error to a specific request (not exposed in JSON)
	RequestID string `json:"-"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface. It returns a string that
// combines the error type, message, and underlying error (if any).
func (e *RelayError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *RelayError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based
// error matching while ignoring other fields.
func (e *RelayError) Is(target error) bool {
	t, ok := target.(*RelayError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes a RelayError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes
// the platform error envelope as a JSON response.
func WriteError(w http.ResponseWriter, err *RelayError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		DefaultLogger.Error("failed to encode error response", zap.Error(encErr))
	}
}

// ErrorWithType creates and writes a RelayError with the given type,
// keeping the simple interface of http.Error. It automatically includes
// the request ID from the response headers if available.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &RelayError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
