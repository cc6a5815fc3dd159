package errors

import (
	"net/http"
)

// NewError creates a new RelayError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, you should use one of the
// specialized constructors below.
func NewError(errType ErrorType, message string, code int, requestID string, err error) *RelayError {
	return &RelayError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		err:       err,
	}
}

// NewAuthError creates an authentication error with the platform's 401
// envelope. The relay uses this for signature verification failures, so the
// message is fixed to the string the platform documents.
func NewAuthError(requestID string) *RelayError {
	return &RelayError{
		Type:      AuthError,
		Message:   "invalid signature",
		Code:      http.StatusUnauthorized,
		RequestID: requestID,
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for any request validation failures, such as:
//   - Unparseable JSON bodies
//   - Empty extracted queries
func NewValidationError(requestID, message string) *RelayError {
	return &RelayError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
	}
}

// NewProviderError creates a provider error with appropriate defaults.
// The callback handler deliberately does not surface these as HTTP errors;
// they exist for logging and for callers outside the callback path.
func NewProviderError(requestID string, message string, err error) *RelayError {
	return &RelayError{
		Type:      ProviderError,
		Message:   message,
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewInternalError creates an internal server error with appropriate defaults.
// Use this for unexpected errors that are not covered by other error types,
// such as panics or serialization failures.
func NewInternalError(requestID string, err error) *RelayError {
	return &RelayError{
		Type:      InternalError,
		Message:   "internal error",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
