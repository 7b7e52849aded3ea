package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed client error with HTTP awareness. Status carries
// the remote status code for server rejections and a synthetic code otherwise.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors covering every outcome the engine surfaces.
var (
	ErrCancelled       = New("CANCELLED", 0, "request superseded")
	ErrNetworkFailure  = New("NETWORK_FAILURE", 0, "no response received from the API")
	ErrServerRejected  = New("SERVER_REJECTED", http.StatusBadRequest, "the API rejected the request")
	ErrStaleItem       = New("STALE_ITEM", http.StatusConflict, "item is no longer in the current result set")
	ErrUnauthenticated = New("UNAUTHENTICATED", http.StatusUnauthorized, "not authenticated")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsCancelled reports whether err is (or wraps) a superseded request.
// Cancellation is a control-flow outcome, never shown to the user.
func IsCancelled(err error) bool {
	e := FromError(err)
	return e != nil && e.Code == ErrCancelled.Code
}

// ServerRejected builds a SERVER_REJECTED error carrying the remote status.
func ServerRejected(status int) *Error {
	return &Error{
		Code:    ErrServerRejected.Code,
		Status:  status,
		Message: fmt.Sprintf("the API rejected the request (status %d)", status),
	}
}
