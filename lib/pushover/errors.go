package pushover

import (
	"errors"
	"fmt"
)

// ConnectionError is a transport failure or an unexpected HTTP status.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("pushover: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError means the application token or user key was rejected.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// APIError is a failure reported by the API for an otherwise valid exchange.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// ValidationError is returned before any request when a Message breaks a field constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
