package sazka

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
	return fmt.Sprintf("sazka: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError means the credentials were rejected or the client holds no session.
// A client that failed to log in stays unusable.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// DataError means a response did not have the expected shape.
type DataError struct {
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DataError) Unwrap() error { return e.Err }

func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsDataError(err error) bool {
	var target *DataError
	return errors.As(err, &target)
}

func dataErrorf(err error, format string, args ...any) *DataError {
	return &DataError{Message: fmt.Sprintf(format, args...), Err: err}
}
