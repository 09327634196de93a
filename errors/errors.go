// Package errors provides error types and handling for snowsync operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a snowsync operation error with context about the
// operation that failed. It wraps the underlying store or SDK error with
// additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "list", "copy", "delete")
	Op string

	// Store identifies the store involved (if applicable),
	// e.g. "s3://bucket" or a local path
	Store string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the store, the AWS SDK, or
	// another source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Store != "" && e.Key != "" {
		return fmt.Sprintf("snowsync.%s %s %s: %v", e.Op, e.Store, e.Key, e.Err)
	}
	if e.Store != "" {
		return fmt.Sprintf("snowsync.%s %s: %v", e.Op, e.Store, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("snowsync.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("snowsync.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithStore adds store context to an existing error.
func (e *Error) WithStore(store string) *Error {
	e.Store = store
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewStoreError creates a new Error with store context.
func NewStoreError(op, store string, err error) *Error {
	return &Error{
		Op:    op,
		Store: store,
		Err:   err,
	}
}

// NewObjectError creates a new Error with store and key context.
func NewObjectError(op, store, key string, err error) *Error {
	return &Error{
		Op:    op,
		Store: store,
		Key:   key,
		Err:   err,
	}
}

// Sentinel errors for snowsync operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrStoreUnavailable indicates a transient transport or availability
	// failure; operations seeing it are retried with bounded backoff
	ErrStoreUnavailable = errors.New("snowsync: store unavailable")

	// ErrAccessDenied indicates that access to the store was denied;
	// terminal, never retried
	ErrAccessDenied = errors.New("snowsync: access denied")

	// ErrAmbiguousMapping indicates that multiple source keys map to the
	// same destination key; terminal, raised during planning
	ErrAmbiguousMapping = errors.New("snowsync: ambiguous key mapping")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("snowsync: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("snowsync: bucket not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("snowsync: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("snowsync: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("snowsync: invalid object key")

	// ErrUnsupported indicates that the store does not support the
	// requested operation
	ErrUnsupported = errors.New("snowsync: operation not supported")
)

// IsStoreUnavailable checks if an error indicates a transient store failure.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsAccessDenied checks if an error indicates access was denied.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsAmbiguousMapping checks if an error indicates an ambiguous key mapping.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAmbiguousMapping(err error) bool {
	return errors.Is(err, ErrAmbiguousMapping)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsUnsupported checks if an error indicates an unsupported store operation.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsTerminal reports whether an error must not be retried. Only transient
// store failures are retryable; everything else is terminal.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrStoreUnavailable)
}
