package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the principal may not act on the target resource.
	ErrForbidden = errors.New("application: forbidden")
	// ErrUnauthenticated is returned when a bearer credential is missing, invalid or expired.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrAlreadyRegistered is returned when a principal confirms attendance twice.
	ErrAlreadyRegistered = errors.New("application: already registered")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	// MissingRequired is set when at least one required field was absent.
	MissingRequired bool
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// require records a missing required field.
func (v *ValidationError) require(field, message string) {
	v.add(field, message)
	v.MissingRequired = true
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
	v.MissingRequired = v.MissingRequired || other.MissingRequired
}

// StoreError wraps an unexpected failure of the underlying document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	var sErr *StoreError
	if errors.As(err, &sErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
