package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotSignedIn        = errors.New("not signed in")
	ErrPassNotFound       = errors.New("pass not found")
	ErrMissingPassID      = errors.New("missing pass id")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	ErrStoreRead  = errors.New("store read failed")
	ErrStoreWrite = errors.New("store write failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRevoked       = errors.New("token revoked")
)

// Causes attached to a ValidationError.
var (
	ErrMissingSelection = errors.New("selection is required")
	ErrSameRoom         = errors.New("start and destination must differ")
	ErrUnknownRoom      = errors.New("unknown room")
	ErrRoomsNotLoaded   = errors.New("rooms not loaded")
)

// StoreError records which store operation failed. Kind is ErrStoreRead or
// ErrStoreWrite so callers can match on the failure class.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == e.Kind
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ReadFailure wraps err as a failed read of op. Domain sentinels pass through
// unchanged.
func ReadFailure(op string, err error) error {
	return storeFailure(op, ErrStoreRead, err)
}

// WriteFailure wraps err as a failed write of op. Domain sentinels pass through
// unchanged.
func WriteFailure(op string, err error) error {
	return storeFailure(op, ErrStoreWrite, err)
}

func storeFailure(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPassNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserExists) {
		return err
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// FieldError ties a validation cause to the input field that produced it.
type FieldError struct {
	Field string
	Err   error
}

// ValidationError is a caller-side rejection; it never reaches the store.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Err.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes every field cause to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		errs = append(errs, f.Err)
	}
	return errs
}

// Add appends a field cause.
func (e *ValidationError) Add(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Err: err})
}

// OrNil returns e when it holds at least one cause.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
