package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error surfaced by an operation matches exactly one of these via errors.Is.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrExternalProvider = errors.New("external provider error")
	ErrState            = errors.New("illegal state transition")
	ErrConflict         = errors.New("conflict")
)

// Error carries a stable code and a caller-safe message on top of an error kind.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NotFound builds a NotFound error, e.g. NotFound("payment_not_found", "payment not found").
func NotFound(code, message string) error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

// Unauthorized builds a role-mismatch error.
func Unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Code: "unauthorized", Message: message}
}

// StateViolation builds an illegal-transition error.
func StateViolation(code, message string) error {
	return &Error{Kind: ErrState, Code: code, Message: message}
}

// Conflict builds a uniqueness error.
func Conflict(code, message string) error {
	return &Error{Kind: ErrConflict, Code: code, Message: message}
}

// ExternalProvider wraps a collaborator failure. The cause is kept for logs only.
func ExternalProvider(message string, err error) error {
	return &Error{Kind: ErrExternalProvider, Code: "external_provider_error", Message: message, Err: err}
}

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add records a message against a field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns a *ValidationError when any field was recorded, nil otherwise.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidationError is returned when required input is missing or malformed.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], ", "))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a single-field ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Fields: FieldErrors{field: {message}}}
}

// Code returns the stable code for err, or "internal" when err is not a domain error.
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "validation_error"
	}
	return "internal"
}
