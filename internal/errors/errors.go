// Package errors provides sentinel errors, structured error details and exit
// codes for lmctl.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates a project failed validation.
	ErrValidation = errors.New("validation error")

	// ErrConnectivity indicates the orchestrator could not be reached.
	ErrConnectivity = errors.New("connectivity error")

	// ErrPermission indicates the orchestrator rejected the credentials.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates a project, package or remote object was not found.
	ErrNotFound = errors.New("not found")
)

// DetailError is an error that names where in a project or environment it
// happened and how the user can fix it.
type DetailError struct {
	// Kind is the error category, printed before the message.
	Kind string

	Message string

	// Project is the full name of the project node, e.g. "root/db".
	Project string

	// File is relative to the project root.
	File string

	Environment string

	// Hint is a suggested fix.
	Hint string

	Cause error
}

func (e *DetailError) Error() string {
	var b strings.Builder
	if e.Kind != "" {
		b.WriteString(e.Kind)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)

	for _, field := range []struct{ label, value string }{
		{"project", e.Project},
		{"file", e.File},
		{"environment", e.Environment},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "\n  %s: %s", field.label, field.value)
		}
	}
	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewValidationError reports a problem with a file of a project node.
func NewValidationError(project, file, message string) error {
	return &DetailError{
		Kind:    "validation failed",
		Message: message,
		Project: project,
		File:    file,
		Cause:   ErrValidation,
	}
}

// NewConnectivityError reports an environment that could not be reached.
func NewConnectivityError(environment, message string, cause error) error {
	if cause == nil {
		cause = ErrConnectivity
	} else {
		cause = fmt.Errorf("%w: %w", ErrConnectivity, cause)
	}
	return &DetailError{
		Kind:        "connectivity failed",
		Message:     message,
		Environment: environment,
		Cause:       cause,
	}
}

// NewNotFoundError reports a missing project, file or environment.
func NewNotFoundError(message, hint string) error {
	return &DetailError{
		Message: message,
		Hint:    hint,
		Cause:   ErrNotFound,
	}
}

// NewPermissionError reports missing or rejected credentials.
func NewPermissionError(environment, message, hint string) error {
	return &DetailError{
		Kind:        "permission denied",
		Message:     message,
		Environment: environment,
		Hint:        hint,
		Cause:       ErrPermission,
	}
}

// Wrap annotates sentinel with message.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
