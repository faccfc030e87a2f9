// Package apperr defines the error kinds surfaced to the user interface.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookups and state conflicts.
var (
	ErrNotFound = errors.New("not found")
)

// UserFacing is implemented by errors that carry a message suitable for
// display in a toast or an HTTP error body.
type UserFacing interface {
	error
	UserMessage() string
}

// ConfigurationError reports missing or invalid local configuration,
// such as an absent AI provider credential.
type ConfigurationError struct {
	Setting string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration %s: %s", e.Setting, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) UserMessage() string { return e.Message }

// APIErrorKind classifies provider failures.
type APIErrorKind string

const (
	APIErrorQuota    APIErrorKind = "quota"
	APIErrorBlocked  APIErrorKind = "blocked"
	APIErrorProvider APIErrorKind = "provider"
)

// APIError wraps a failure returned by the AI provider.
type APIError struct {
	Kind       APIErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("api error (%s)", e.Kind)
	}
	return fmt.Sprintf("api error (%s): %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// UserMessage returns a distinct message per kind.
func (e *APIError) UserMessage() string {
	switch e.Kind {
	case APIErrorQuota:
		return "API quota exceeded. Please try again later."
	case APIErrorBlocked:
		return "Content analysis was blocked by safety filters. Please try a different URL."
	default:
		return "Failed to analyze the Instagram Reel. Please try again."
	}
}

// ValidationError reports rejected user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation %s: %s", e.Field, e.Message)
}

func (e *ValidationError) UserMessage() string { return e.Message }

// NewValidation is shorthand for a *ValidationError.
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps failures reading or writing a persisted key.
type PersistenceError struct {
	Key string
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) UserMessage() string {
	return "Failed to save your changes. Please try again."
}

// PipelineError reports a failed export stage.
type PipelineError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying worker error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *PipelineError) UserMessage() string {
	return "Export failed. Please try again."
}

// Message returns the user-facing text for err, or fallback when err does
// not carry one.
func Message(err error, fallback string) string {
	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}
	return fallback
}
