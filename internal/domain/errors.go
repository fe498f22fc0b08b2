// Package domain provides core domain models and types.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced record does not exist.
// Handlers translate this into a 404 response.
var ErrNotFound = errors.New("not found")

// ConfigError indicates invalid or missing run-level configuration
// (empty symbol universe, missing provider credentials). Fatal to a run.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Msg
}

// NewConfigError creates a ConfigError with the given message
func NewConfigError(msg string) *ConfigError {
	return &ConfigError{Msg: msg}
}

// ProviderError indicates a failed call to an external provider (market data
// or LLM). Status is the HTTP status when known, RequestID the provider's
// request identifier when one was returned.
type ProviderError struct {
	Provider  string
	Status    int
	RequestID string
	Body      string
	Err       error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s error", e.Provider)
	if e.Status != 0 {
		msg += fmt.Sprintf(" %d", e.Status)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" [req:%s]", e.RequestID)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
