package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by actions that need a logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnknownLanguage is returned when a language code is not supported.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrSchemeNotFound is returned when a scheme id is not in the current list.
	ErrSchemeNotFound = errors.New("scheme not found")
)

// FailureKind classifies why a backend call failed.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureInvalidCredentials
	FailureValidation
	FailureUnauthorized
	FailureNotFound
	FailureNetwork
	FailureServer
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureValidation:
		return "validation"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureNotFound:
		return "not_found"
	case FailureNetwork:
		return "network"
	case FailureServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError represents a failed call to the remote API
type APIError struct {
	Op     string // "login", "list_schemes", ...
	Status int    // HTTP status, 0 for transport failures
	Kind   FailureKind
	Detail string // backend "detail" field when present
	Err    error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error [%s] %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf reports the failure kind carried by err. Errors that did not come
// from the API report FailureUnknown.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return FailureUnauthorized
	}
	return FailureUnknown
}

// StorageError represents errors reading or writing local state
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "delete", "decode"
	Key  string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error: %s %s [%s]: %v", e.Op, e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s=%q]: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during transcript export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
