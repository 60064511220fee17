package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError(t *testing.T) {
	originalErr := errors.New("connection refused")
	err := &APIError{
		Op:     "login",
		Status: 0,
		Kind:   FailureNetwork,
		Err:    originalErr,
	}

	msg := err.Error()
	if !strings.Contains(msg, "api error [login]") {
		t.Errorf("APIError.Error() should contain op, got: %q", msg)
	}
	if !strings.Contains(msg, "network") {
		t.Errorf("APIError.Error() should contain kind, got: %q", msg)
	}
	if strings.Contains(msg, "status") {
		t.Errorf("APIError.Error() should omit status for transport errors, got: %q", msg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("APIError.Unwrap() should return original error")
	}

	withStatus := &APIError{Op: "register", Status: 400, Kind: FailureValidation, Detail: "Email already registered"}
	msg = withStatus.Error()
	if !strings.Contains(msg, "status 400") || !strings.Contains(msg, "Email already registered") {
		t.Errorf("APIError.Error() = %q, want status and detail", msg)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "nil", err: nil, want: FailureUnknown},
		{name: "plain error", err: errors.New("boom"), want: FailureUnknown},
		{name: "api error", err: &APIError{Op: "login", Kind: FailureInvalidCredentials}, want: FailureInvalidCredentials},
		{name: "wrapped api error", err: fmt.Errorf("login: %w", &APIError{Op: "me", Kind: FailureServer}), want: FailureServer},
		{name: "not authenticated", err: fmt.Errorf("chat: %w", ErrNotAuthenticated), want: FailureUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureKind_String(t *testing.T) {
	kinds := map[FailureKind]string{
		FailureUnknown:            "unknown",
		FailureInvalidCredentials: "invalid_credentials",
		FailureValidation:         "validation",
		FailureUnauthorized:       "unauthorized",
		FailureNotFound:           "not_found",
		FailureNetwork:            "network",
		FailureServer:             "server",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("FailureKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestStorageError(t *testing.T) {
	originalErr := errors.New("disk full")
	err := &StorageError{Path: "/tmp/state.db", Op: "write", Key: "sahayak-token", Err: originalErr}

	msg := err.Error()
	if !strings.Contains(msg, "storage error") || !strings.Contains(msg, "sahayak-token") {
		t.Errorf("StorageError.Error() = %q", msg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestConfigError(t *testing.T) {
	originalErr := errors.New("invalid duration")
	err := &ConfigError{Field: "SAHAYAK_REQUEST_TIMEOUT", Value: "soon", Err: originalErr}

	if !strings.Contains(err.Error(), "SAHAYAK_REQUEST_TIMEOUT") {
		t.Errorf("ConfigError.Error() should contain field, got: %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ConfigError.Unwrap() should return original error")
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &ExportError{Format: "md", Path: "/out/chat.md", Err: originalErr}

	if !strings.Contains(err.Error(), "export error [md]") {
		t.Errorf("ExportError.Error() = %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}
