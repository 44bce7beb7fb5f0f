package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindConfig, "load", "failed to load config",
				errors.New("file not found")),
			contains: []string{"[config:load]", "failed to load config", "file not found"},
		},
		{
			name:     "error without cause",
			err:      New(KindBackend, "dispatch", "no adapter"),
			contains: []string{"[backend:dispatch]", "no adapter"},
		},
		{
			name:     "error with reason",
			err:      WithReason(KindDecode, ReasonMalformed, "decode.base64", "invalid base64", errors.New("illegal byte")),
			contains: []string{"[decode/malformed:decode.base64]", "invalid base64", "illegal byte"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Detail(t *testing.T) {
	err := WithReason(KindNormalize, ReasonInvalidImage, "normalize", "decode image", errors.New("unknown format"))
	if got, want := err.Detail(), "decode image: unknown format"; got != want {
		t.Errorf("Detail() = %q, want %q", got, want)
	}
	if got := New(KindConfig, "x", "plain").Detail(); got != "plain" {
		t.Errorf("Detail() = %q, want plain", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindConfig, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_KeepsTypedError(t *testing.T) {
	inner := WithReason(KindDecode, ReasonNetwork, "fetch", "unexpected status", nil)
	outer := Wrap(KindBootstrap, "other", "ignored", fmt.Errorf("context: %w", inner))
	if outer != inner {
		t.Fatalf("Wrap should return the typed error already in the chain")
	}
	if Wrap(KindConfig, "x", "y", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindConfig, "test", "message"),
			kind:     KindConfig,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      fmt.Errorf("outer: %w", WithReason(KindDecode, ReasonMalformed, "test", "message", nil)),
			kind:     KindDecode,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindBackend,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestHasReason(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", WithReason(KindBackend, ReasonGemini, "dispatch", "boom", nil))
	if !HasReason(err, ReasonGemini) {
		t.Error("expected gemini reason")
	}
	if HasReason(err, ReasonOpenAICompatible) {
		t.Error("unexpected openai_compatible reason")
	}
	if HasReason(errors.New("plain"), ReasonGemini) {
		t.Error("plain errors carry no reason")
	}
}
