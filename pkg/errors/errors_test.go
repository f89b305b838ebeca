package errors

import (
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with status code",
			err:  &Error{Type: ErrorTypeServer, Message: "bad gateway", Code: 502},
			want: "server_error error (code 502): bad gateway",
		},
		{
			name: "without status code",
			err:  &Error{Type: ErrorTypeProxy, Message: "connect refused"},
			want: "proxy error: connect refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeProxy, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeServer, true},
		{ErrorTypeRateLimited, false}, // surfaced to the caller, never looped
		{ErrorTypeAuth, false},
		{ErrorTypeClient, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeExhausted, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			if got := IsRetryable(tt.errorType); got != tt.want {
				t.Errorf("IsRetryable(%s) = %v, want %v", tt.errorType, got, tt.want)
			}
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{0, true},
		{429, false},
		{401, false},
		{403, false},
		{404, false},
		{500, true},
		{502, true},
		{503, true},
		{418, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			if got := IsRetryableStatusCode(tt.code); got != tt.want {
				t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestTypedHelpers(t *testing.T) {
	rateLimited := &Error{Type: ErrorTypeRateLimited, Message: "slow down", Code: 429, RetryAfter: 45}
	wrapped := fmt.Errorf("collect posts: %w", rateLimited)

	if !IsRateLimited(wrapped) {
		t.Error("IsRateLimited should see through wrapping")
	}
	if got := RetryAfterSeconds(wrapped); got != 45 {
		t.Errorf("RetryAfterSeconds = %d, want 45", got)
	}
	if IsAuth(wrapped) || IsProxy(wrapped) {
		t.Error("mismatched type helpers should report false")
	}

	plain := fmt.Errorf("not a typed error")
	if TypeOf(plain) != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %s, want %s", TypeOf(plain), ErrorTypeUnknown)
	}
	if RetryAfterSeconds(plain) != 0 {
		t.Error("RetryAfterSeconds of untyped error should be 0")
	}
}
