package validation

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantErr   bool
		errMsg    string
	}{
		// Valid cases
		{
			name:      "valid session ID with date prefix and uuid",
			sessionID: "2026-01-25-f736da47-b2ca-4f86-bb32-a1bbe582e464",
			wantErr:   false,
		},
		{
			name:      "valid session ID with uuid only",
			sessionID: "f736da47-b2ca-4f86-bb32-a1bbe582e464",
			wantErr:   false,
		},
		{
			name:      "valid session ID with special characters",
			sessionID: "session-2026.01.25_test@123",
			wantErr:   false,
		},
		// Empty string (security-critical)
		{
			name:      "empty session ID",
			sessionID: "",
			wantErr:   true,
			errMsg:    "session ID cannot be empty",
		},
		// Path separators (security-critical - path traversal prevention)
		{
			name:      "session ID with forward slash",
			sessionID: "session/123",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "session ID with backslash",
			sessionID: "session\\123",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "path traversal attempt",
			sessionID: "../../etc/passwd",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "absolute unix path",
			sessionID: "/etc/passwd",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "absolute windows path",
			sessionID: "C:\\Windows\\System32",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.sessionID)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateSessionID(%q) expected error containing %q, got nil", tt.sessionID, tt.errMsg)
					return
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateSessionID(%q) error = %q, want error containing %q", tt.sessionID, err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("ValidateSessionID(%q) unexpected error: %v", tt.sessionID, err)
			}
		})
	}
}
