// Package validation provides input validation functions shared across the
// CLI surface. This package has no dependencies to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateSessionID validates that a session ID doesn't contain path separators.
// This prevents path traversal attacks when session IDs are used in file paths.
func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid session ID %q: contains path separators", id)
	}
	return nil
}
