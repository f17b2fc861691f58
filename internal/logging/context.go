package logging

import (
	"context"
)

// Context keys for logging values.
// Using private types to avoid key collisions.
type contextKey int

const (
	sessionIDKey contextKey = iota
	branchIDKey
	componentKey
)

// WithSession adds a session ID to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithBranch adds a branch ID to the context.
func WithBranch(ctx context.Context, branchID string) context.Context {
	return context.WithValue(ctx, branchIDKey, branchID)
}

// WithComponent adds a component name to the context.
// Component names help identify the subsystem generating logs (e.g., "ask", "session", "branch").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// SessionIDFromContext extracts the session ID from the context.
// Returns empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(sessionIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// BranchIDFromContext extracts the branch ID from the context.
// Returns empty string if not set.
func BranchIDFromContext(ctx context.Context) string {
	if v := ctx.Value(branchIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ComponentFromContext extracts the component name from the context.
// Returns empty string if not set.
func ComponentFromContext(ctx context.Context) string {
	if v := ctx.Value(componentKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
