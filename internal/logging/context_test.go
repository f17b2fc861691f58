package logging

import (
	"context"
	"testing"
)

// testComponent is defined in logger_test.go

func TestWithSession(t *testing.T) {
	ctx := context.Background()
	sessionID := "2025-01-15-test-session"

	ctx = WithSession(ctx, sessionID)

	got := SessionIDFromContext(ctx)
	if got != sessionID {
		t.Errorf("SessionIDFromContext() = %q, want %q", got, sessionID)
	}
}

func TestWithBranch(t *testing.T) {
	ctx := context.Background()
	branchID := "feature-widget"

	ctx = WithBranch(ctx, branchID)

	got := BranchIDFromContext(ctx)
	if got != branchID {
		t.Errorf("BranchIDFromContext() = %q, want %q", got, branchID)
	}
}

func TestWithComponent(t *testing.T) {
	ctx := context.Background()

	ctx = WithComponent(ctx, testComponent)

	got := ComponentFromContext(ctx)
	if got != testComponent {
		t.Errorf("ComponentFromContext() = %q, want %q", got, testComponent)
	}
}

func TestContextValues_Empty(t *testing.T) {
	ctx := context.Background()

	// All should return empty strings for unset context
	if got := SessionIDFromContext(ctx); got != "" {
		t.Errorf("SessionIDFromContext() on empty = %q, want empty", got)
	}
	if got := BranchIDFromContext(ctx); got != "" {
		t.Errorf("BranchIDFromContext() on empty = %q, want empty", got)
	}
	if got := ComponentFromContext(ctx); got != "" {
		t.Errorf("ComponentFromContext() on empty = %q, want empty", got)
	}
}

func TestContextValues_Chaining(t *testing.T) {
	ctx := context.Background()

	// Chain multiple values
	ctx = WithSession(ctx, "session-1")
	ctx = WithBranch(ctx, "branch-1")
	ctx = WithComponent(ctx, testComponent)

	// All values should be preserved
	if got := SessionIDFromContext(ctx); got != "session-1" {
		t.Errorf("SessionIDFromContext() = %q, want 'session-1'", got)
	}
	if got := BranchIDFromContext(ctx); got != "branch-1" {
		t.Errorf("BranchIDFromContext() = %q, want 'branch-1'", got)
	}
	if got := ComponentFromContext(ctx); got != testComponent {
		t.Errorf("ComponentFromContext() = %q, want %q", got, testComponent)
	}
}

func TestAttrsFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithSession(ctx, "session-123")
	ctx = WithBranch(ctx, "branch-456")
	ctx = WithComponent(ctx, testComponent)

	// Pass empty string for globalSessionID to include context session_id
	attrs := attrsFromContext(ctx, "")

	// Should have 3 attrs
	if len(attrs) != 3 {
		t.Errorf("attrsFromContext() returned %d attrs, want 3", len(attrs))
	}

	// Verify attr values
	attrMap := make(map[string]string)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr.Value.String()
	}

	if attrMap["session_id"] != "session-123" {
		t.Errorf("session_id = %q, want 'session-123'", attrMap["session_id"])
	}
	if attrMap["branch_id"] != "branch-456" {
		t.Errorf("branch_id = %q, want 'branch-456'", attrMap["branch_id"])
	}
	if attrMap["component"] != testComponent {
		t.Errorf("component = %q, want %q", attrMap["component"], testComponent)
	}
}

func TestAttrsFromContext_Partial(t *testing.T) {
	ctx := context.Background()
	ctx = WithSession(ctx, "session-only")

	// Pass empty string for globalSessionID to include context session_id
	attrs := attrsFromContext(ctx, "")

	// Should only have 1 attr (session_id) since others are empty
	if len(attrs) != 1 {
		t.Errorf("attrsFromContext() returned %d attrs, want 1", len(attrs))
	}

	if attrs[0].Key != "session_id" || attrs[0].Value.String() != "session-only" {
		t.Errorf("Expected session_id='session-only', got %s=%s", attrs[0].Key, attrs[0].Value.String())
	}
}

func TestAttrsFromContext_SkipsSessionWhenGlobalSet(t *testing.T) {
	ctx := context.Background()
	ctx = WithSession(ctx, "context-session")
	ctx = WithBranch(ctx, "branch-123")

	// Pass a global session ID - context session_id should be skipped
	attrs := attrsFromContext(ctx, "global-session")

	// Should only have 1 attr (branch_id) since session_id is skipped
	if len(attrs) != 1 {
		t.Errorf("attrsFromContext() returned %d attrs, want 1 (session_id should be skipped)", len(attrs))
	}

	if attrs[0].Key != "branch_id" || attrs[0].Value.String() != "branch-123" {
		t.Errorf("Expected branch_id='branch-123', got %s=%s", attrs[0].Key, attrs[0].Value.String())
	}
}
