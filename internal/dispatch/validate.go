// Package dispatch validates a pre-parsed command variant against the
// cross-argument invariants of spec §4.9 (component C11) and routes it to
// the components above. It is the dispatcher's own layer: it does not parse
// CLI flags (cmd/termai does that) and does not itself talk to the store.
package dispatch

import (
	"strings"

	"github.com/kyco/termai/internal/coreerr"
)

const (
	maxContextTokens  = 100000
	maxQuestionLength = 5000
)

// ContextArgs is the shared shape of context-selection flags carried by
// chat and ask requests.
type ContextArgs struct {
	Directory        string
	Directories      []string
	Exclude          []string
	SmartContext     bool
	MaxContextTokens int // 0 means "not set"
	PreviewContext   bool
	ContextQuery     string
	ChunkedAnalysis  bool
	ChunkStrategy    string
}

var validChunkStrategies = map[string]bool{
	"module": true, "functional": true, "token": true, "hierarchical": true,
}

// ValidateContextArgs enforces spec §4.9's context-selection invariants,
// shared by chat and ask.
func ValidateContextArgs(a ContextArgs) error {
	if a.ChunkedAnalysis && !a.SmartContext {
		return coreerr.New(coreerr.KindValidation,
			"chunked analysis requires smart context to be enabled",
			"add --smart-context to enable smart context discovery",
			"or remove --chunked-analysis if you don't need it")
	}
	if a.ChunkedAnalysis && !validChunkStrategies[a.ChunkStrategy] {
		return coreerr.New(coreerr.KindValidation,
			"invalid chunk strategy: \""+a.ChunkStrategy+"\"",
			"use --chunk-strategy module, functional, token, or hierarchical")
	}
	if a.ContextQuery != "" && !a.SmartContext {
		return coreerr.New(coreerr.KindValidation,
			"context query requires smart context to be enabled",
			"add --smart-context to enable context discovery",
			"or remove --context-query if you don't need targeted context")
	}
	if a.PreviewContext && !a.SmartContext {
		return coreerr.New(coreerr.KindValidation,
			"context preview requires smart context to be enabled",
			"add --smart-context to enable context discovery",
			"or remove --preview-context if preview isn't needed")
	}

	if a.Directory != "" && len(a.Directories) > 0 {
		return coreerr.New(coreerr.KindValidation,
			"cannot specify both a single directory and multiple directories",
			"use --directory for a single directory",
			"use --directories dir1,dir2,dir3 for multiple directories")
	}

	if a.SmartContext && (a.Directory != "" || len(a.Directories) > 0) {
		return coreerr.New(coreerr.KindValidation,
			"smart context conflicts with explicit directory specification",
			"use smart context for automatic discovery",
			"or use explicit directories without --smart-context")
	}

	if a.MaxContextTokens != 0 {
		if a.MaxContextTokens < 0 {
			return coreerr.New(coreerr.KindValidation,
				"maximum context tokens cannot be negative",
				"remove --max-context-tokens to use the default limit")
		}
		if a.MaxContextTokens > maxContextTokens {
			return coreerr.New(coreerr.KindValidation,
				"maximum context tokens is too high (limit: 100,000)",
				"use a smaller token limit for better performance",
				"consider --chunked-analysis for large contexts")
		}
		if !a.SmartContext {
			return coreerr.New(coreerr.KindValidation,
				"context token limits are only useful with smart context",
				"add --smart-context to enable intelligent context selection",
				"or remove --max-context-tokens if not using smart context")
		}
	}

	for _, pattern := range a.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return coreerr.New(coreerr.KindValidation,
				"empty exclude pattern is not allowed",
				"remove empty exclude patterns",
				"use specific patterns like \"*.log\" or \"target/\"")
		}
		if strings.Count(pattern, "**") > 2 {
			return coreerr.New(coreerr.KindValidation,
				"complex glob pattern may be inefficient: \""+pattern+"\"",
				"use simpler patterns like \"*.ext\" or \"dir/\"",
				"avoid excessive recursive wildcards")
		}
	}

	return nil
}

// ValidateQuestion enforces ask's question-length invariant.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return coreerr.New(coreerr.KindValidation, "question cannot be empty",
			"provide a question: termai ask \"What does this code do?\"",
			"use quotes if your question contains spaces or special characters")
	}
	if len(question) > maxQuestionLength {
		return coreerr.New(coreerr.KindValidation, "question is too long (maximum 5000 characters)",
			"break your question into smaller, more focused queries",
			"use \"termai chat\" for longer conversations")
	}
	return nil
}
