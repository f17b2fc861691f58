// Package redact is the bidirectional redaction engine (spec §4.3,
// component C3): it substitutes configured plaintext secret tokens with
// stable placeholders before a message list leaves the machine, and
// restores them in a provider's reply so downstream display is faithful.
package redact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Message mirrors the subset of session.Message the engine needs: role is
// irrelevant to redaction, only content is rewritten.
type Message struct {
	Role    string
	Content string
}

// Table is the ephemeral transform produced by Redact, mapping each
// placeholder back to the original token it replaced. It is never
// persisted; its scope is the single outbound request (spec §4.3).
type Table map[string]string

const placeholderPrefix = "⟦REDACT:"
const placeholderSuffix = "⟧"

// Engine applies a configured, ordered list of plaintext tokens.
type Engine struct {
	tokens []string
}

// New builds an Engine over the given redaction list. Order is preserved
// internally only to give deterministic placeholder assignment; matching
// itself is always longest-token-first regardless of list order.
func New(tokens []string) *Engine {
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	return &Engine{tokens: cp}
}

// Redact replaces every configured token with a placeholder of the form
// ⟦REDACT:n⟧, returning the rewritten messages and the transform table
// needed to reverse it. If the configured list is empty, it is the
// identity transform (spec §4.3 failure semantics).
func (e *Engine) Redact(messages []Message) ([]Message, Table) {
	if len(e.tokens) == 0 {
		return messages, Table{}
	}

	// Longest-first so a token that is a prefix of another never masks the
	// longer match (spec §4.3 ordering invariant).
	ordered := make([]string, len(e.tokens))
	copy(ordered, e.tokens)
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	table := Table{}
	assigned := map[string]string{} // token -> placeholder, stable within this call
	next := 1

	var corpus strings.Builder
	for _, m := range messages {
		corpus.WriteString(m.Content)
	}
	allContent := corpus.String()

	// First pass: assign a disjoint placeholder to every token actually
	// present, in longest-first order, before touching any message content.
	for _, token := range ordered {
		if token == "" || !strings.Contains(allContent, token) {
			continue
		}
		if _, ok := assigned[token]; ok {
			continue
		}
		placeholder := nextDisjointPlaceholder(&next, allContent)
		assigned[token] = placeholder
		table[placeholder] = token
	}

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		for _, token := range ordered {
			placeholder, ok := assigned[token]
			if !ok {
				continue
			}
			content = strings.ReplaceAll(content, token, placeholder)
		}
		out = append(out, Message{Role: m.Role, Content: content})
	}

	return out, table
}

// nextDisjointPlaceholder returns the next ⟦REDACT:n⟧ placeholder,
// widening the index (and re-scanning) until it cannot occur in corpus, the
// concatenation of all outbound content before substitution. This
// satisfies the "placeholder disjointness" invariant (spec §8.2): a
// collision can only happen if the user's own text already contains a
// literal "⟦REDACT:n⟧" string, which we detect and skip past.
func nextDisjointPlaceholder(next *int, corpus string) string {
	for {
		candidate := placeholderPrefix + strconv.Itoa(*next) + placeholderSuffix
		*next++
		if !strings.Contains(corpus, candidate) {
			return candidate
		}
	}
}

// Unredact restores original tokens by exact placeholder match using the
// table produced by a prior Redact call.
func (e *Engine) Unredact(messages []Message, table Table) []Message {
	if len(table) == 0 {
		return messages
	}
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		for placeholder, original := range table {
			content = strings.ReplaceAll(content, placeholder, original)
		}
		out = append(out, Message{Role: m.Role, Content: content})
	}
	return out
}

// String is a convenience for redacting a single string outside of a
// message-list call, used by callers that only need to scrub one blob
// (e.g. a log line). It discards the transform table, so is one-way in
// practice; prefer Redact/Unredact for anything that must round-trip.
func (e *Engine) String(s string) string {
	msgs, _ := e.Redact([]Message{{Content: s}})
	return msgs[0].Content
}

// validate is exported as a package-level helper so config.Registry can
// reject empty/whitespace tokens at write time per spec §4.3, without this
// package importing config (which would create a cycle).
func Validate(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("redaction token must not be empty or whitespace")
	}
	return nil
}
