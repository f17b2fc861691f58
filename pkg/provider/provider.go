// Package provider is the external Provider adapter seam (spec §6): the
// narrow port the core hands an already-redacted message list to, and
// receives a single assistant reply from. Adapters own wire format; the
// core never constructs a provider's request body directly.
package provider

import "context"

// Role mirrors internal/session.Role's three values without importing the
// session package, keeping this adapter boundary decoupled from the core.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn handed to an adapter; Content is already redacted.
type Message struct {
	Role    Role
	Content string
}

// Credentials carries what an adapter needs to authenticate, resolved by
// the caller from internal/config before the call.
type Credentials struct {
	APIKey string
}

// Adapter is the external Provider collaborator interface (spec §6):
// send(messages, model, creds) -> reply_message.
type Adapter interface {
	Send(ctx context.Context, messages []Message, model string, creds Credentials) (Message, error)
}

// Registry resolves an Adapter by name, mirroring config.ProviderClaude /
// config.ProviderOpenAI.
type Registry map[string]Adapter

// NewRegistry wires the two reference stub adapters under their config
// provider names.
func NewRegistry() Registry {
	return Registry{
		"claude": &ClaudeAdapter{},
		"openai": &OpenAIAdapter{},
	}
}

func (r Registry) Get(name string) (Adapter, bool) {
	a, ok := r[name]
	return a, ok
}
