package cli

import (
	"context"

	"github.com/kyco/termai/pkg/provider"
)

// echoAdapter replies by prefixing the last message's content with "echo: ",
// standing in for a real provider so ask/chat can be exercised without a
// network call.
type echoAdapter struct{}

func (echoAdapter) Send(_ context.Context, messages []provider.Message, _ string, _ provider.Credentials) (provider.Message, error) {
	last := messages[len(messages)-1]
	return provider.Message{Role: provider.RoleAssistant, Content: "echo: " + last.Content}, nil
}

func fakeProviderRegistry() provider.Registry {
	return provider.Registry{"claude": echoAdapter{}, "openai": echoAdapter{}}
}
