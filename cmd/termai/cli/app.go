// Package cli wires the terminal command surface (spec §4.9, component
// C11) over the core packages: store, config, session, branch, preset,
// dispatch, and the provider registry.
package cli

import (
	"context"
	"fmt"

	"github.com/kyco/termai/internal/branch"
	"github.com/kyco/termai/internal/config"
	"github.com/kyco/termai/internal/dispatch"
	"github.com/kyco/termai/internal/paths"
	"github.com/kyco/termai/internal/preset"
	"github.com/kyco/termai/internal/session"
	"github.com/kyco/termai/internal/store"
	"github.com/kyco/termai/pkg/provider"
)

// app bundles the opened store and every manager a command needs. Each
// command opens its own app from cmd.Context() and closes it before
// returning, rather than sharing one across the process lifetime.
type app struct {
	store      *store.Store
	config     *config.Registry
	sessions   *session.Manager
	branches   *branch.Manager
	presets    *preset.Manager
	dispatcher *dispatch.Dispatcher
}

// providerRegistry builds the live provider registry; tests swap this out
// for a fake adapter so the ask/chat commands can be exercised without
// making a real network call.
var providerRegistry = provider.NewRegistry

func openApp(ctx context.Context) (*app, error) {
	dbPath, err := paths.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cfg := config.New(s)
	sessions := session.New(s)
	branches := branch.New(s, sessions)
	presets := preset.NewManager()
	d := dispatch.New(sessions, branches, presets, providerRegistry())

	return &app{
		store:      s,
		config:     cfg,
		sessions:   sessions,
		branches:   branches,
		presets:    presets,
		dispatcher: d,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// resolveCredentials fills provider/model/API key from config when the CLI
// flags left them blank, falling back to the configured provider's
// environment variable per spec §6.
func (a *app) resolveCredentials(ctx context.Context, flagProvider, flagModel, flagKey string) (providerName, model, apiKey string, err error) {
	providerName = flagProvider
	if providerName == "" {
		providerName, err = a.config.FetchWithEnvFallback(ctx, config.KeyProvider)
		if err != nil {
			providerName = config.ProviderClaude
		}
	}

	model = flagModel
	if model == "" {
		modelKey := config.KeyDefaultModelClaude
		if providerName == config.ProviderOpenAI {
			modelKey = config.KeyDefaultModelOpenAI
		}
		if m, mErr := a.config.Get(ctx, modelKey); mErr == nil {
			model = m
		}
	}

	apiKey = flagKey
	if apiKey == "" {
		keyName := config.KeyClaudeAPIKey
		if providerName == config.ProviderOpenAI {
			keyName = config.KeyOpenAIAPIKey
		}
		apiKey, err = a.config.FetchWithEnvFallback(ctx, keyName)
		if err != nil {
			return providerName, model, "", fmt.Errorf("no API key configured for provider %q: %w", providerName, err)
		}
	}

	return providerName, model, apiKey, nil
}
