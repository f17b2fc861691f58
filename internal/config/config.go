// Package config is the typed accessor over the store (spec §4.1,
// component C2) for a fixed, closed set of configuration keys.
package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/redact"
	"github.com/kyco/termai/internal/store"
)

// Key is a closed enumeration of recognized configuration keys.
type Key string

const (
	KeyProvider         Key = "provider"
	KeyClaudeAPIKey      Key = "claude_api_key"
	KeyOpenAIAPIKey      Key = "openai_api_key"
	KeyRedactionList     Key = "redaction_list"
	KeyDefaultModelClaude Key = "default_model.claude"
	KeyDefaultModelOpenAI Key = "default_model.openai"
	KeySmartContext      Key = "smart_context"
	KeyMaxContextTokens  Key = "max_context_tokens"
	KeyOAuthAccessToken  Key = "oauth_access_token"
	KeyOAuthRefreshToken Key = "oauth_refresh_token"
	KeyOAuthExpiry       Key = "oauth_expiry"
	KeyTelemetry         Key = "telemetry"
)

// allKeys is the closed set, used to validate import/export and reset.
var allKeys = []Key{
	KeyProvider, KeyClaudeAPIKey, KeyOpenAIAPIKey, KeyRedactionList,
	KeyDefaultModelClaude, KeyDefaultModelOpenAI, KeySmartContext,
	KeyMaxContextTokens, KeyOAuthAccessToken, KeyOAuthRefreshToken,
	KeyOAuthExpiry, KeyTelemetry,
}

// envFallback maps a Key to the environment variable consulted when the
// store has no row for it, per spec §6.
var envFallback = map[Key]string{
	KeyOpenAIAPIKey: "OPENAI_API_KEY",
	KeyClaudeAPIKey: "CLAUDE_API_KEY",
	KeyProvider:     "TERMAI_PROVIDER",
	KeySmartContext: "TERMAI_SMART_CONTEXT",
}

// Provider values accepted by KeyProvider.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Registry is the typed accessor over a store.Store.
type Registry struct {
	store *store.Store
}

// New wraps a store.Store as a config Registry.
func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

func isKnownKey(k Key) bool {
	for _, known := range allKeys {
		if known == k {
			return true
		}
	}
	return false
}

// Get returns the raw value for key, or coreerr.KindNotFound if absent.
func (r *Registry) Get(ctx context.Context, key Key) (string, error) {
	if !isKnownKey(key) {
		return "", coreerr.New(coreerr.KindValidation, "unknown config key: "+string(key))
	}
	var value string
	err := store.WithBusyRetry(ctx, func() error {
		return r.store.DB().QueryRowContext(ctx,
			`SELECT value FROM config WHERE key = ?`, string(key)).Scan(&value)
	})
	switch {
	case err == sql.ErrNoRows:
		return "", coreerr.New(coreerr.KindNotFound, "config key not set: "+string(key),
			"use 'config set' to configure this value")
	case err != nil:
		return "", coreerr.Wrap(coreerr.KindBusy, "read config", err)
	}
	return value, nil
}

// Set upserts key=value. Rejects empty/whitespace-only values for the
// redaction list entries (validated at the List helper, not here, since a
// single Set call writes the whole comma-joined list).
func (r *Registry) Set(ctx context.Context, key Key, value string) error {
	if !isKnownKey(key) {
		return coreerr.New(coreerr.KindValidation, "unknown config key: "+string(key))
	}
	err := store.WithBusyRetry(ctx, func() error {
		_, execErr := r.store.DB().ExecContext(ctx, `
			INSERT INTO config(key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, string(key), value)
		return execErr
	})
	if err != nil {
		return coreerr.Wrap(coreerr.KindBusy, "write config", err)
	}
	return nil
}

// Delete removes a config entry, used only by explicit reset.
func (r *Registry) Delete(ctx context.Context, key Key) error {
	err := store.WithBusyRetry(ctx, func() error {
		_, execErr := r.store.DB().ExecContext(ctx, `DELETE FROM config WHERE key = ?`, string(key))
		return execErr
	})
	if err != nil {
		return coreerr.Wrap(coreerr.KindBusy, "delete config", err)
	}
	return nil
}

// Entry is a single exported config row.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// List returns every stored config entry (not env-fallback values),
// lexically ordered by key, excluding the internal schema version marker.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT key, value FROM config WHERE key NOT LIKE '\_\_%' ESCAPE '\' ORDER BY key`)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindBusy, "list config", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, coreerr.Wrap(coreerr.KindIntegrityError, "scan config row", err)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// FetchWithEnvFallback reads the database and, on Missing, reads the
// prescribed environment variable, returning a synthesized value without
// writing it back, per spec §4.1.
func (r *Registry) FetchWithEnvFallback(ctx context.Context, key Key) (string, error) {
	value, err := r.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !coreerr.Of(err, coreerr.KindNotFound) {
		return "", err
	}
	envVar, ok := envFallback[key]
	if !ok {
		return "", err
	}
	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}
	return "", err
}

// Reset deletes every config entry except the schema version marker.
func (r *Registry) Reset(ctx context.Context) error {
	err := store.WithBusyRetry(ctx, func() error {
		_, execErr := r.store.DB().ExecContext(ctx, `DELETE FROM config WHERE key NOT LIKE '\_\_%' ESCAPE '\'`)
		return execErr
	})
	if err != nil {
		return coreerr.Wrap(coreerr.KindBusy, "reset config", err)
	}
	return nil
}

// Export serializes every config entry to a JSON document.
func (r *Registry) Export(ctx context.Context) ([]byte, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "marshal config export", err)
	}
	return data, nil
}

// Import loads entries from a JSON document produced by Export, upserting
// each one. Unknown keys are rejected with coreerr.KindValidation and abort
// the whole import before any writes occur.
func (r *Registry) Import(ctx context.Context, data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return coreerr.Wrap(coreerr.KindValidation, "parse config import", err)
	}
	for _, e := range entries {
		if !isKnownKey(Key(e.Key)) {
			return coreerr.New(coreerr.KindValidation, "unknown config key in import: "+e.Key)
		}
	}
	for _, e := range entries {
		if err := r.Set(ctx, Key(e.Key), e.Value); err != nil {
			return err
		}
	}
	return nil
}

// RedactionList returns the configured redaction tokens in insertion order.
func (r *Registry) RedactionList(ctx context.Context) ([]string, error) {
	value, err := r.Get(ctx, KeyRedactionList)
	if coreerr.Of(err, coreerr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens, nil
}

// AddRedaction appends a token to the redaction list. Empty or
// whitespace-only tokens are rejected at write time per spec §4.3.
func (r *Registry) AddRedaction(ctx context.Context, token string) error {
	if err := redact.Validate(token); err != nil {
		wrapped := coreerr.New(coreerr.KindValidation, err.Error())
		logging.Warn(ctx, "add redaction: validation failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	if strings.Contains(token, ",") {
		wrapped := coreerr.New(coreerr.KindValidation, "redaction token cannot contain a comma")
		logging.Warn(ctx, "add redaction: validation failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	existing, err := r.RedactionList(ctx)
	if err != nil {
		logging.Warn(ctx, "add redaction: read list failed", slog.String("err", err.Error()))
		return err
	}
	for _, e := range existing {
		if e == token {
			return nil // idempotent add
		}
	}
	existing = append(existing, token)
	if err := r.Set(ctx, KeyRedactionList, strings.Join(existing, ",")); err != nil {
		logging.Warn(ctx, "add redaction: write list failed", slog.String("err", err.Error()))
		return err
	}
	return nil
}

// RemoveRedaction removes a token from the redaction list, if present.
func (r *Registry) RemoveRedaction(ctx context.Context, token string) error {
	existing, err := r.RedactionList(ctx)
	if err != nil {
		logging.Warn(ctx, "remove redaction: read list failed", slog.String("err", err.Error()))
		return err
	}
	filtered := existing[:0:0]
	for _, e := range existing {
		if e != token {
			filtered = append(filtered, e)
		}
	}
	if err := r.Set(ctx, KeyRedactionList, strings.Join(filtered, ",")); err != nil {
		logging.Warn(ctx, "remove redaction: write list failed", slog.String("err", err.Error()))
		return err
	}
	return nil
}

// Validate checks that stored configuration is internally consistent:
// the provider selection (if set) is one of the closed enum, and any
// configured API key is non-empty and free of whitespace. Returns a
// coreerr.KindValidation error listing every problem found, or nil.
func (r *Registry) Validate(ctx context.Context) error {
	var problems []string

	if provider, err := r.Get(ctx, KeyProvider); err == nil {
		if provider != ProviderClaude && provider != ProviderOpenAI {
			problems = append(problems, "provider must be 'claude' or 'openai', got "+provider)
		}
	}

	for _, key := range []Key{KeyClaudeAPIKey, KeyOpenAIAPIKey} {
		value, err := r.Get(ctx, key)
		if err != nil {
			continue
		}
		if strings.TrimSpace(value) == "" || strings.ContainsAny(value, " \t\n") {
			problems = append(problems, string(key)+" is set but is empty or contains whitespace")
		}
	}

	if raw, err := r.Get(ctx, KeyMaxContextTokens); err == nil {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 || n > 100000 {
			problems = append(problems, "max_context_tokens must be an integer in (0, 100000]")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return coreerr.New(coreerr.KindValidation, "configuration validation failed", problems...)
}
