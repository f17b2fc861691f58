package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kyco/termai/internal/branch"
	gocontext "github.com/kyco/termai/internal/context"
	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/preset"
	"github.com/kyco/termai/internal/redact"
	"github.com/kyco/termai/internal/session"
	"github.com/kyco/termai/pkg/provider"
)

// Dispatcher receives pre-parsed command variants, validates cross-argument
// invariants, and routes to the components above (spec §4.9, component
// C11). It holds no CLI-parsing logic: that lives in cmd/termai.
type Dispatcher struct {
	Sessions  *session.Manager
	Branches  *branch.Manager
	Presets   *preset.Manager
	Providers provider.Registry
}

// New builds a Dispatcher over the already-opened core components.
func New(sessions *session.Manager, branches *branch.Manager, presets *preset.Manager, providers provider.Registry) *Dispatcher {
	return &Dispatcher{Sessions: sessions, Branches: branches, Presets: presets, Providers: providers}
}

// AskRequest is the pre-parsed "ask" command variant.
type AskRequest struct {
	Question    string
	SessionName string // empty means ephemeral, not persisted
	Provider    string
	Model       string
	APIKey      string
	Redactions  []string
	Context     ContextArgs
	ProjectPath string
}

// AskResult is what the dispatcher hands back to the CLI to format.
type AskResult struct {
	Reply        string
	ContextFiles []string
	SessionName  string
}

// Ask validates an ask request, optionally gathers smart/explicit context,
// redacts outgoing content, calls the configured provider, unredacts the
// reply, and persists both turns if a session was named.
func (d *Dispatcher) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	ctx = logging.WithComponent(ctx, "ask")
	if err := ValidateQuestion(req.Question); err != nil {
		return AskResult{}, err
	}
	if err := ValidateContextArgs(req.Context); err != nil {
		return AskResult{}, err
	}

	adapter, ok := d.Providers.Get(req.Provider)
	if !ok {
		return AskResult{}, coreerr.New(coreerr.KindValidation,
			"unknown provider \""+req.Provider+"\"",
			"configure a provider with \"config set-provider\"")
	}

	prompt := req.Question
	var contextFiles []string

	if req.Context.SmartContext && req.Context.ChunkedAnalysis {
		content, paths, err := preset.ChunkedSmartContext(ctx, req.ProjectPath, req.Context.ContextQuery,
			req.Context.MaxContextTokens, gocontext.ChunkStrategy(req.Context.ChunkStrategy))
		if err != nil {
			logging.Warn(ctx, "ask: chunked context gathering failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
		contextFiles = paths
		prompt = content + "\n\n" + prompt
	} else if req.Context.SmartContext {
		result, err := gocontext.Discover(ctx, gocontext.Options{
			ProjectPath:  req.ProjectPath,
			Query:        req.Context.ContextQuery,
			ExcludeGlobs: req.Context.Exclude,
			MaxTokens:    req.Context.MaxContextTokens,
			ConfigHash:   "ask",
		})
		if err != nil {
			logging.Warn(ctx, "ask: smart context discovery failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
		for _, f := range result.SelectedFiles {
			contextFiles = append(contextFiles, f.Path)
		}
		content, err := preset.SmartContext(ctx, req.ProjectPath, req.Context.ContextQuery, req.Context.MaxContextTokens)
		if err != nil {
			logging.Warn(ctx, "ask: smart context gathering failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
		prompt = content + "\n\n" + prompt
	} else if req.Context.Directory != "" || len(req.Context.Directories) > 0 {
		dirs := req.Context.Directories
		if req.Context.Directory != "" {
			dirs = []string{req.Context.Directory}
		}
		content, err := preset.DirectoryContext(ctx, dirs)
		if err != nil {
			logging.Warn(ctx, "ask: directory context gathering failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
		prompt = content + "\n\n" + prompt
	}

	engine := redact.New(req.Redactions)
	outgoing := []redact.Message{{Role: string(session.RoleUser), Content: prompt}}
	redacted, table := engine.Redact(outgoing)

	var sess *session.Session
	if req.SessionName != "" {
		var err error
		sess, err = d.Sessions.OpenOrCreate(ctx, req.SessionName)
		if err != nil {
			logging.Warn(ctx, "ask: open session failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
		ctx = logging.WithSession(ctx, sess.ID)
		if sess.ActiveBranchID != "" {
			ctx = logging.WithBranch(ctx, sess.ActiveBranchID)
		}
		if _, err := d.Sessions.Append(ctx, sess, session.RoleUser, req.Question); err != nil {
			logging.Warn(ctx, "ask: append user turn failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
	}

	providerMessages := []provider.Message{{Role: provider.RoleUser, Content: redacted[0].Content}}
	reply, err := adapter.Send(ctx, providerMessages, req.Model, provider.Credentials{APIKey: req.APIKey})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindProviderError, "call provider", err)
		logging.Error(ctx, "ask: provider call failed", slog.String("provider", req.Provider), slog.String("err", wrapped.Error()))
		return AskResult{}, wrapped
	}

	unredacted := engine.Unredact([]redact.Message{{Role: string(session.RoleAssistant), Content: reply.Content}}, table)
	finalReply := unredacted[0].Content

	if sess != nil {
		if _, err := d.Sessions.Append(ctx, sess, session.RoleAssistant, finalReply); err != nil {
			logging.Warn(ctx, "ask: append assistant turn failed", slog.String("err", err.Error()))
			return AskResult{}, err
		}
	}

	return AskResult{Reply: finalReply, ContextFiles: contextFiles, SessionName: req.SessionName}, nil
}

// PresetUseRequest is the pre-parsed "preset use" command variant.
type PresetUseRequest struct {
	Name        string
	Supplied    map[string]string
	Mode        preset.Mode
	Source      preset.InputSource
	ProjectPath string
	GitStaged   bool
	Directories []string
	SmartQuery  string
	MaxTokens   int
}

// RenderPreset resolves a preset, collects its variables, populates
// file_content (and Git-mode extras) from the requested context-collection
// mode, and renders the final prompt body.
func (d *Dispatcher) RenderPreset(ctx context.Context, req PresetUseRequest) (string, error) {
	ctx = logging.WithComponent(ctx, "preset")
	p, err := d.Presets.Get(req.Name)
	if err != nil {
		return "", err
	}

	supplied := map[string]string{}
	for k, v := range req.Supplied {
		supplied[k] = v
	}

	switch {
	case req.GitStaged:
		content, extra, err := preset.GitStagedContext(ctx, req.ProjectPath)
		if err != nil {
			logging.Warn(ctx, "render preset: git staged context failed", slog.String("err", err.Error()))
			return "", err
		}
		supplied["file_content"] = content
		for k, v := range extra {
			supplied[k] = v
		}
	case req.SmartQuery != "" || len(req.Directories) == 0:
		content, err := preset.SmartContext(ctx, req.ProjectPath, req.SmartQuery, req.MaxTokens)
		if err != nil {
			logging.Warn(ctx, "render preset: smart context failed", slog.String("err", err.Error()))
			return "", err
		}
		supplied["file_content"] = content
	default:
		content, err := preset.DirectoryContext(ctx, req.Directories)
		if err != nil {
			logging.Warn(ctx, "render preset: directory context failed", slog.String("err", err.Error()))
			return "", err
		}
		supplied["file_content"] = content
	}

	values, err := preset.Collect(p.Variables, supplied, req.Mode, req.Source)
	if err != nil {
		logging.Warn(ctx, "render preset: variable collection failed", slog.String("err", err.Error()))
		return "", err
	}
	rendered, err := preset.Render(p.TemplateBody, p.Variables, values)
	if err != nil {
		logging.Warn(ctx, "render preset: template render failed", slog.String("err", err.Error()))
		return "", err
	}
	return rendered, nil
}

// SessionExists is a small routing helper used by the sessions command
// family to decide between "switch" and "open new" flows.
func (d *Dispatcher) SessionExists(ctx context.Context, name string) bool {
	_, err := d.Sessions.FetchByName(ctx, strings.TrimSpace(name))
	return err == nil
}
