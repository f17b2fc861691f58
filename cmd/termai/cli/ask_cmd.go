package cli

import (
	"strings"

	"github.com/kyco/termai/internal/dispatch"
	"github.com/kyco/termai/internal/validation"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		sessionName      string
		providerName     string
		model            string
		apiKey           string
		directory        string
		directories      []string
		exclude          []string
		smartContext     bool
		maxContextTokens int
		previewContext   bool
		contextQuery     string
		chunkedAnalysis  bool
		chunkStrategy    string
		projectPath      string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question, optionally backed by project context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionName != "" {
				if err := validation.ValidateSessionID(sessionName); err != nil {
					return err
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resolvedProvider, resolvedModel, resolvedKey, err := a.resolveCredentials(cmd.Context(), providerName, model, apiKey)
			if err != nil {
				return err
			}

			ctxArgs := dispatch.ContextArgs{
				Directory:        directory,
				Directories:      directories,
				Exclude:          exclude,
				SmartContext:     smartContext,
				MaxContextTokens: maxContextTokens,
				PreviewContext:   previewContext,
				ContextQuery:     contextQuery,
				ChunkedAnalysis:  chunkedAnalysis,
				ChunkStrategy:    chunkStrategy,
			}

			var redactions []string
			if tokens, rErr := a.config.RedactionList(cmd.Context()); rErr == nil {
				redactions = tokens
			}

			result, err := a.dispatcher.Ask(cmd.Context(), dispatch.AskRequest{
				Question:    args[0],
				SessionName: sessionName,
				Provider:    resolvedProvider,
				Model:       resolvedModel,
				APIKey:      resolvedKey,
				Redactions:  redactions,
				Context:     ctxArgs,
				ProjectPath: projectPath,
			})
			if err != nil {
				return err
			}

			if len(result.ContextFiles) > 0 {
				printDim(cmd.OutOrStdout(), "context: %s", strings.Join(result.ContextFiles, ", "))
			}
			writeReply(cmd.OutOrStdout(), result.Reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionName, "session", "", "Persist this turn in a named session")
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider to use (claude or openai), defaults to configured provider")
	cmd.Flags().StringVar(&model, "model", "", "Model name, defaults to the configured default for the provider")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key override, defaults to configured/env credential")
	cmd.Flags().StringVar(&directory, "directory", "", "Single directory to gather context from")
	cmd.Flags().StringArrayVar(&directories, "directories", nil, "Multiple directories to gather context from")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Glob pattern to exclude from context, may be repeated")
	cmd.Flags().BoolVar(&smartContext, "smart-context", false, "Use relevance-ranked project context")
	cmd.Flags().IntVar(&maxContextTokens, "max-context-tokens", 0, "Token budget for smart context, 0 uses the default")
	cmd.Flags().BoolVar(&previewContext, "preview-context", false, "Print selected context files without asking")
	cmd.Flags().StringVar(&contextQuery, "query", "", "Smart-context relevance query")
	cmd.Flags().BoolVar(&chunkedAnalysis, "chunked-analysis", false, "Process large smart context in chunks")
	cmd.Flags().StringVar(&chunkStrategy, "chunk-strategy", "", "Chunking strategy: module, functional, token, or hierarchical")
	cmd.Flags().StringVar(&projectPath, "project", ".", "Project root used for context collection")

	return cmd
}
