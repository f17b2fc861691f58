package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kyco/termai/internal/dispatch"
	"github.com/kyco/termai/internal/validation"
	"github.com/spf13/cobra"
)

// newChatCmd starts a REPL that repeatedly calls Ask against the same
// named session until the user exits, mirroring the original's interactive
// chat loop over a single conversation.
func newChatCmd() *cobra.Command {
	var (
		sessionName  string
		providerName string
		model        string
		apiKey       string
		smartContext bool
		projectPath  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionName == "" {
				sessionName = "chat"
			}
			if err := validation.ValidateSessionID(sessionName); err != nil {
				return err
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

			var redactions []string
			if tokens, rErr := a.config.RedactionList(cmd.Context()); rErr == nil {
				redactions = tokens
			}

			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprintf(out, "chatting in session %q, type /exit to quit\n", sessionName)

			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					break
				}
				line := strings.TrimSpace(in.Text())
				if line == "" {
					continue
				}
				if line == "/exit" || line == "/quit" {
					break
				}

				ctxArgs := dispatch.ContextArgs{}
				if smartContext {
					ctxArgs = dispatch.ContextArgs{SmartContext: true, ContextQuery: line}
				}

				result, err := a.dispatcher.Ask(cmd.Context(), dispatch.AskRequest{
					Question:    line,
					SessionName: sessionName,
					Provider:    resolvedProvider,
					Model:       resolvedModel,
					APIKey:      resolvedKey,
					Redactions:  redactions,
					Context:     ctxArgs,
					ProjectPath: projectPath,
				})
				if err != nil {
					printError(out, "%s", err.Error())
					continue
				}
				writeReply(out, result.Reply)
			}

			if err := in.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionName, "session", "", "Session name to persist this conversation under, defaults to \"chat\"")
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider to use (claude or openai), defaults to configured provider")
	cmd.Flags().StringVar(&model, "model", "", "Model name, defaults to the configured default for the provider")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key override, defaults to configured/env credential")
	cmd.Flags().BoolVar(&smartContext, "smart-context", false, "Prepend relevance-ranked project context to every turn")
	cmd.Flags().StringVar(&projectPath, "project", ".", "Project root used for context collection")

	return cmd
}
