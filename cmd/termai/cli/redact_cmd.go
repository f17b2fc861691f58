package cli

import (
	"fmt"

	"github.com/kyco/termai/internal/redact"
	"github.com/spf13/cobra"
)

func newRedactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Manage the redaction token list",
	}

	cmd.AddCommand(newRedactAddCmd())
	cmd.AddCommand(newRedactRemoveCmd())
	cmd.AddCommand(newRedactListCmd())
	cmd.AddCommand(newRedactSuggestCmd())

	return cmd
}

func newRedactAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <token>",
		Short: "Add a literal token to the redaction list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.config.AddRedaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "added redaction token")
			return nil
		},
	}
}

func newRedactRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <token>",
		Short: "Remove a token from the redaction list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.config.RemoveRedaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "removed redaction token")
			return nil
		},
	}
}

func newRedactListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured redaction tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.config.RedactionList(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tokens {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newRedactSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <file>",
		Short: "Scan a file's content for likely secrets to redact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readFileArg(args[0])
			if err != nil {
				return err
			}

			candidates := redact.Suggest(content)
			if len(candidates) == 0 {
				printDim(cmd.OutOrStdout(), "no likely secrets found")
				return nil
			}
			for _, c := range candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s)\n", c.Token, c.Reason)
			}
			return nil
		},
	}
}
