package cli

import (
	"fmt"

	"github.com/kyco/termai/internal/session"
	"github.com/kyco/termai/internal/validation"
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage conversation sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionRenameCmd())
	cmd.AddCommand(newSessionDeleteCmd())

	return cmd
}

func newSessionListCmd() *cobra.Command {
	var order string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sortOrder := session.SortChronological
			switch order {
			case "name":
				sortOrder = session.SortLexical
			case "messages":
				sortOrder = session.SortMessageCount
			}

			sessions, err := a.sessions.List(cmd.Context(), sortOrder)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				marker := " "
				if s.Current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, s.Name, s.LastActivity.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&order, "order", "recent", "Sort order: recent, name, or messages")
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print every message in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.sessions.FetchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msgs, err := a.sessions.LoadMessages(cmd.Context(), sess)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", m.Role, m.Content)
			}
			return nil
		},
	}
}

func newSessionRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateSessionID(args[1]); err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.sessions.FetchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.sessions.Rename(cmd.Context(), sess, args[1]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "renamed %s to %s", args[0], args[1])
			return nil
		},
	}
}

func newSessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "deleted session %s", args[0])
			return nil
		},
	}
}
