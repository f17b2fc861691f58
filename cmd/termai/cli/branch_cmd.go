package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/kyco/termai/internal/branch"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage conversation branches within a session",
	}

	cmd.AddCommand(newBranchCreateCmd())
	cmd.AddCommand(newBranchListCmd())
	cmd.AddCommand(newBranchSwitchCmd())
	cmd.AddCommand(newBranchTreeCmd())
	cmd.AddCommand(newBranchArchiveCmd())

	return cmd
}

func newBranchCreateCmd() *cobra.Command {
	var session, name, description, parent string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Fork a new branch from a session's active branch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.sessions.OpenOrCreate(cmd.Context(), session)
			if err != nil {
				return err
			}
			b, err := a.branches.Create(cmd.Context(), sess, branch.CreateOptions{
				ParentID:    parent,
				Name:        name,
				Description: description,
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "created branch %s (%s)", b.Name, b.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session name (required)")
	cmd.Flags().StringVar(&name, "name", "", "Branch name")
	cmd.Flags().StringVar(&description, "description", "", "Branch description")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent branch ID, defaults to the session's active branch")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newBranchListCmd() *cobra.Command {
	var session, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List branches in a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.sessions.FetchByName(cmd.Context(), session)
			if err != nil {
				return err
			}
			branches, err := a.branches.List(cmd.Context(), sess, branch.Status(status))
			if err != nil {
				return err
			}
			for _, b := range branches {
				bookmark := ""
				if b.BookmarkName != "" {
					bookmark = " ★" + b.BookmarkName
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s%s\n", b.ID, b.Name, b.Status, bookmark)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session name (required)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: active, archived, or merged")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newBranchSwitchCmd() *cobra.Command {
	var session string
	var asNewSession bool

	cmd := &cobra.Command{
		Use:   "switch <branch-id-or-name>",
		Short: "Switch a session's active branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.sessions.FetchByName(cmd.Context(), session)
			if err != nil {
				return err
			}
			updated, err := a.branches.Switch(cmd.Context(), sess, args[0], asNewSession)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "active branch now %s in session %s", args[0], updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session name (required)")
	cmd.Flags().BoolVar(&asNewSession, "new-session", false, "Switch within a freshly derived session instead of the current one")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newBranchArchiveCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "archive <branch-id> [branch-id...]",
		Short: "Archive one or more branches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.branches.Archive(cmd.Context(), args, reason); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "archived %d branch(es)", len(args))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded for the archive")
	return cmd
}

// newBranchTreeCmd renders a session's branch forest as indented ASCII art,
// a presentation-only view built on top of branch.Manager.List since the
// store itself holds no tree-drawing logic.
func newBranchTreeCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Render a session's branches as a tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.sessions.FetchByName(cmd.Context(), session)
			if err != nil {
				return err
			}
			branches, err := a.branches.List(cmd.Context(), sess, "")
			if err != nil {
				return err
			}
			renderBranchTree(cmd.OutOrStdout(), branches)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session name (required)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func renderBranchTree(w io.Writer, branches []*branch.Branch) {
	children := map[string][]*branch.Branch{}
	for _, b := range branches {
		children[b.ParentBranchID] = append(children[b.ParentBranchID], b)
	}

	var walk func(parentID string, depth int)
	walk = func(parentID string, depth int) {
		for _, b := range children[parentID] {
			label := b.Name
			if b.BookmarkName != "" {
				label += " ★" + b.BookmarkName
			}
			fmt.Fprintf(w, "%s%s [%s]\n", strings.Repeat("  ", depth), label, b.Status)
			walk(b.ID, depth+1)
		}
	}
	walk("", 0)
}
