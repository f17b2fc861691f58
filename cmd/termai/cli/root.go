package cli

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/telemetry"
	"github.com/spf13/cobra"
)

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE    Set to any value (e.g., ACCESSIBLE=1) to enable accessibility
                mode. This uses simpler sequential prompts instead of
                interactive TUI elements, which works better with screen
                readers.
`

// Version information, set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// NewRootCmd assembles the termai command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "termai",
		Short: "A terminal AI assistant",
		Long:  "termai is a terminal AI assistant that keeps sessions, branches, and context on disk next to your project." + accessibilityHelp,
		// main.go prints the final error so it isn't shown twice.
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Init failures fall back to stderr logging; the CLI still works.
			_ = logging.Init(uuid.NewString())
			cmd.SetContext(logging.WithComponent(cmd.Context(), cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			logging.Close()
			client := telemetry.NewClient(Version, nil)
			defer client.Close()
			client.TrackCommand(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newBranchCmd())
	cmd.AddCommand(newPresetCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newRedactCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "termai %s (%s)\n", Version, Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
