package cli

import (
	"github.com/charmbracelet/huh"
	"github.com/kyco/termai/internal/config"
	"github.com/spf13/cobra"
)

// newSetupCmd walks a first-time user through choosing a provider, an API
// key, and whether to opt into telemetry, persisting the answers as config
// rows so every other command has credentials to resolve.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively configure a provider and API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var providerChoice string
			var apiKey string
			var telemetryOptIn bool

			form := NewAccessibleForm(
				huh.NewGroup(
					huh.NewSelect[string]().
						Title("Which provider do you want to use?").
						Options(
							huh.NewOption("Claude (Anthropic)", config.ProviderClaude),
							huh.NewOption("OpenAI", config.ProviderOpenAI),
						).
						Value(&providerChoice),
				),
				huh.NewGroup(
					huh.NewInput().
						Title("API key").
						Description("Stored locally; leave blank to rely on the environment variable instead").
						EchoMode(huh.EchoModePassword).
						Value(&apiKey),
				),
				huh.NewGroup(
					huh.NewConfirm().
						Title("Send anonymous usage telemetry?").
						Value(&telemetryOptIn),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.config.Set(ctx, config.KeyProvider, providerChoice); err != nil {
				return err
			}
			if apiKey != "" {
				keyName := config.KeyClaudeAPIKey
				if providerChoice == config.ProviderOpenAI {
					keyName = config.KeyOpenAIAPIKey
				}
				if err := a.config.Set(ctx, keyName, apiKey); err != nil {
					return err
				}
			}
			telemetryValue := "false"
			if telemetryOptIn {
				telemetryValue = "true"
			}
			if err := a.config.Set(ctx, config.KeyTelemetry, telemetryValue); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "setup complete, provider set to %s", providerChoice)
			return nil
		},
	}
}
