package cli

import (
	"fmt"
	"strings"

	"github.com/kyco/termai/internal/dispatch"
	"github.com/kyco/termai/internal/preset"
	"github.com/spf13/cobra"
)

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage and render prompt presets",
	}

	cmd.AddCommand(newPresetListCmd())
	cmd.AddCommand(newPresetShowCmd())
	cmd.AddCommand(newPresetUseCmd())
	cmd.AddCommand(newPresetCloneCmd())
	cmd.AddCommand(newPresetDeleteCmd())
	cmd.AddCommand(newPresetSearchCmd())

	return cmd
}

func newPresetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in and user presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets, err := preset.NewManager().List()
			if err != nil {
				return err
			}
			for _, p := range presets {
				kind := "user"
				if p.Builtin {
					kind = "builtin"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Name, kind, p.Description)
			}
			return nil
		},
	}
}

func newPresetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a preset's template body and declared variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := preset.NewManager().Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n\n%s\n", p.Name, p.Description, p.TemplateBody)
			for name, v := range p.Variables {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s) required=%v default=%q\n", name, v.Type, v.Required, v.Default)
			}
			return nil
		},
	}
}

func newPresetUseCmd() *cobra.Command {
	var vars []string
	var directories []string
	var gitStaged bool
	var smartQuery string
	var maxTokens int
	var interactive bool
	var projectPath string

	cmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Render a preset into a finished prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			supplied, err := parseVarFlags(vars)
			if err != nil {
				return err
			}

			mode := preset.ModeDefaultsOnly
			var source preset.InputSource
			switch {
			case interactive:
				mode = preset.ModeInteractive
				source = huhInputSource{}
			case len(supplied) > 0:
				mode = preset.ModeMixed
			}

			rendered, err := a.dispatcher.RenderPreset(cmd.Context(), dispatch.PresetUseRequest{
				Name:        args[0],
				Supplied:    supplied,
				Mode:        mode,
				Source:      source,
				ProjectPath: projectPath,
				GitStaged:   gitStaged,
				Directories: directories,
				SmartQuery:  smartQuery,
				MaxTokens:   maxTokens,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "A name=value pair, may be repeated")
	cmd.Flags().StringArrayVar(&directories, "directory", nil, "Directory to gather file_content from, may be repeated")
	cmd.Flags().BoolVar(&gitStaged, "git-staged", false, "Fill file_content from the staged Git diff")
	cmd.Flags().StringVar(&smartQuery, "query", "", "Smart-context query for file_content")
	cmd.Flags().IntVar(&maxTokens, "max-context-tokens", 8000, "Token budget for smart context")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Prompt for each undeclared variable")
	cmd.Flags().StringVar(&projectPath, "project", ".", "Project root used for context collection")

	return cmd
}

func newPresetCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <name>",
		Short: "Copy a preset (built-in or user) into an editable user preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clone, err := preset.NewManager().Clone(args[0])
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "cloned to %s", clone.Name)
			return nil
		},
	}
}

func newPresetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a user preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := preset.NewManager().Delete(args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "deleted preset %s", args[0])
			return nil
		},
	}
}

func newPresetSearchCmd() *cobra.Command {
	var includeBody bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search presets by name, description, category, or body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := preset.NewManager().Search(args[0], includeBody)
			if err != nil {
				return err
			}
			for _, p := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name, p.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeBody, "include-body", false, "Also match against the template body")
	return cmd
}

func parseVarFlags(vars []string) (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range vars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var %q, expected name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}
