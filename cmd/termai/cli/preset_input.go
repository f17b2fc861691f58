package cli

import (
	"github.com/charmbracelet/huh"
	"github.com/kyco/termai/internal/preset"
)

// huhInputSource backs preset.InputSource with interactive terminal
// prompts, one field per variable, honoring the accessibility fallback the
// rest of the CLI uses.
type huhInputSource struct{}

func (huhInputSource) Prompt(name string, v preset.Variable) (string, error) {
	description := v.Description
	if v.HasDefault {
		description += " (default: " + v.Default + ")"
	}

	if v.Type == preset.VariableBoolean {
		var confirmed bool
		form := NewAccessibleForm(huh.NewGroup(
			huh.NewConfirm().
				Title(name).
				Description(description).
				Value(&confirmed),
		))
		if err := form.Run(); err != nil {
			return "", err
		}
		if confirmed {
			return "true", nil
		}
		return "false", nil
	}

	var value string
	form := NewAccessibleForm(huh.NewGroup(
		huh.NewInput().
			Title(name).
			Description(description).
			Value(&value),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return value, nil
}
