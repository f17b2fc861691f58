package cli

import "github.com/charmbracelet/huh"

// NewAccessibleForm builds a huh form that falls back to plain sequential
// prompts when the ACCESSIBLE environment variable is set, matching the
// accessibility contract documented on the root command.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)
	if accessibleModeEnabled() {
		form = form.WithAccessible(true)
	}
	return form
}
