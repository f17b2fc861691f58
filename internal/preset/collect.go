package preset

import (
	"sort"

	"github.com/kyco/termai/internal/coreerr"
)

// Mode is the closed set of variable collection modes (spec §4.8).
type Mode int

const (
	// ModeDefaultsOnly uses supplied values and defaults; errors if any
	// required variable is still missing.
	ModeDefaultsOnly Mode = iota
	// ModeMixed overlays a supplied key=value list on top of defaults.
	ModeMixed
	// ModeInteractive prompts for each variable in declaration order.
	ModeInteractive
)

// InputSource prompts for a single variable's value in interactive mode.
// cmd/termai supplies a huh-backed implementation; tests supply a canned one.
type InputSource interface {
	Prompt(name string, v Variable) (string, error)
}

// Collect resolves final values for a preset's declared variables under the
// given mode. supplied holds caller-provided key=value pairs (Mixed and
// Interactive both start from these); source is consulted only in
// ModeInteractive.
func Collect(variables map[string]Variable, supplied map[string]string, mode Mode, source InputSource) (map[string]string, error) {
	values := make(map[string]string, len(variables))

	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := variables[name]

		if val, ok := supplied[name]; ok {
			values[name] = val
			continue
		}

		switch mode {
		case ModeInteractive:
			if source == nil {
				return nil, coreerr.New(coreerr.KindValidation, "interactive collection requires an input source")
			}
			val, err := source.Prompt(name, v)
			if err != nil {
				return nil, err
			}
			if val != "" {
				values[name] = val
				continue
			}
			fallthrough
		default:
			if v.HasDefault {
				values[name] = v.Default
				continue
			}
			if v.Required {
				return nil, coreerr.New(coreerr.KindMissingVariable,
					"required variable \""+name+"\" was not supplied and has no default",
					"pass --var "+name+"=<value>")
			}
		}
	}

	return values, nil
}
