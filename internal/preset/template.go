package preset

import (
	"regexp"
	"strings"

	"github.com/kyco/termai/internal/coreerr"
)

// blockPattern matches one {{#if var}}...{{else}}...{{/if}} block, with the
// else branch optional. Non-greedy so adjacent blocks in the same template
// don't get merged into one match.
var blockPattern = regexp.MustCompile(`(?s)\{\{\s*#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}(.*?)(?:\{\{\s*else\s*\}\}(.*?))?\{\{\s*/if\s*\}\}`)

var varPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Render substitutes {{var}} references and evaluates {{#if var}}...{{/if}}
// blocks (with an optional {{else}} branch) against values, per spec §4.8.
// A variable declared required with no value in values fails rendering
// before any substitution happens; undeclared variables render empty.
func Render(body string, variables map[string]Variable, values map[string]string) (string, error) {
	for name, v := range variables {
		if v.Required {
			if _, ok := values[name]; !ok {
				return "", coreerr.New(coreerr.KindMissingVariable,
					"template variable \""+name+"\" is required but has no value",
					"supply a value with --var "+name+"=<value>",
					"or give the variable a default when editing the preset")
			}
		}
	}

	rendered := blockPattern.ReplaceAllStringFunc(body, func(match string) string {
		groups := blockPattern.FindStringSubmatch(match)
		name, thenBranch, elseBranch := groups[1], groups[2], groups[3]
		if truthy(values[name]) {
			return thenBranch
		}
		return elseBranch
	})

	rendered = varPattern.ReplaceAllStringFunc(rendered, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		if reservedHelpers[name] {
			return match
		}
		return values[name]
	})

	return rendered, nil
}

// truthy matches spec §4.8's truthiness rule: non-empty string, nonzero
// number, true boolean. Values are always carried as rendered strings, so
// "0" and "false" are the only falsy non-empty spellings.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false":
		return false
	default:
		return true
	}
}
