package preset

import (
	"regexp"
	"sort"
)

// VariableType is the closed set of template variable kinds a preset can
// declare (spec §4.8), numbered to match the original catalog's ordering.
type VariableType int

const (
	VariableString VariableType = iota
	VariableBoolean
	VariableNumber
	VariableFile
	VariableDirectory
	VariableDateTime
	VariableGitInfo
	VariableEnvironment
)

func (t VariableType) String() string {
	switch t {
	case VariableString:
		return "String"
	case VariableBoolean:
		return "Boolean"
	case VariableNumber:
		return "Number"
	case VariableFile:
		return "File"
	case VariableDirectory:
		return "Directory"
	case VariableDateTime:
		return "DateTime"
	case VariableGitInfo:
		return "GitInfo"
	case VariableEnvironment:
		return "Environment"
	default:
		return "Unknown"
	}
}

// Variable is a single declared template variable: its type, description,
// whether it must be supplied, and an optional default.
type Variable struct {
	Type        VariableType `json:"type"`
	Description string       `json:"description"`
	Required    bool         `json:"required"`
	Default     string       `json:"default,omitempty"`
	HasDefault  bool         `json:"has_default"`
}

// reservedHelpers are Handlebars-style control-construct names that never
// count as referenced variables during auto-detection.
var reservedHelpers = map[string]bool{
	"if": true, "else": true, "unless": true, "each": true, "with": true,
	"lookup": true, "log": true,
	"#if": true, "#else": true, "#unless": true, "#each": true, "#with": true,
}

var (
	bareVarPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	ifVarPattern   = regexp.MustCompile(`\{\{\s*#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
)

// DetectVariables extracts referenced variable names from a template body
// by matching {{name}} and {{#if name}}, excluding reserved helpers
// (spec §4.8). The result is sorted and deduplicated.
func DetectVariables(body string) []string {
	seen := map[string]bool{}

	for _, m := range bareVarPattern.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if !reservedHelpers[name] {
			seen[name] = true
		}
	}
	for _, m := range ifVarPattern.FindAllStringSubmatch(body, -1) {
		seen[m[1]] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
