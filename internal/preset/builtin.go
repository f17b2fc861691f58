package preset

// Builtins returns the fixed in-memory preset catalog (spec §4.8). These
// are immutable; Manager.Clone copies one into a user-editable preset.
func Builtins() []Preset {
	return []Preset{
		{
			Name:        "code-review",
			Description: "Review staged changes for bugs, style issues, and missing tests",
			Category:    "review",
			Builtin:     true,
			TemplateBody: "Review the following changes on branch {{git_branch}}.\n\n" +
				"{{#if file_content}}\n{{file_content}}\n{{else}}\nNo staged changes were found.\n{{/if}}\n\n" +
				"Focus on: {{focus}}",
			Variables: map[string]Variable{
				"focus": {Type: VariableString, Description: "Area to emphasize in the review", Default: "correctness and readability", HasDefault: true},
			},
		},
		{
			Name:        "commit-message",
			Description: "Draft a commit message from the staged diff",
			Category:    "git",
			Builtin:     true,
			TemplateBody: "Write a concise commit message for this diff (branch {{git_branch}}, last commit: " +
				"\"{{git_last_commit_message}}\").\n\n{{file_content}}",
			Variables: map[string]Variable{},
		},
		{
			Name:        "explain-code",
			Description: "Explain what a file or directory does",
			Category:    "understanding",
			Builtin:     true,
			TemplateBody: "Explain what the following code does, at a {{level}} level of detail.\n\n{{file_content}}",
			Variables: map[string]Variable{
				"level": {Type: VariableString, Description: "Detail level: beginner, intermediate, or expert", Default: "intermediate", HasDefault: true},
			},
		},
		{
			Name:        "bug-fix",
			Description: "Diagnose and propose a fix for a described bug",
			Category:    "debugging",
			Builtin:     true,
			TemplateBody: "A bug is occurring: {{bug_description}}\n\n" +
				"{{#if file_content}}\nRelevant code:\n\n{{file_content}}\n{{else}}\nNo context files were attached.\n{{/if}}",
			Variables: map[string]Variable{
				"bug_description": {Type: VariableString, Description: "Description of the observed bug", Required: true},
			},
		},
		{
			Name:        "refactor",
			Description: "Propose a refactor toward a stated goal",
			Category:    "refactoring",
			Builtin:     true,
			TemplateBody: "Refactor the following code to {{goal}}. Preserve existing behavior.\n\n{{file_content}}",
			Variables: map[string]Variable{
				"goal": {Type: VariableString, Description: "Refactoring goal", Required: true},
			},
		},
		{
			Name:        "write-tests",
			Description: "Generate tests for the given code",
			Category:    "testing",
			Builtin:     true,
			TemplateBody: "Write {{framework}} tests covering the following code's public behavior, " +
				"including edge cases.\n\n{{file_content}}",
			Variables: map[string]Variable{
				"framework": {Type: VariableString, Description: "Test framework/style to use", Default: "the project's existing test framework", HasDefault: true},
			},
		},
	}
}
