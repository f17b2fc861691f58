package preset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectVariablesFindsBareAndIfReferences(t *testing.T) {
	body := "Please {{task}} the following:\n\n{{#if file_content}}\n{{file_content}}\n{{else}}\nNo content.\n{{/if}}"
	vars := DetectVariables(body)
	require.Equal(t, []string{"file_content", "task"}, vars)
}

func TestDetectVariablesExcludesReservedHelpers(t *testing.T) {
	body := "{{#if x}}{{x}}{{else}}none{{/if}}"
	vars := DetectVariables(body)
	require.Equal(t, []string{"x"}, vars)
	require.NotContains(t, vars, "if")
	require.NotContains(t, vars, "else")
}

func TestDetectVariablesDeduplicates(t *testing.T) {
	body := "{{name}} and {{name}} again"
	vars := DetectVariables(body)
	require.Equal(t, []string{"name"}, vars)
}
