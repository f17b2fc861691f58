package preset

import (
	"testing"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/stretchr/testify/require"
)

func TestCollectDefaultsOnlyUsesDefaultsWhenNotSupplied(t *testing.T) {
	vars := map[string]Variable{
		"level": {Default: "expert", HasDefault: true},
	}
	values, err := Collect(vars, nil, ModeDefaultsOnly, nil)
	require.NoError(t, err)
	require.Equal(t, "expert", values["level"])
}

func TestCollectDefaultsOnlyErrorsOnMissingRequired(t *testing.T) {
	vars := map[string]Variable{
		"task": {Required: true},
	}
	_, err := Collect(vars, nil, ModeDefaultsOnly, nil)
	require.Error(t, err)
	require.True(t, coreerr.Of(err, coreerr.KindMissingVariable))
}

func TestCollectMixedOverlaysSuppliedOnDefaults(t *testing.T) {
	vars := map[string]Variable{
		"level": {Default: "expert", HasDefault: true},
		"task":  {Required: true},
	}
	values, err := Collect(vars, map[string]string{"task": "refactor"}, ModeMixed, nil)
	require.NoError(t, err)
	require.Equal(t, "expert", values["level"])
	require.Equal(t, "refactor", values["task"])
}

type fakeInputSource struct {
	answers map[string]string
}

func (f fakeInputSource) Prompt(name string, v Variable) (string, error) {
	return f.answers[name], nil
}

func TestCollectInteractivePromptsForEachVariable(t *testing.T) {
	vars := map[string]Variable{
		"task": {Required: true},
	}
	source := fakeInputSource{answers: map[string]string{"task": "explain"}}
	values, err := Collect(vars, nil, ModeInteractive, source)
	require.NoError(t, err)
	require.Equal(t, "explain", values["task"])
}

func TestCollectInteractiveFallsBackToDefaultOnEmptyAnswer(t *testing.T) {
	vars := map[string]Variable{
		"level": {Default: "intermediate", HasDefault: true},
	}
	source := fakeInputSource{answers: map[string]string{}}
	values, err := Collect(vars, nil, ModeInteractive, source)
	require.NoError(t, err)
	require.Equal(t, "intermediate", values["level"])
}

func TestCollectInteractiveWithoutSourceErrors(t *testing.T) {
	vars := map[string]Variable{"task": {Required: true}}
	_, err := Collect(vars, nil, ModeInteractive, nil)
	require.Error(t, err)
}
