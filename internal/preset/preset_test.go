package preset

import (
	"testing"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/stretchr/testify/require"
)

func withTempConfigRoot(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func TestListIncludesBuiltinsAndUserPresets(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	require.NoError(t, m.Save(Preset{Name: "my-preset", Description: "custom", Category: "misc"}))

	all, err := m.List()
	require.NoError(t, err)

	var names []string
	for _, p := range all {
		names = append(names, p.Name)
	}
	require.Contains(t, names, "code-review")
	require.Contains(t, names, "my-preset")
}

func TestGetReturnsBuiltinWithoutTouchingDisk(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	p, err := m.Get("bug-fix")
	require.NoError(t, err)
	require.True(t, p.Builtin)
	require.Equal(t, "debugging", p.Category)
}

func TestGetUnknownPresetReturnsNotFound(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	_, err := m.Get("does-not-exist")
	require.Error(t, err)
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}

func TestSaveOverBuiltinNameIsRejected(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	err := m.Save(Preset{Name: "code-review"})
	require.Error(t, err)
	require.True(t, coreerr.Of(err, coreerr.KindConflict))
}

func TestSaveLoadRoundTripsUserPreset(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	original := Preset{
		Name:         "my-flow",
		Description:  "does a thing",
		Category:     "custom",
		TemplateBody: "{{task}}",
		Variables:    map[string]Variable{"task": {Required: true}},
	}
	require.NoError(t, m.Save(original))

	loaded, err := m.Get("my-flow")
	require.NoError(t, err)
	require.Equal(t, original.Description, loaded.Description)
	require.Equal(t, original.TemplateBody, loaded.TemplateBody)
}

func TestDeleteBuiltinIsRejected(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	err := m.Delete("code-review")
	require.Error(t, err)
	require.True(t, coreerr.Of(err, coreerr.KindConflict))
}

func TestDeleteUserPresetRemovesIt(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	require.NoError(t, m.Save(Preset{Name: "throwaway"}))
	require.NoError(t, m.Delete("throwaway"))

	_, err := m.Get("throwaway")
	require.Error(t, err)
}

func TestCloneCreatesCustomCopyWithoutModifyingSource(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	clone, err := m.Clone("explain-code")
	require.NoError(t, err)
	require.Equal(t, "explain-code (Custom)", clone.Name)
	require.False(t, clone.Builtin)

	original, err := m.Get("explain-code")
	require.NoError(t, err)
	require.True(t, original.Builtin)
}

func TestSearchMatchesNameDescriptionAndCategory(t *testing.T) {
	withTempConfigRoot(t)
	m := NewManager()

	results, err := m.Search("debug", false)
	require.NoError(t, err)

	var names []string
	for _, p := range results {
		names = append(names, p.Name)
	}
	require.Contains(t, names, "bug-fix")
}
