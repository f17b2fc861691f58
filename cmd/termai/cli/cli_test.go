package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func withTempConfigRoot(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestRootCmdRegistersExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "chat", "session", "branch", "preset", "config", "redact", "setup", "version"} {
		require.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestVersionCmdPrintsVersion(t *testing.T) {
	withTempConfigRoot(t)
	out := runCmd(t, "version")
	require.Contains(t, out, "termai")
}

func TestConfigSetGetRoundTrips(t *testing.T) {
	withTempConfigRoot(t)
	_ = runCmd(t, "config", "set", "provider", "claude")
	out := runCmd(t, "config", "get", "provider")
	require.Contains(t, out, "claude")
}

func TestConfigListIncludesSetValue(t *testing.T) {
	withTempConfigRoot(t)
	_ = runCmd(t, "config", "set", "smart_context", "true")
	out := runCmd(t, "config", "list")
	require.Contains(t, out, "smart_context=true")
}

func TestConfigValidateReportsCleanState(t *testing.T) {
	withTempConfigRoot(t)
	out := runCmd(t, "config", "validate")
	require.Contains(t, out, "valid")
}

func TestRedactAddAndListRoundTrips(t *testing.T) {
	withTempConfigRoot(t)
	_ = runCmd(t, "redact", "add", "super-secret-token")
	out := runCmd(t, "redact", "list")
	require.Contains(t, out, "super-secret-token")
}

func TestPresetListIncludesBuiltins(t *testing.T) {
	withTempConfigRoot(t)
	out := runCmd(t, "preset", "list")
	require.Contains(t, out, "code-review")
	require.Contains(t, out, "builtin")
}

func TestPresetShowPrintsTemplateBody(t *testing.T) {
	withTempConfigRoot(t)
	out := runCmd(t, "preset", "show", "commit-message")
	require.Contains(t, out, "commit-message")
}

func TestSessionListEmptyProducesNoError(t *testing.T) {
	withTempConfigRoot(t)
	out := runCmd(t, "session", "list")
	require.Empty(t, out)
}

func withFakeProvider(t *testing.T) {
	t.Helper()
	prior := providerRegistry
	providerRegistry = fakeProviderRegistry
	t.Cleanup(func() { providerRegistry = prior })
}

func TestAskReturnsProviderReply(t *testing.T) {
	withTempConfigRoot(t)
	withFakeProvider(t)
	_ = runCmd(t, "config", "set", "claude_api_key", "test-key")

	out := runCmd(t, "ask", "what does this do?")
	require.Contains(t, out, "echo: what does this do?")
}

func TestAskPersistsNamedSession(t *testing.T) {
	withTempConfigRoot(t)
	withFakeProvider(t)
	_ = runCmd(t, "config", "set", "claude_api_key", "test-key")

	_ = runCmd(t, "ask", "--session", "triage", "hello")
	out := runCmd(t, "session", "show", "triage")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "echo: hello")
}
