package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errBuf bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	exitCode = 0
	code = Execute()
	return out.String(), errBuf.String(), code
}

func TestVersionCommand(t *testing.T) {
	out, _, code := execute(t, "version")
	require.Equal(t, 0, code)
	require.Contains(t, out, version)
}

func TestConfigValidate_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repokind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: spa\ncanonical_files:\n  - index.html\n"), 0o644))

	out, _, code := execute(t, "config", "validate", path)
	require.Equal(t, 0, code)
	require.Contains(t, out, "valid repo kind")
}

func TestConfigValidate_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repokind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: \"\"\ncanonical_files: []\n"), 0o644))

	_, _, code := execute(t, "config", "validate", path)
	require.Equal(t, 1, code)
}

func TestConfigValidate_MissingFile(t *testing.T) {
	_, _, code := execute(t, "config", "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Equal(t, 1, code)
}

func TestStatus_NoProcessedIssuesYet(t *testing.T) {
	t.Setenv("FORGE_TOKEN", "test-token")
	t.Setenv("BASE_WORK_DIR", t.TempDir())

	out, _, code := execute(t, "status")
	require.Equal(t, 0, code)
	require.Contains(t, out, "ISSUE")
}

func TestRunCommand_FatalConfigMissingForgeToken(t *testing.T) {
	t.Setenv("FORGE_TOKEN", "")
	_, _, code := execute(t, "run", "owner/repo", "1")
	require.Equal(t, 1, code)
}
