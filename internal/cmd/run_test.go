package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJobFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestRunCommand_LinearSuccess(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	jobPath := writeJobFile(t, dir, `
name: linear
tasks:
  - name: one
    run: "echo A"
  - name: two
    run: "echo B"
`)

	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{jobPath, "--log-dir", logDir, "--ansi=false", "--no-history"})

	err := cmd.Execute()
	require.NoError(t, err)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunCommand_DryRunSkipsChildProcesses(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	jobPath := writeJobFile(t, dir, `
name: dry
tasks:
  - name: one
    run: "exit 1"
`)

	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{jobPath, "--log-dir", logDir, "--dry-run", "--no-history"})

	err := cmd.Execute()
	require.NoError(t, err)
}

func TestRunCommand_ParseErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeJobFile(t, dir, `
name: dup
tasks:
  - id: same
    name: a
    run: "echo a"
  - id: same
    name: b
    run: "echo b"
`)

	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{jobPath, "--log-dir", t.TempDir(), "--no-history"})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestRunCommand_ConfigFileSuppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	jobPath := writeJobFile(t, dir, `
name: configured
tasks:
  - name: one
    run: "echo A"
`)
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: debug\n"), 0644))

	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{jobPath, "--config", configPath, "--log-dir", logDir, "--ansi=false", "--no-history"})

	require.NoError(t, cmd.Execute())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestParseEnvPairs(t *testing.T) {
	env, err := parseEnvPairs([]string{"A=1", "B=two"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "two"}, env)

	_, err = parseEnvPairs([]string{"NOEQUALS"})
	assert.Error(t, err)
}
