package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/flowctl/internal/flow"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestMergeOptions_DefaultsOnly(t *testing.T) {
	opts := MergeOptions(nil, nil)
	assert.Equal(t, DefaultOptions(), opts)
}

func TestMergeOptions_FileOverridesDefaults(t *testing.T) {
	file := &FileOptions{Shell: strPtr("sh"), DryRun: boolPtr(true)}
	opts := MergeOptions(file, nil)
	assert.Equal(t, flow.ShellSh, opts.Shell)
	assert.True(t, opts.DryRun)
	assert.Equal(t, "info", opts.LogLevel) // untouched field keeps default
}

func TestMergeOptions_FlagsOverrideFile(t *testing.T) {
	file := &FileOptions{LogLevel: strPtr("warn")}
	flags := &FlagOptions{LogLevel: strPtr("debug")}
	opts := MergeOptions(file, flags)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestMergeOptions_UnsetFlagFieldFallsThroughToFile(t *testing.T) {
	file := &FileOptions{LogDir: strPtr("/var/log/flowctl")}
	flags := &FlagOptions{DryRun: boolPtr(true)} // LogDir left nil
	opts := MergeOptions(file, flags)
	assert.Equal(t, "/var/log/flowctl", opts.LogDir)
	assert.True(t, opts.DryRun)
}

func TestLoadOptionsFile_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shell: sh\nansi: false\n"), 0644))

	fo, err := LoadOptionsFile(path)
	require.NoError(t, err)
	require.NotNil(t, fo.Shell)
	assert.Equal(t, "sh", *fo.Shell)
	require.NotNil(t, fo.Ansi)
	assert.False(t, *fo.Ansi)
}

func TestLoadOptionsFile_MissingFileErrors(t *testing.T) {
	_, err := LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMergeOptionsWithConfig_LayersConfigBelowJobFileBelowFlags(t *testing.T) {
	configOpts := &FileOptions{LogLevel: strPtr("warn"), Ansi: boolPtr(false)}
	jobOpts := &FileOptions{LogLevel: strPtr("debug")} // overrides config's log level
	flags := &FlagOptions{DryRun: boolPtr(true)}

	opts := MergeOptionsWithConfig(configOpts, jobOpts, flags)
	assert.Equal(t, "debug", opts.LogLevel) // job file wins over config
	assert.False(t, opts.Ansi)              // untouched by job file or flags, config wins
	assert.True(t, opts.DryRun)             // flag wins over everything
}
