package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/flowctl/internal/flow"
)

// Options is the fully-resolved set of engine-level knobs a run uses,
// after merging CLI flags over the job file's "options:" block over
// hardcoded defaults.
type Options struct {
	Shell     flow.ShellType
	ShellPath string
	DryRun    bool
	Ansi      bool
	LogLevel  string
	LogDir    string
	SystemEnv bool
	Dotenv    string
	TempPath  string
}

// FileOptions is the job file's "options:" block: every field optional,
// so an absent field falls through to the default (or, when merging
// flags, to whatever the file already set).
type FileOptions struct {
	Shell     *string `yaml:"shell"`
	ShellPath *string `yaml:"shell_path"`
	DryRun    *bool   `yaml:"dry_run"`
	Ansi      *bool   `yaml:"ansi"`
	LogLevel  *string `yaml:"log_level"`
	LogDir    *string `yaml:"log_dir"`
	SystemEnv *bool   `yaml:"system_env"`
	Dotenv    *string `yaml:"dotenv"`
	TempPath  *string `yaml:"temp_path"`
}

// FlagOptions mirrors FileOptions but is populated from CLI flags that
// were explicitly set (cobra's cmd.Flags().Changed(...) idiom) — a nil
// field here means "the user did not pass this flag", not "false"/"".
type FlagOptions = FileOptions

// DefaultOptions returns the engine's hardcoded defaults.
func DefaultOptions() Options {
	return Options{
		Shell:     flow.ShellBash,
		DryRun:    false,
		Ansi:      true,
		LogLevel:  "info",
		SystemEnv: true,
		TempPath:  "/tmp",
	}
}

// MergeOptions layers file options over the defaults, then flag options
// over the result. A present field at a higher layer always wins.
func MergeOptions(file *FileOptions, flags *FlagOptions) Options {
	opts := DefaultOptions()
	opts.apply(file)
	opts.apply(flags)
	return opts
}

// LoadOptionsFile reads a standalone options YAML file, the --config
// counterpart to a job file's own inline "options:" block. It is optional
// infrastructure: a project-wide default for the FileOptions fields
// (shell, ansi, log level, and the rest) that individual job files and
// CLI flags both sit in front of. The history database location is not
// among them; it is set only by the --history-db flag.
func LoadOptionsFile(path string) (*FileOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var fo FileOptions
	if err := yaml.Unmarshal(data, &fo); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fo, nil
}

// MergeOptionsWithConfig layers in a project-wide --config file between
// the hardcoded defaults and the job file's own options block: config <
// job file < CLI flags, each later layer winning on any field it sets.
func MergeOptionsWithConfig(configFile, jobFile *FileOptions, flags *FlagOptions) Options {
	opts := DefaultOptions()
	opts.apply(configFile)
	opts.apply(jobFile)
	opts.apply(flags)
	return opts
}

func (o *Options) apply(src *FileOptions) {
	if src == nil {
		return
	}
	if src.Shell != nil {
		o.Shell = flow.ShellType(*src.Shell)
	}
	if src.ShellPath != nil {
		o.ShellPath = *src.ShellPath
	}
	if src.DryRun != nil {
		o.DryRun = *src.DryRun
	}
	if src.Ansi != nil {
		o.Ansi = *src.Ansi
	}
	if src.LogLevel != nil {
		o.LogLevel = *src.LogLevel
	}
	if src.LogDir != nil {
		o.LogDir = *src.LogDir
	}
	if src.SystemEnv != nil {
		o.SystemEnv = *src.SystemEnv
	}
	if src.Dotenv != nil {
		o.Dotenv = *src.Dotenv
	}
	if src.TempPath != nil {
		o.TempPath = *src.TempPath
	}
}
