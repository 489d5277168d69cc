// Package cmdutil provides shared command utilities for project subcommands.
// It centralizes flag group management, environment client creation and
// output formatting helpers.
package cmdutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/output"
)

// DefaultProjectPath is the project directory used when --project is not set.
const DefaultProjectPath = "./"

// ProjectFlags holds flags common to commands that load a project
// (validate, build, push, test, list-tests, pull).
type ProjectFlags struct {
	Path        string
	Autocorrect bool
}

// AddTo registers the project flags on the given cobra command.
func (f *ProjectFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Path, "project", "p", DefaultProjectPath,
		"Path to the project directory")
	cmd.Flags().BoolVar(&f.Autocorrect, "autocorrect", false,
		"Rewrite legacy descriptor formats in place (default: from config)")
}

// EffectiveAutocorrect returns the --autocorrect flag when the user set it,
// otherwise the configured default.
func (f *ProjectFlags) EffectiveAutocorrect(cmd *cobra.Command, configured bool) bool {
	if cmd.Flags().Changed("autocorrect") {
		return f.Autocorrect
	}
	return configured
}

// EnvironmentFlags holds flags for commands that reach an environment
// (push, test, pull).
type EnvironmentFlags struct {
	Password string
}

// AddTo registers the environment flags on the given cobra command.
func (f *EnvironmentFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Password, "pwd", "",
		"Password used to authenticate with the environment (overrides config)")
}

// TestFlags holds flags for commands that run behaviour tests.
type TestFlags struct {
	Tests    string
	Interval time.Duration
	Timeout  time.Duration
}

// AddTo registers the test flags on the given cobra command.
func (f *TestFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Tests, "tests", "*",
		"Comma separated list of tests to run, \"*\" runs all")
	cmd.Flags().DurationVar(&f.Interval, "interval", 0,
		"Time between execution status polls (default: from config)")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", 0,
		"Maximum time to wait for one test (default: from config)")
}

// Selection splits --tests into test names.
func (f *TestFlags) Selection() []string {
	var names []string
	for _, name := range strings.Split(f.Tests, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// OutputFlags holds the --output flag.
type OutputFlags struct {
	Format string
}

// AddTo registers the output flag on the given cobra command.
func (f *OutputFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Format, "output", "o", output.FormatTable.String(),
		fmt.Sprintf("Output format: %s", strings.Join(output.ValidFormats(), ", ")))
}

// Parse validates the requested output format.
func (f *OutputFlags) Parse() (output.OutputFormat, error) {
	format, ok := output.ParseOutputFormat(f.Format)
	if !ok {
		return format, fmt.Errorf("invalid output format %q, must be one of: %s",
			f.Format, strings.Join(output.ValidFormats(), ", "))
	}
	return format, nil
}

// ResolveEnvironment returns the environment named by args, if any.
func ResolveEnvironment(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
