package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
)

// testOptions holds the flags for the test command.
type testOptions struct {
	project cmdutil.ProjectFlags
	env     cmdutil.EnvironmentFlags
	tests   cmdutil.TestFlags
	output  cmdutil.OutputFlags
}

// NewTestCmd creates the project test command.
func NewTestCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &testOptions{}

	c := &cobra.Command{
		Use:   "test [environment]",
		Short: "Build, push and run the behaviour tests of a project",
		Long: `Test builds the project, pushes it to the environment and runs the selected
behaviour test scenarios one at a time, polling each execution until it
finishes or --timeout passes.

Use --tests to select scenarios by name, "*" runs all of them.`,
		Example: `  # Run every test against the default environment
  lmctl project test

  # Run two tests against dev
  lmctl project test dev --tests install,upgrade`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runTest(c, gc, opts, cmdutil.ResolveEnvironment(args))
		},
	}
	opts.project.AddTo(c)
	opts.env.AddTo(c)
	opts.tests.AddTo(c)
	opts.output.AddTo(c)

	return c
}

func runTest(c *cobra.Command, gc *cmdtypes.GlobalConfig, opts *testOptions, environment string) error {
	format, err := opts.output.Parse()
	if err != nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitGeneralError, Err: err}
	}

	defaults := gc.Project()
	testOpts := pipeline.TestOptions{
		Options:   pipeline.Options{Autocorrect: opts.project.EffectiveAutocorrect(c, defaults.Autocorrect)},
		Selection: opts.tests.Selection(),
		Interval:  opts.tests.Interval,
		Timeout:   opts.tests.Timeout,
	}
	if !c.Flags().Changed("interval") {
		testOpts.Interval = defaults.PollInterval
	}
	if !c.Flags().Changed("timeout") {
		testOpts.Timeout = defaults.PollTimeout
	}
	if err := testOpts.Validate(); err != nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitGeneralError, Err: err}
	}

	p, err := openProject(opts.project.Path)
	if err != nil {
		return err
	}
	pl, _, err := newPipeline(gc, &cmdutil.EnvironmentOptions{Name: environment, Password: opts.env.Password})
	if err != nil {
		return err
	}

	var result *pipeline.TestResult
	err = output.RunWithSpinner(c.Context(), func(ctx context.Context) error {
		tested, testErr := pl.Test(ctx, p, testOpts)
		result = tested
		return testErr
	}, output.WithTitle(fmt.Sprintf("Testing %s", p.Config.Name)))

	var failed *pipeline.TestsFailedError
	if err != nil && !errors.As(err, &failed) {
		return failure(c.ErrOrStderr(), "test failed", err)
	}

	if err := writeTestReport(c, format, result); err != nil {
		return err
	}
	if failed != nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitGeneralError, Err: failed, Printed: true}
	}
	return nil
}

func writeTestReport(c *cobra.Command, format output.OutputFormat, result *pipeline.TestResult) error {
	out := c.OutOrStdout()
	if format != output.FormatTable {
		return cmdutil.WriteStructured(out, format, cmdutil.NewTestReportView(result.Report))
	}
	if result.Push != nil && result.Push.Build != nil {
		printDiagnostics(out, result.Push.Build.Diagnostics)
	}
	fmt.Fprint(out, output.RenderTestReport(result.Report))
	return nil
}
