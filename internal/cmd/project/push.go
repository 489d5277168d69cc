package project

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
)

// pushOptions holds the flags for the push command.
type pushOptions struct {
	project cmdutil.ProjectFlags
	env     cmdutil.EnvironmentFlags
	pkg     string
}

// NewPushCmd creates the project push command.
func NewPushCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &pushOptions{}

	c := &cobra.Command{
		Use:   "push [environment]",
		Short: "Build a project and push it to an environment",
		Long: `Push builds the project and pushes the package to the environment:
descriptors, behaviour configurations and scenarios, and resource packages.

With --package, an already built package is pushed without building.
The environment defaults to defaultEnvironment from the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runPush(c, gc, opts, cmdutil.ResolveEnvironment(args))
		},
	}
	opts.project.AddTo(c)
	opts.env.AddTo(c)
	c.Flags().StringVar(&opts.pkg, "package", "", "Push an existing package instead of building the project")

	return c
}

func runPush(c *cobra.Command, gc *cmdtypes.GlobalConfig, opts *pushOptions, environment string) error {
	pl, _, err := newPipeline(gc, &cmdutil.EnvironmentOptions{Name: environment, Password: opts.env.Password})
	if err != nil {
		return err
	}

	var result *pipeline.PushResult
	if opts.pkg != "" {
		err = output.RunWithSpinner(c.Context(), func(ctx context.Context) error {
			pushed, pushErr := pl.PushPackage(ctx, opts.pkg)
			result = pushed
			return pushErr
		}, output.WithTitle(fmt.Sprintf("Pushing %s", opts.pkg)))
	} else {
		p, openErr := openProject(opts.project.Path)
		if openErr != nil {
			return openErr
		}
		buildOpts := pipeline.Options{Autocorrect: opts.project.EffectiveAutocorrect(c, gc.Project().Autocorrect)}
		err = output.RunWithSpinner(c.Context(), func(ctx context.Context) error {
			pushed, pushErr := pl.Push(ctx, p, buildOpts)
			result = pushed
			return pushErr
		}, output.WithTitle(fmt.Sprintf("Pushing %s", p.Config.Name)))
	}
	if err != nil {
		return failure(c.ErrOrStderr(), "push failed", err)
	}

	out := c.OutOrStdout()
	if result.Build != nil {
		printDiagnostics(out, result.Build.Diagnostics)
	}
	fmt.Fprintln(out, output.FormatCheckmark(fmt.Sprintf("Pushed %s", result.Package)))
	return nil
}
