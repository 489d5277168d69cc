package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
)

// NewBuildCmd creates the project build command.
func NewBuildCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var pf cmdutil.ProjectFlags

	c := &cobra.Command{
		Use:   "build",
		Short: "Build an Assembly or Resource project into a package",
		Long: `Build validates the project, stages its sources with references resolved,
compiles each sub-project and writes the package to _lmctl/build.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runBuild(c, gc, &pf)
		},
	}
	pf.AddTo(c)

	return c
}

func runBuild(c *cobra.Command, gc *cmdtypes.GlobalConfig, pf *cmdutil.ProjectFlags) error {
	p, err := openProject(pf.Path)
	if err != nil {
		return err
	}
	pl, _, err := newPipeline(gc, nil)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Autocorrect: pf.EffectiveAutocorrect(c, gc.Project().Autocorrect)}
	result, err := pl.Build(p, opts)
	if err != nil {
		return failure(c.ErrOrStderr(), "build failed", err)
	}

	out := c.OutOrStdout()
	printDiagnostics(out, result.Diagnostics)
	fmt.Fprintln(out, output.FormatCheckmark(fmt.Sprintf("Built package: %s", result.Package)))
	return nil
}
