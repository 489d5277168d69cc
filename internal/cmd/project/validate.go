package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
)

// NewValidateCmd creates the project validate command.
func NewValidateCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var pf cmdutil.ProjectFlags

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate an Assembly or Resource project",
		Long: `Validate checks the project file and the sources of the project and every
sub-project. All findings are reported; validation does not stop at the first error.

With --autocorrect, legacy descriptor and lifecycle layouts are rewritten in place.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runValidate(c, gc, &pf)
		},
	}
	pf.AddTo(c)

	return c
}

func runValidate(c *cobra.Command, gc *cmdtypes.GlobalConfig, pf *cmdutil.ProjectFlags) error {
	p, err := openProject(pf.Path)
	if err != nil {
		return err
	}
	pl, _, err := newPipeline(gc, nil)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Autocorrect: pf.EffectiveAutocorrect(c, gc.Project().Autocorrect)}
	result, err := pl.Validate(p, opts)
	if err != nil {
		return failure(c.ErrOrStderr(), "validation could not run", err)
	}

	fmt.Fprint(c.OutOrStdout(), output.RenderValidation(result))
	if !result.Valid() {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitValidationError, Err: result.Err(), Printed: true}
	}
	return nil
}
