package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
)

// Elements that can be listed.
const elementTests = "tests"

// NewListCmd creates the project list command.
func NewListCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var (
		pf cmdutil.ProjectFlags
		of cmdutil.OutputFlags
	)

	c := &cobra.Command{
		Use:   "list <element>",
		Short: "List elements of a project",
		Long: `List builds the project and lists elements found in the package.

Supported elements:
  tests   behaviour test scenarios of each Assembly and Type project`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{elementTests},
		RunE: func(c *cobra.Command, args []string) error {
			return runList(c, gc, &pf, &of, args[0])
		},
	}
	pf.AddTo(c)
	of.AddTo(c)

	return c
}

func runList(c *cobra.Command, gc *cmdtypes.GlobalConfig, pf *cmdutil.ProjectFlags, of *cmdutil.OutputFlags, element string) error {
	if element != elementTests {
		return &cmdtypes.ExitError{
			Code: cmdtypes.ExitGeneralError,
			Err:  fmt.Errorf("unknown element %q, must be one of: [%s]", element, elementTests),
		}
	}
	format, err := of.Parse()
	if err != nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitGeneralError, Err: err}
	}

	p, err := openProject(pf.Path)
	if err != nil {
		return err
	}
	pl, _, err := newPipeline(gc, nil)
	if err != nil {
		return err
	}

	listings, err := pl.ListTests(p, pipeline.Options{Autocorrect: pf.EffectiveAutocorrect(c, gc.Project().Autocorrect)})
	if err != nil {
		return failure(c.ErrOrStderr(), "listing tests failed", err)
	}

	out := c.OutOrStdout()
	if format != output.FormatTable {
		return cmdutil.WriteStructured(out, format, cmdutil.NewTestListingViews(listings))
	}
	fmt.Fprint(out, output.RenderTestListing(listings))
	return nil
}
