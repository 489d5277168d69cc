package project

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/templates"
)

// createOptions holds the flags for the create command.
type createOptions struct {
	name            string
	version         string
	projectType     string
	resourceManager string
	contains        []string
}

// NewCreateCmd creates the project create command.
func NewCreateCmd() *cobra.Command {
	opts := &createOptions{}

	c := &cobra.Command{
		Use:   "create [location]",
		Short: "Create a new project",
		Long: `Create writes an lmproject.yml and a source skeleton for the project and each
sub-project given with --contains. Existing files are never overwritten.

Project types: Assembly, Type, Resource, ETSI_NS, ETSI_VNF.
Resource and ETSI_VNF projects need a resource manager: brent, brent2.1 or ansible-rm.`,
		Example: `  # Create an assembly in the current directory
  lmctl project create

  # Create an assembly with two resources
  lmctl project create ./svc --contains db:Resource:brent --contains app:Resource:ansible-rm

  # Create a brent resource
  lmctl project create ./db --type Resource --rm brent`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			location := "./"
			if len(args) > 0 {
				location = args[0]
			}
			return runCreate(c, opts, location)
		},
	}

	c.Flags().StringVar(&opts.name, "name", "", "Name of the project (default: the target directory name)")
	c.Flags().StringVar(&opts.version, "version", templates.DefaultVersion, "Version of the project")
	c.Flags().StringVar(&opts.projectType, "type", string(project.TypeAssembly), "Type of the project")
	c.Flags().StringVar(&opts.resourceManager, "rm", "", "Resource manager of a Resource or ETSI_VNF project, also used by resource sub-projects without one")
	c.Flags().StringArrayVar(&opts.contains, "contains", nil, "Sub-project as name:type[:resource-manager] (can be repeated)")

	return c
}

func runCreate(c *cobra.Command, opts *createOptions, location string) error {
	rm := project.ResourceManager(opts.resourceManager)
	genOpts := templates.GenerateOptions{
		TargetDir: location,
		Name:      opts.name,
		Version:   opts.version,
		Type:      project.Type(opts.projectType),
	}
	if genOpts.Type.RequiresResourceManager() {
		genOpts.ResourceManager = rm
	}
	for _, spec := range opts.contains {
		child, err := templates.ParseChild(spec)
		if err != nil {
			return &cmdtypes.ExitError{Code: cmdtypes.ExitValidationError, Err: err}
		}
		if child.ResourceManager == "" && child.Type.RequiresResourceManager() {
			child.ResourceManager = rm
		}
		genOpts.Contains = append(genOpts.Contains, child)
	}

	result, err := templates.NewGenerator(genOpts).Generate()
	if err != nil {
		return &cmdtypes.ExitError{
			Code: cmdtypes.ExitValidationError,
			Err:  oerrors.NewValidationError(genOpts.Name, project.FileYML, err.Error()),
		}
	}

	out := c.OutOrStdout()
	for _, f := range result.Files {
		fmt.Fprintln(out, output.FormatCheckmark(filepath.ToSlash(f)))
	}
	for _, f := range result.Skipped {
		fmt.Fprintln(out, output.StyleDim.Render("  = "+filepath.ToSlash(f)+" (exists)"))
	}
	fmt.Fprintf(out, "Project created in %s\n", result.TargetDir)
	return nil
}
