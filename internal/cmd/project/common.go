package project

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
	"github.com/opmodel/lmctl/internal/project"
)

// openProject loads the project at path.
func openProject(path string) (*project.Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &cmdtypes.ExitError{Code: cmdtypes.ExitNotFound, Err: oerrors.NewNotFoundError(
				fmt.Sprintf("project directory %s does not exist", path),
				"pass --project or run 'lmctl project create'")}
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, &cmdtypes.ExitError{Code: cmdtypes.ExitGeneralError, Err: fmt.Errorf("%s is not a directory", path)}
	}

	p, err := project.Open(path)
	if err != nil {
		return nil, &cmdtypes.ExitError{Code: cmdtypes.ExitCodeFromError(err), Err: err}
	}
	output.Debug("opened project", "name", p.Config.Name, "path", path)
	return p, nil
}

// newPipeline creates a pipeline logging through the process logger. env is
// nil for operations that stay local.
func newPipeline(gc *cmdtypes.GlobalConfig, env *cmdutil.EnvironmentOptions) (pipeline.Pipeline, *journal.Journal, error) {
	consumer := journal.NewLogConsumer(output.Logger())
	j := journal.New(consumer)
	if gc != nil && gc.Verbose {
		consumer.WithRunID(j.RunID())
	}

	var stores orchestrator.Stores
	if env != nil {
		var err error
		stores, err = cmdutil.NewStores(gc, *env)
		if err != nil {
			return nil, nil, err
		}
	}
	return pipeline.NewPipeline(j, stores), j, nil
}

// failure converts err from a pipeline operation into an ExitError, reporting
// it first.
func failure(w io.Writer, msg string, err error) error {
	var exitErr *cmdtypes.ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	cmdutil.PrintPipelineError(w, msg, err)
	return &cmdtypes.ExitError{Code: exitCode(err), Err: fmt.Errorf("%s: %w", msg, err), Printed: true}
}

func exitCode(err error) int {
	var invalid *pipeline.InvalidOptionsError
	switch {
	case errors.As(err, &invalid):
		return cmdtypes.ExitGeneralError
	case errors.Is(err, pipeline.ErrNoEnvironment):
		return cmdtypes.ExitNotFound
	}
	return cmdtypes.ExitCodeFromError(err)
}

// printDiagnostics lists unresolved references after a successful run.
func printDiagnostics(w io.Writer, diags []journal.ReferenceDiagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprint(w, output.RenderDiagnostics(diags))
}
