// Package pipeline composes the validate, stage, compile, package, push, pull
// and test processes into the operations exposed by the CLI.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/handlers"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/pull"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
	"github.com/opmodel/lmctl/internal/validation"
)

// Pipeline runs the project operations.
type Pipeline interface {
	// Validate checks the sources of p and every sub-project.
	Validate(p *project.Project, opts Options) (*validation.Result, error)

	// Build validates, stages, compiles and packages p.
	Build(p *project.Project, opts Options) (*BuildResult, error)

	// Push builds p and pushes the package to the environment.
	Push(ctx context.Context, p *project.Project, opts Options) (*PushResult, error)

	// PushPackage pushes an already built package.
	PushPackage(ctx context.Context, packagePath string) (*PushResult, error)

	// Pull brings the remote content of p back into its sources.
	Pull(ctx context.Context, p *project.Project) (*pull.Result, error)

	// Test builds and pushes p, then runs the selected behaviour tests.
	Test(ctx context.Context, p *project.Project, opts TestOptions) (*TestResult, error)

	// ListTests builds p and lists the tests found in the package.
	ListTests(p *project.Project, opts Options) ([]behaviour.Listing, error)
}

// Options apply to every operation that builds a project.
type Options struct {
	// Autocorrect lets validation rewrite legacy source formats in place.
	Autocorrect bool
}

// TestOptions control Test.
type TestOptions struct {
	Options

	// Selection names the scenarios to run, or "*" for all of them.
	Selection []string

	// Interval between polls of an execution. Zero uses the default.
	Interval time.Duration

	// Timeout bounds the polling of one execution. Zero uses the default.
	Timeout time.Duration
}

// Validate checks the options are usable.
func (o TestOptions) Validate() error {
	if len(o.Selection) == 0 {
		return &InvalidOptionsError{Message: "at least one test must be selected, use \"*\" for all"}
	}
	if o.Interval < 0 || o.Timeout < 0 {
		return &InvalidOptionsError{Message: "poll interval and timeout must not be negative"}
	}
	return nil
}

// BuildResult describes a built package.
type BuildResult struct {
	Validation *validation.Result
	// Package is the absolute path of the archive.
	Package     string
	Diagnostics []journal.ReferenceDiagnostic
}

// PushResult describes a pushed package.
type PushResult struct {
	Build   *BuildResult
	Package string
	Project *project.Project
}

// TestResult is the outcome of Test.
type TestResult struct {
	Push   *PushResult
	Report *behaviour.Report
}

type pipeline struct {
	journal *journal.Journal
	stores  orchestrator.Stores
}

// NewPipeline returns a Pipeline recording to j. stores may be empty for
// operations that do not reach an environment.
func NewPipeline(j *journal.Journal, stores orchestrator.Stores) Pipeline {
	if j == nil {
		j = journal.New()
	}
	return &pipeline{journal: j, stores: stores}
}

func (p *pipeline) Validate(proj *project.Project, opts Options) (*validation.Result, error) {
	return validation.Run(proj, handlers.ValidationHandler, validation.Options{Autocorrect: opts.Autocorrect}, p.journal)
}

// Build runs the phases in order:
//  1. VALIDATE: every node; any error stops the build
//  2. STAGE:    sources with references resolved, into _lmctl/staging
//  3. COMPILE:  type-specific packaging, into _lmctl/compile
//  4. PACKAGE:  archive plus metadata, into _lmctl/build
//
// The previous contents of _lmctl/build are removed first, so a failed build
// leaves no package behind.
func (p *pipeline) Build(proj *project.Project, opts Options) (*BuildResult, error) {
	ws := proj.Workspace()
	build := ws.Sub(packaging.BuildDir)
	if err := build.RemoveAll(""); err != nil {
		return nil, err
	}

	result, err := p.Validate(proj, opts)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return &BuildResult{Validation: result}, &ValidationFailedError{Result: result}
	}

	staged := ws.Sub(stage.Dir)
	if err := stage.Run(proj, project.NewIndex(proj.Config), handlers.StageHandler, staged, p.journal); err != nil {
		return nil, err
	}
	compiled := ws.Sub(packaging.CompileDir)
	if err := packaging.Compile(proj, handlers.PackagingHandler, staged, compiled, p.journal); err != nil {
		return nil, err
	}
	if err := staged.RemoveAll(""); err != nil {
		return nil, err
	}
	name, err := packaging.Package(proj, compiled, build, p.journal)
	if err != nil {
		return nil, err
	}

	output.Debug("package built", "project", proj.Config.Name, "package", build.Path(name))
	return &BuildResult{
		Validation:  result,
		Package:     build.Path(name),
		Diagnostics: p.journal.Diagnostics(),
	}, nil
}

func (p *pipeline) Push(ctx context.Context, proj *project.Project, opts Options) (*PushResult, error) {
	if err := p.requireEnvironment(); err != nil {
		return nil, err
	}
	built, err := p.buildArchive(proj, opts)
	if err != nil {
		return nil, err
	}
	pushed, err := push.Run(ctx, built.archive, proj.Workspace(), handlers.PushHandler, p.stores, p.journal)
	if err != nil {
		return nil, err
	}
	return &PushResult{Build: built.result, Package: built.result.Package, Project: pushed}, nil
}

func (p *pipeline) PushPackage(ctx context.Context, packagePath string) (*PushResult, error) {
	if err := p.requireEnvironment(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(packagePath)
	if err != nil {
		return nil, err
	}
	dir, err := tree.OS(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	a, err := packaging.Open(dir, filepath.Base(abs))
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "lmctl-push-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)
	workspace, err := tree.OS(tmp)
	if err != nil {
		return nil, err
	}
	pushed, err := push.Run(ctx, a, workspace, handlers.PushHandler, p.stores, p.journal)
	if err != nil {
		return nil, err
	}
	return &PushResult{Package: abs, Project: pushed}, nil
}

func (p *pipeline) Pull(ctx context.Context, proj *project.Project) (*pull.Result, error) {
	if err := p.requireEnvironment(); err != nil {
		return nil, err
	}
	return pull.Run(ctx, proj, handlers.PullHandler, p.stores, p.journal)
}

func (p *pipeline) Test(ctx context.Context, proj *project.Project, opts TestOptions) (*TestResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pushed, err := p.Push(ctx, proj, opts.Options)
	if err != nil {
		return nil, err
	}

	runner := behaviour.NewRunner(p.stores.Behaviour, p.journal)
	if opts.Interval > 0 {
		runner.Interval = opts.Interval
	}
	if opts.Timeout > 0 {
		runner.Timeout = opts.Timeout
	}
	report, err := behaviour.Run(ctx, pushed.Project, handlers.BehaviourHandler, runner, opts.Selection, p.journal)
	if err != nil {
		return nil, err
	}
	result := &TestResult{Push: pushed, Report: report}
	if report.HasFailures() {
		return result, &TestsFailedError{Report: report}
	}
	return result, nil
}

func (p *pipeline) ListTests(proj *project.Project, opts Options) ([]behaviour.Listing, error) {
	built, err := p.buildArchive(proj, opts)
	if err != nil {
		return nil, err
	}
	content, err := built.archive.Project(proj.Workspace().Sub(push.Dir))
	if err != nil {
		return nil, err
	}
	return behaviour.List(content, handlers.BehaviourHandler)
}

type builtArchive struct {
	result  *BuildResult
	archive *packaging.Archive
}

func (p *pipeline) buildArchive(proj *project.Project, opts Options) (*builtArchive, error) {
	result, err := p.Build(proj, opts)
	if err != nil {
		return nil, err
	}
	build := proj.Workspace().Sub(packaging.BuildDir)
	a, err := packaging.Open(build, filepath.Base(result.Package))
	if err != nil {
		return nil, err
	}
	return &builtArchive{result: result, archive: a}, nil
}

func (p *pipeline) requireEnvironment() error {
	if p.stores.Descriptors == nil || p.stores.Behaviour == nil || p.stores.Packages == nil {
		return ErrNoEnvironment
	}
	return nil
}
