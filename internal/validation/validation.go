// Package validation checks a project tree before it is staged. Findings are
// collected across every sub-project; a check never stops at the first error.
package validation

import (
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// Finding is one error or warning.
type Finding struct {
	Project string
	Message string
	// Path is the file or directory the finding is about, when known.
	Path string
}

func (f Finding) String() string {
	if f.Project == "" {
		return f.Message
	}
	return f.Project + ": " + f.Message
}

// Result accumulates findings in discovery order.
type Result struct {
	Errors   []Finding
	Warnings []Finding
}

// Valid reports whether there are no errors.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

// Merge appends the findings of other.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Err aggregates the errors, or returns nil when there are none.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, f := range r.Errors {
		errs = append(errs, errors.New(f.String()))
	}
	return utilerrors.NewAggregate(errs)
}

// Options control optional validation behaviour.
type Options struct {
	// Autocorrect allows handlers to rewrite legacy source formats in place.
	Autocorrect bool
}

// Validator is handed to a handler to validate one sub-project.
type Validator struct {
	Config  *project.Config
	Source  *tree.Tree
	Journal *journal.Journal
	Options Options

	result *Result
}

// NewValidator returns a Validator that records findings into result.
func NewValidator(cfg *project.Config, source *tree.Tree, j *journal.Journal, opts Options, result *Result) *Validator {
	return &Validator{Config: cfg, Source: source, Journal: j, Options: opts, result: result}
}

// Error records an error and reports it to the journal.
func (v *Validator) Error(path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.Journal.ErrorEvent("%s", msg)
	v.result.Errors = append(v.result.Errors, Finding{Project: v.Config.Name, Message: msg, Path: path})
}

// Warning records a warning.
func (v *Validator) Warning(path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.Journal.Event("%s", msg)
	v.result.Warnings = append(v.result.Warnings, Finding{Project: v.Config.Name, Message: msg, Path: path})
}

// Require records an error when rel does not exist. It reports whether it does.
func (v *Validator) Require(rel, what string) bool {
	if ok, _ := v.Source.Exists(rel); !ok {
		v.Error(rel, "No %s found at: %s", what, v.Source.Path(rel))
		return false
	}
	v.Journal.Event("%s found at: %s", what, v.Source.Path(rel))
	return true
}

// Descriptor checks the descriptor at rel parses and, when named, that its
// name matches the project configuration.
func (v *Validator) Descriptor(rel string, isTemplate bool) {
	full := v.Source.Path(rel)
	if ok, _ := v.Source.Exists(rel); !ok {
		v.Error(rel, "No descriptor found at: %s", full)
		return
	}
	v.Journal.Event("Checking descriptor found at: %s", full)

	d, err := descriptor.Load(v.Source, rel)
	if err != nil {
		v.Error(rel, "Descriptor [%s]: could not be parsed: %v", full, err)
		return
	}
	if !d.HasName() {
		return
	}
	raw, _ := d.Name()
	name, err := descriptor.ParseName(raw)
	if err != nil {
		v.Error(rel, "Descriptor [%s]: %v", full, err)
		return
	}

	expectedType := v.Config.EffectiveType().DescriptorType()
	if isTemplate {
		expectedType = descriptor.TypeAssemblyTemplate
	}
	if name.Type != expectedType {
		v.Error(rel, "Descriptor [%s]: name '%s' includes type '%s' but this should be '%s' based on project configuration", full, raw, name.Type, expectedType)
	}
	if name.Name != v.Config.FullName() {
		v.Error(rel, "Descriptor [%s]: name '%s' includes '%s' but this should be '%s' based on project configuration", full, raw, name.Name, v.Config.FullName())
	}
	if name.Version != v.Config.EffectiveVersion() {
		v.Error(rel, "Descriptor [%s]: name '%s' includes version '%s' but this should be '%s' based on project configuration", full, raw, name.Version, v.Config.EffectiveVersion())
	}
}

// Handler validates the sources of one sub-project. A returned error is a
// structural failure that stops validation, not a finding.
type Handler interface {
	Validate(v *Validator) error
}

// HandlerFunc looks up the handler for a sub-project.
type HandlerFunc func(cfg *project.Config) (Handler, error)

// Run validates p and every sub-project, depth first in declared order.
func Run(p *project.Project, handlerFor HandlerFunc, opts Options, j *journal.Journal) (*Result, error) {
	result := &Result{}
	j.Section("Validate Sources")
	for _, warning := range project.VersionWarnings(p.Config) {
		result.Warnings = append(result.Warnings, Finding{Project: p.Config.Name, Message: warning})
	}
	if err := run(p, handlerFor, opts, j, result); err != nil {
		return result, err
	}
	return result, nil
}

func run(p *project.Project, handlerFor HandlerFunc, opts Options, j *journal.Journal, result *Result) error {
	h, err := handlerFor(p.Config)
	if err != nil {
		return err
	}
	if err := h.Validate(NewValidator(p.Config, p.Tree, j, opts, result)); err != nil {
		return fmt.Errorf("validating %s: %w", p.Config.Name, err)
	}
	validateArtifacts(p, j, result)

	for _, child := range p.Children {
		j.Subproject(child.Config.Name)
		err := run(child, handlerFor, opts, j, result)
		j.SubprojectEnd()
		if err != nil {
			return err
		}
	}
	return nil
}

func validateArtifacts(p *project.Project, j *journal.Journal, result *Result) {
	v := NewValidator(p.Config, p.Tree, j, Options{}, result)
	for _, a := range p.Config.IncludedArtifacts {
		if ok, _ := p.Tree.Exists(a.Path); !ok {
			v.Error(a.Path, "Included artifact %s not found at: %s", a.Name, p.Tree.Path(a.Path))
			continue
		}
		for _, item := range a.Items.Named() {
			if ok, _ := p.Tree.Exists(p.Tree.FS().Join(a.Path, item)); !ok {
				v.Error(a.Path, "Included artifact %s has no item %s in: %s", a.Name, item, p.Tree.Path(a.Path))
			}
		}
	}
}
