// Package mutate holds the transforms applied to descriptors and behaviour
// artifacts when they move between a project's source and its staged or
// pulled forms.
//
// Stage mutators turn references into concrete descriptor names. Pull
// mutators reverse that so source stays portable across environments. A
// reference that cannot be resolved never fails a mutator: the value is kept
// and a diagnostic is recorded in the journal.
package mutate

import (
	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
)

// typedSections are the descriptor sections whose entries carry a type.
var typedSections = []string{descriptor.KeyComposition, descriptor.KeyReferences}

// DescriptorStage prepares a source descriptor for packaging.
type DescriptorStage struct {
	Config  *project.Config
	Index   *project.Index
	Journal *journal.Journal
	// File is reported in diagnostics.
	File string
}

// Apply names a nameless descriptor and resolves reference types. d is
// modified in place; callers pass a copy they own.
func (m DescriptorStage) Apply(d *descriptor.Descriptor, isTemplate bool) *descriptor.Descriptor {
	if !d.HasName() {
		if isTemplate {
			d.SetName(m.Config.TemplateDescriptorName())
		} else {
			d.SetName(m.Config.DescriptorName())
		}
	}
	for _, section := range typedSections {
		for _, entry := range d.Entries(section) {
			value := entry.String("type")
			if value == "" || !m.Index.IsReference(value) {
				continue
			}
			resolved, err := m.Index.ResolveString(value)
			if err != nil {
				m.Journal.Diagnostic(journal.ReferenceDiagnostic{
					File: m.File, Field: section + "." + entry.Key + ".type", Reference: value, Err: err,
				})
				continue
			}
			entry.Set("type", descriptor.Scalar(resolved))
		}
	}
	return d
}

// DescriptorPull makes a pulled descriptor environment independent.
type DescriptorPull struct {
	Index   *project.Index
	Journal *journal.Journal
	File    string
}

// Apply removes the name and replaces types that name a project in the
// tree with a reference to that project.
func (m DescriptorPull) Apply(d *descriptor.Descriptor) *descriptor.Descriptor {
	d.RemoveName()
	for _, section := range typedSections {
		for _, entry := range d.Entries(section) {
			value := entry.String("type")
			if value == "" {
				continue
			}
			owner, err := m.Index.ProjectFor(value)
			if err != nil {
				m.Journal.Diagnostic(journal.ReferenceDiagnostic{
					File: m.File, Field: section + "." + entry.Key + ".type",
					Reference: m.Index.DescriptorMappingReference(value), Err: err,
				})
				continue
			}
			entry.Set("type", descriptor.Scalar(m.Index.DescriptorReference(owner)))
		}
	}
	return d
}
