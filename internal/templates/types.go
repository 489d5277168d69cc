// Package templates scaffolds new projects from embedded skeletons for
// `lmctl project create`.
package templates

import "github.com/opmodel/lmctl/internal/project"

// Child declares a sub-project to scaffold under Contains/.
type Child struct {
	Name            string
	Type            project.Type
	ResourceManager project.ResourceManager
}

// GenerateOptions configures project generation.
type GenerateOptions struct {
	// TargetDir is the directory to generate the project in.
	TargetDir string

	// Name defaults to the base name of TargetDir.
	Name string

	// Version defaults to DefaultVersion.
	Version string

	Type            project.Type
	ResourceManager project.ResourceManager
	Contains        []Child
}

// GenerateResult lists what Generate wrote.
type GenerateResult struct {
	// Files created, relative to TargetDir.
	Files []string

	// Skipped holds files that already existed and were left alone.
	Skipped []string

	TargetDir string
}

// TemplateData is passed to each skeleton file, for both its path and its
// content.
type TemplateData struct {
	Name           string
	FullName       string
	Version        string
	DescriptorName string
	// Children are the direct sub-projects, for assembly compositions.
	Children []ChildData
}

// ChildData describes a sub-project as seen from its parent.
type ChildData struct {
	Name string
	// Reference resolves to the child's descriptor name at build time.
	Reference string
}
