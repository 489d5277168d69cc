// Package project reads lmproject.yml into a tree of Configs, pairs each node
// with its source directory and indexes the tree for reference resolution.
package project

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/tree"
)

// Well known names within a project source tree.
const (
	FileYML           = "lmproject.yml"
	FileYAML          = "lmproject.yaml"
	ContainsDir       = "Contains"
	LegacyContainsDir = "VNFCs"
	TOSCAMetadataDir  = "TOSCA-Metadata"
	WorkspaceDir      = "_lmctl"
)

// ErrInvalidProject indicates the project file or layout is unusable.
var ErrInvalidProject = errors.New("invalid project")

// Project pairs a Config node with its source tree.
type Project struct {
	Config   *Config
	Tree     *tree.Tree
	Parent   *Project
	Children []*Project
}

// Open loads the project rooted at dir.
func Open(dir string) (*Project, error) {
	t, err := tree.OS(dir)
	if err != nil {
		return nil, err
	}
	return OpenTree(t)
}

// OpenTree loads the project rooted at t. Legacy project files are rewritten to
// the current schema first.
func OpenTree(t *tree.Tree) (*Project, error) {
	file, err := t.FindOne(FileYML, FileYAML)
	if err != nil {
		return nil, fmt.Errorf("%w: project has both a %s file and a %s file when there should only be one",
			ErrInvalidProject, FileYML, FileYAML)
	}
	if file == "" {
		return nil, fmt.Errorf("%w: could not find project file at path: %s", ErrInvalidProject, t.Path(FileYML))
	}

	data, err := t.ReadFile(file)
	if err != nil {
		return nil, err
	}

	legacy, err := IsLegacy(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	if legacy {
		data, err = RewriteFile(t, file, legacyVersion(t))
		if err != nil {
			return nil, fmt.Errorf("%w: rewriting legacy project file: %w", ErrInvalidProject, err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Bind(t, cfg)
}

// Parse decodes and checks a schema 2.x project document.
func Parse(data []byte) (*Config, error) {
	if err := checkSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	Link(cfg)

	if cfg.Schema == "" {
		return nil, fmt.Errorf("%w: schema must be defined", ErrInvalidProject)
	}
	if err := checkSchemaVersion(cfg.Schema); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	return cfg, nil
}

// Bind pairs cfg and its descendants with directories under t.
func Bind(t *tree.Tree, cfg *Config) (*Project, error) {
	return bind(t, cfg, nil)
}

func bind(t *tree.Tree, cfg *Config, parent *Project) (*Project, error) {
	p := &Project{Config: cfg, Tree: t, Parent: parent}
	if len(cfg.Contains) == 0 {
		return p, nil
	}

	childDir, err := ChildrenDir(t)
	if err != nil {
		return nil, err
	}
	for _, c := range cfg.Contains {
		child, err := bind(t.Sub(childDir, c.EffectiveDirectory()), c, p)
		if err != nil {
			return nil, err
		}
		p.Children = append(p.Children, child)
	}
	return p, nil
}

// ChildrenDir returns the directory holding sub-project sources: Contains, or
// the legacy VNFCs when only that exists.
func ChildrenDir(t *tree.Tree) (string, error) {
	found, err := t.FindOne(LegacyContainsDir, ContainsDir)
	if err != nil {
		return "", fmt.Errorf("%w: project has both a %s directory and a %s directory when there should only be one",
			ErrInvalidProject, LegacyContainsDir, ContainsDir)
	}
	if found == "" {
		return ContainsDir, nil
	}
	return found, nil
}

// Walk visits p and each descendant depth first, in declared order.
func (p *Project) Walk(fn func(*Project) error) error {
	if err := fn(p); err != nil {
		return err
	}
	for _, c := range p.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Workspace returns the tree lmctl uses for intermediate output of the root
// project.
func (p *Project) Workspace() *tree.Tree {
	r := p
	for r.Parent != nil {
		r = r.Parent
	}
	return r.Tree.Sub(WorkspaceDir)
}

// legacyVersion reads the version from Descriptor/assembly.yml, if present.
func legacyVersion(t *tree.Tree) string {
	data, err := t.ReadFile("Descriptor/assembly.yml")
	if err != nil {
		return ""
	}
	var d struct {
		Name string `yaml:"name"`
	}
	if yaml.Unmarshal(data, &d) != nil {
		return ""
	}
	parts := strings.Split(d.Name, "::")
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}
