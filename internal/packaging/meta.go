package packaging

import (
	"fmt"
	"path"

	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
)

// MetaFile is the name of the package metadata entry.
const MetaFile = "lmpkg.yml"

// Meta describes the content of a package. It is generated from the project
// configuration each time a package is built.
type Meta struct {
	Schema            string                  `json:"schema" yaml:"schema"`
	Name              string                  `json:"name" yaml:"name"`
	Version           string                  `json:"version" yaml:"version"`
	Type              project.Type            `json:"type" yaml:"type"`
	ResourceManager   project.ResourceManager `json:"resource-manager,omitempty" yaml:"resource-manager,omitempty"`
	IncludedArtifacts []MetaArtifact          `json:"included-artifacts,omitempty" yaml:"included-artifacts,omitempty"`
	Contains          []MetaEntry             `json:"contains,omitempty" yaml:"contains,omitempty"`
}

// MetaEntry is a sub-package.
type MetaEntry struct {
	Name              string                  `json:"name" yaml:"name"`
	Type              project.Type            `json:"type" yaml:"type"`
	ResourceManager   project.ResourceManager `json:"resource-manager,omitempty" yaml:"resource-manager,omitempty"`
	Directory         string                  `json:"directory" yaml:"directory"`
	FullNameOverride  string                  `json:"full-name-override,omitempty" yaml:"full-name-override,omitempty"`
	IncludedArtifacts []MetaArtifact          `json:"included-artifacts,omitempty" yaml:"included-artifacts,omitempty"`
	Contains          []MetaEntry             `json:"contains,omitempty" yaml:"contains,omitempty"`
}

// MetaArtifact lists the files of an included artifact, relative to
// Artifacts/<path>.
type MetaArtifact struct {
	Name  string   `json:"name" yaml:"name"`
	Type  string   `json:"type,omitempty" yaml:"type,omitempty"`
	Path  string   `json:"path" yaml:"path"`
	Items []string `json:"items" yaml:"items"`
}

// NewMeta builds the metadata of the project rooted at cfg. compiled is the
// compiled content tree of the root, used to list included artifact items.
func NewMeta(cfg *project.Config, compiled *tree.Tree) (*Meta, error) {
	artifacts, err := metaArtifacts(cfg, compiled)
	if err != nil {
		return nil, err
	}
	contains, err := metaEntries(cfg, compiled)
	if err != nil {
		return nil, err
	}
	return &Meta{
		Schema:            cfg.EffectiveSchema(),
		Name:              cfg.Name,
		Version:           cfg.EffectiveVersion(),
		Type:              cfg.EffectiveType().Canonical(),
		ResourceManager:   resourceManager(cfg),
		IncludedArtifacts: artifacts,
		Contains:          contains,
	}, nil
}

func metaEntries(cfg *project.Config, compiled *tree.Tree) ([]MetaEntry, error) {
	var entries []MetaEntry
	for _, child := range cfg.Contains {
		dir := child.EffectiveDirectory()
		content := compiled.Sub(project.ContainsDir, dir)
		artifacts, err := metaArtifacts(child, content)
		if err != nil {
			return nil, err
		}
		contains, err := metaEntries(child, content)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MetaEntry{
			Name:              child.Name,
			Type:              child.EffectiveType().Canonical(),
			ResourceManager:   resourceManager(child),
			Directory:         dir,
			FullNameOverride:  child.FullNameOverride,
			IncludedArtifacts: artifacts,
			Contains:          contains,
		})
	}
	return entries, nil
}

func resourceManager(cfg *project.Config) project.ResourceManager {
	if cfg.EffectiveType().RequiresResourceManager() {
		return cfg.ResourceManager
	}
	return ""
}

func metaArtifacts(cfg *project.Config, compiled *tree.Tree) ([]MetaArtifact, error) {
	var artifacts []MetaArtifact
	for _, a := range cfg.IncludedArtifacts {
		dir := path.Join(stage.ArtifactsDir, a.Name)
		if !compiled.IsDir(dir) {
			return nil, fmt.Errorf("Artifact named %s has not been compiled correctly, there is no directory found for it in the compiled source", compiled.Path(dir))
		}
		entry := MetaArtifact{Name: a.Name, Type: a.Type, Path: a.Name}
		if len(a.Items) == 0 {
			entry.Items = []string{path.Base(a.Path)}
			artifacts = append(artifacts, entry)
			continue
		}

		named := map[string]bool{}
		for _, item := range a.Items.Named() {
			named[path.Base(item)] = true
		}
		for _, item := range a.Items {
			if item != project.Wildcard {
				entry.Items = append(entry.Items, item)
				continue
			}
			files, err := compiled.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				if !named[f.Name()] {
					entry.Items = append(entry.Items, f.Name())
				}
			}
		}
		artifacts = append(artifacts, entry)
	}
	return artifacts, nil
}

// Marshal encodes m as YAML.
func (m *Meta) Marshal() ([]byte, error) {
	return k8syaml.Marshal(m)
}

// ParseMeta decodes package metadata.
func ParseMeta(data []byte) (*Meta, error) {
	m := &Meta{}
	if err := k8syaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing package meta: %w", err)
	}
	if m.Schema == "" {
		m.Schema = project.Schema1
	}
	if m.Name == "" {
		return nil, fmt.Errorf("parsing package meta: name must be defined")
	}
	if m.Version == "" {
		return nil, fmt.Errorf("parsing package meta: version must be defined")
	}
	return m, nil
}

// legacyMeta is the lmproject.yml carried by packages built before schema
// 2.0. Definitions are kept in document order.
type legacyMeta struct {
	Name    string       `yaml:"name"`
	Version string       `yaml:"version"`
	Type    project.Type `yaml:"type"`
	VNFCs   struct {
		Definitions yaml.Node `yaml:"definitions"`
	} `yaml:"vnfcs"`
	Contains []MetaEntry `yaml:"contains"`
}

// parseLegacyMeta converts legacy metadata. Each vnfc becomes an ansible-rm
// Resource whose full name is its own name.
func parseLegacyMeta(data []byte) (*Meta, error) {
	var legacy legacyMeta
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parsing legacy package meta: %w", err)
	}
	m := &Meta{
		Schema:   project.Schema2,
		Name:     legacy.Name,
		Version:  legacy.Version,
		Type:     legacy.Type,
		Contains: legacy.Contains,
	}
	if m.Version == "" {
		m.Version = "1.0"
	}
	if m.Type == "" {
		m.Type = project.TypeAssembly
	}
	defs := &legacy.VNFCs.Definitions
	if defs.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(defs.Content); i += 2 {
			name := defs.Content[i].Value
			var def struct {
				Directory string `yaml:"directory"`
			}
			if err := defs.Content[i+1].Decode(&def); err != nil {
				return nil, fmt.Errorf("parsing legacy package meta: vnfc %s: %w", name, err)
			}
			if def.Directory == "" {
				def.Directory = name
			}
			m.Contains = append(m.Contains, MetaEntry{
				Name:             name,
				Type:             project.TypeResource,
				ResourceManager:  project.RMAnsible,
				Directory:        def.Directory,
				FullNameOverride: name,
			})
		}
	}
	if m.Name == "" {
		return nil, fmt.Errorf("parsing legacy package meta: name must be defined")
	}
	return m, nil
}

// Config returns the project configuration the package was built from, with
// parent links set.
func (m *Meta) Config() *project.Config {
	root := &project.Config{
		Schema:            m.Schema,
		Name:              m.Name,
		Version:           m.Version,
		Type:              m.Type,
		ResourceManager:   m.ResourceManager,
		IncludedArtifacts: configArtifacts(m.IncludedArtifacts),
		Contains:          configEntries(m.Contains),
	}
	return project.Link(root)
}

func configEntries(entries []MetaEntry) []*project.Config {
	var out []*project.Config
	for _, e := range entries {
		out = append(out, &project.Config{
			Name:              e.Name,
			Type:              e.Type,
			ResourceManager:   e.ResourceManager,
			Directory:         e.Directory,
			FullNameOverride:  e.FullNameOverride,
			IncludedArtifacts: configArtifacts(e.IncludedArtifacts),
			Contains:          configEntries(e.Contains),
		})
	}
	return out
}

func configArtifacts(artifacts []MetaArtifact) []project.IncludedArtifact {
	var out []project.IncludedArtifact
	for _, a := range artifacts {
		out = append(out, project.IncludedArtifact{Name: a.Name, Type: a.Type, Path: a.Path, Items: a.Items})
	}
	return out
}
