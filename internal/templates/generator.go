package templates

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/project"
)

// Generator handles project generation from skeletons.
type Generator struct {
	opts GenerateOptions
}

// NewGenerator creates a new generator with the given options.
func NewGenerator(opts GenerateOptions) *Generator {
	return &Generator{opts: opts}
}

// Config returns the project configuration Generate writes.
func (g *Generator) Config() (*project.Config, error) {
	name := g.opts.Name
	if name == "" {
		abs, err := filepath.Abs(g.opts.TargetDir)
		if err != nil {
			return nil, err
		}
		name = filepath.Base(abs)
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	version := g.opts.Version
	if version == "" {
		version = DefaultVersion
	}

	root := &project.Config{
		Schema:          project.Schema2,
		Name:            name,
		Version:         version,
		Type:            g.opts.Type,
		ResourceManager: g.opts.ResourceManager,
	}
	for _, c := range g.opts.Contains {
		root.Contains = append(root.Contains, &project.Config{
			Name:            c.Name,
			Type:            c.Type,
			ResourceManager: c.ResourceManager,
		})
	}
	project.Link(root)
	if err := root.Check(); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	return root, nil
}

// Generate creates the project file and a skeleton for the root and each
// sub-project. Existing files are never overwritten.
func (g *Generator) Generate() (*GenerateResult, error) {
	root, err := g.Config()
	if err != nil {
		return nil, err
	}
	if err := g.checkTargetDir(); err != nil {
		return nil, err
	}

	result := &GenerateResult{TargetDir: g.opts.TargetDir}

	doc, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encoding project file: %w", err)
	}
	if err := g.write(result, project.FileYML, doc); err != nil {
		return nil, err
	}

	index := project.NewIndex(root)
	err = root.Walk(func(c *project.Config) error {
		return g.generateNode(result, index, c)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (g *Generator) generateNode(result *GenerateResult, index *project.Index, c *project.Config) error {
	layers, err := Layers(c.EffectiveType(), c.ResourceManager)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}

	data := TemplateData{
		Name:           c.Name,
		FullName:       c.FullName(),
		Version:        c.EffectiveVersion(),
		DescriptorName: c.DescriptorName(),
	}
	for _, child := range c.Contains {
		data.Children = append(data.Children, ChildData{Name: child.Name, Reference: index.DescriptorReference(child)})
	}

	base := nodeDir(c)
	output.Debug("generating project",
		"name", c.Name,
		"layers", layers,
		"dir", base)

	renderer := NewRenderer(data)
	for _, layer := range layers {
		files, err := renderer.RenderLayer(layer)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := g.write(result, filepath.Join(base, filepath.FromSlash(f.TargetPath)), f.Content); err != nil {
				return err
			}
		}
	}
	return nil
}

// nodeDir is the directory of c relative to the project root.
func nodeDir(c *project.Config) string {
	if c.IsRoot() {
		return ""
	}
	return filepath.Join(nodeDir(c.Parent()), project.ContainsDir, c.EffectiveDirectory())
}

func (g *Generator) write(result *GenerateResult, rel string, content []byte) error {
	target := filepath.Join(g.opts.TargetDir, rel)
	if _, err := os.Stat(target); err == nil {
		output.Debug("file exists, skipping", "path", rel)
		result.Skipped = append(result.Skipped, rel)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}

	output.Debug("created file", "path", rel)
	result.Files = append(result.Files, rel)
	return nil
}

// checkTargetDir validates the target directory.
func (g *Generator) checkTargetDir() error {
	info, err := os.Stat(g.opts.TargetDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking target directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", g.opts.TargetDir)
	}
	return nil
}
