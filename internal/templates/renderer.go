package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"
)

//go:embed all:skeletons
var skeletonFS embed.FS

const skeletonRoot = "skeletons"

// Renderer handles template rendering with data substitution.
type Renderer struct {
	data TemplateData
}

// NewRenderer creates a new renderer with the given template data.
func NewRenderer(data TemplateData) *Renderer {
	return &Renderer{data: data}
}

// RenderString renders a template string and returns the result.
func (r *Renderer) RenderString(name, content string) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.String(), nil
}

// TemplateFile represents a file to be generated from a skeleton.
type TemplateFile struct {
	// SourcePath is the path within the embedded filesystem.
	SourcePath string

	// TargetPath is the rendered output path, relative to the project.
	TargetPath string

	// Content is the rendered content.
	Content []byte
}

// RenderLayer renders every file of a skeleton layer. Paths and the content
// of .tmpl files are templates; other files are copied as they are.
func (r *Renderer) RenderLayer(layer string) ([]TemplateFile, error) {
	root := path.Join(skeletonRoot, layer)
	var files []TemplateFile

	err := fs.WalkDir(skeletonFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, err := fs.ReadFile(skeletonFS, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		rel := strings.TrimPrefix(p, root+"/")
		target, err := r.RenderString(p+" (path)", rel)
		if err != nil {
			return err
		}

		if strings.HasSuffix(rel, ".tmpl") {
			target = strings.TrimSuffix(target, ".tmpl")
			rendered, err := r.RenderString(p, string(content))
			if err != nil {
				return err
			}
			content = []byte(rendered)
		}

		files = append(files, TemplateFile{SourcePath: p, TargetPath: target, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rendering skeleton %s: %w", layer, err)
	}

	return files, nil
}

// ListLayerFiles returns the unrendered target paths of a layer.
func ListLayerFiles(layer string) ([]string, error) {
	root := path.Join(skeletonRoot, layer)
	var files []string

	err := fs.WalkDir(skeletonFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, strings.TrimSuffix(strings.TrimPrefix(p, root+"/"), ".tmpl"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing skeleton %s: %w", layer, err)
	}
	return files, nil
}
