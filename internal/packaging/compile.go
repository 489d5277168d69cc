// Package packaging compiles a staged project into package content, archives
// it with its metadata and reads archives back for push and test.
package packaging

import (
	"archive/zip"
	"fmt"
	"os"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
)

// Workspace directories used by packaging.
const (
	CompileDir = "compile"
	BuildDir   = "build"
)

// Error is a fatal compile or packaging failure.
type Error struct {
	Project string
	Err     error
}

func (e *Error) Error() string {
	if e.Project == "" {
		return fmt.Sprintf("packaging: %v", e.Err)
	}
	return fmt.Sprintf("packaging %s: %v", e.Project, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Compiler turns the staged sources of one node into package content.
type Compiler struct {
	Config  *project.Config
	Journal *journal.Journal
	Staged  *tree.Tree
	Target  *tree.Tree
}

// CompileTree copies a staged directory into the content tree.
func (c *Compiler) CompileTree(srcRel, dstRel string) error {
	return tree.CopyTree(c.Staged, srcRel, c.Target, dstRel)
}

// CompileFile copies a staged file into the content tree.
func (c *Compiler) CompileFile(srcRel, dstRel string) error {
	return tree.CopyFile(c.Staged, srcRel, c.Target, dstRel)
}

// ZipSource is a staged directory to include in a zip built by Zip.
type ZipSource struct {
	Dir      string
	Optional bool
}

// Zip writes the listed staged directories into a zip at dstRel in the
// content tree, keeping each directory as the top level of its entries.
func (c *Compiler) Zip(dstRel string, sources ...ZipSource) error {
	for _, src := range sources {
		if !src.Optional && !c.Staged.IsDir(src.Dir) {
			return fmt.Errorf("Required directory for Resource package not found: %s", c.Staged.Path(src.Dir))
		}
	}

	f, err := c.Target.Create(dstRel)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for _, src := range sources {
		if !c.Staged.IsDir(src.Dir) {
			continue
		}
		err := c.Staged.WalkFiles(src.Dir, func(rel string, info os.FileInfo) error {
			return addZipFile(zw, c.Staged, rel, rel, info)
		})
		if err != nil {
			_ = zw.Close()
			_ = f.Close()
			_ = c.Target.RemoveAll(dstRel)
			return fmt.Errorf("writing %s: %w", c.Target.Path(dstRel), err)
		}
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		_ = c.Target.RemoveAll(dstRel)
		return err
	}
	return f.Close()
}

// Handler compiles the type-specific content of one node.
type Handler interface {
	Compile(c *Compiler) error
}

// HandlerFunc looks up the handler for a node.
type HandlerFunc func(cfg *project.Config) (Handler, error)

// Compile compiles the staged tree of p and its sub-projects into target,
// which is cleaned first.
func Compile(p *project.Project, handlerFor HandlerFunc, staged, target *tree.Tree, j *journal.Journal) error {
	if err := target.Clean(); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	j.Section("Compile Package")
	h, err := handlerFor(p.Config)
	if err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	c := &Compiler{Config: p.Config, Journal: j, Staged: staged, Target: target}
	if err := h.Compile(c); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	for _, dir := range []string{stage.ArtifactsDir, project.TOSCAMetadataDir} {
		if staged.IsDir(dir) {
			if err := c.CompileTree(dir, dir); err != nil {
				return &Error{Project: p.Config.Name, Err: err}
			}
		}
	}

	for _, child := range p.Children {
		dir := child.Config.EffectiveDirectory()
		j.Subproject(child.Config.Name)
		err := Compile(child, handlerFor, staged.Sub(project.ContainsDir, dir), target.Sub(project.ContainsDir, dir), j)
		j.SubprojectEnd()
		if err != nil {
			return err
		}
	}
	return nil
}
