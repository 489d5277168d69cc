// Package stage copies a project's sources into an isolated staging tree,
// applying the stage-direction mutators on the way. The source tree is never
// written to.
package stage

import (
	"fmt"
	"os"
	"path"

	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/mutate"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// Well known staging layout.
const (
	Dir          = "staging"
	ArtifactsDir = "Artifacts"
)

// Error is a fatal staging failure.
type Error struct {
	Project string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("staging %s: %v", e.Project, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Mutator transforms raw file content while it is staged.
type Mutator interface {
	Apply(data []byte) ([]byte, error)
}

// Stager copies the sources of one node into its staging directory.
type Stager struct {
	Config  *project.Config
	Index   *project.Index
	Journal *journal.Journal
	Source  *tree.Tree
	Target  *tree.Tree
}

// StageFile copies srcRel to dstRel, passing the content through m when set.
func (s *Stager) StageFile(srcRel, dstRel string, m Mutator) error {
	if m == nil {
		return tree.CopyFile(s.Source, srcRel, s.Target, dstRel)
	}
	data, err := s.Source.ReadFile(srcRel)
	if err != nil {
		return err
	}
	out, err := m.Apply(data)
	if err != nil {
		return fmt.Errorf("staging %s: %w", s.Source.Path(srcRel), err)
	}
	return s.Target.WriteFile(dstRel, out)
}

// StageTree copies the directory srcRel to dstRel.
func (s *Stager) StageTree(srcRel, dstRel string) error {
	return tree.CopyTree(s.Source, srcRel, s.Target, dstRel)
}

// CopyStagedFile copies a file that has already been staged.
func (s *Stager) CopyStagedFile(fromRel, toRel string) error {
	return tree.CopyFile(s.Target, fromRel, s.Target, toRel)
}

// StageDescriptor copies a descriptor, names it and resolves its references.
// The staged document is parsed from the staged copy, never from the source.
func (s *Stager) StageDescriptor(srcRel, dstRel string, isTemplate bool) error {
	if err := s.StageFile(srcRel, dstRel, nil); err != nil {
		return err
	}
	d, err := descriptor.Load(s.Target, dstRel)
	if err != nil {
		return err
	}
	staged := mutate.DescriptorStage{
		Config:  s.Config,
		Index:   s.Index,
		Journal: s.Journal,
		File:    srcRel,
	}.Apply(d, isTemplate)
	return descriptor.Save(s.Target, dstRel, staged)
}

// Handler stages the type-specific sources of one node.
type Handler interface {
	Stage(s *Stager) error
}

// HandlerFunc looks up the handler for a node.
type HandlerFunc func(cfg *project.Config) (Handler, error)

// Run stages p and its sub-projects into target, which is cleaned first.
// Children are staged below Contains/<directory> of their parent.
func Run(p *project.Project, idx *project.Index, handlerFor HandlerFunc, target *tree.Tree, j *journal.Journal) error {
	if err := target.Clean(); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	j.Section("Stage Sources")
	h, err := handlerFor(p.Config)
	if err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	s := &Stager{Config: p.Config, Index: idx, Journal: j, Source: p.Tree, Target: target}
	if err := h.Stage(s); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	if err := stageArtifacts(s); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	if p.Config.IsRoot() {
		if err := stageTOSCA(s); err != nil {
			return &Error{Project: p.Config.Name, Err: err}
		}
	}

	for _, child := range p.Children {
		j.Subproject(child.Config.Name)
		err := Run(child, idx, handlerFor, target.Sub(project.ContainsDir, child.Config.EffectiveDirectory()), j)
		j.SubprojectEnd()
		if err != nil {
			return err
		}
	}
	return nil
}

func stageTOSCA(s *Stager) error {
	if !s.Source.IsDir(project.TOSCAMetadataDir) {
		if s.Config.EffectivePackaging() == project.PackagingCsar {
			return fmt.Errorf("%s directory is required for %s packaging: %s",
				project.TOSCAMetadataDir, project.PackagingCsar, s.Source.Path(project.TOSCAMetadataDir))
		}
		return nil
	}
	s.Journal.Event("Staging TOSCA-Metadata at %s", s.Source.Path(project.TOSCAMetadataDir))
	return s.StageTree(project.TOSCAMetadataDir, project.TOSCAMetadataDir)
}

// stageArtifacts copies each included artifact to Artifacts/<name>/.
func stageArtifacts(s *Stager) error {
	for _, a := range s.Config.IncludedArtifacts {
		info, err := s.Source.Stat(a.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("included artifact %s not found at: %s", a.Name, s.Source.Path(a.Path))
			}
			return err
		}
		dst := path.Join(ArtifactsDir, a.Name)
		s.Journal.Event("Staging included artifact %s from %s", a.Name, s.Source.Path(a.Path))

		if !info.IsDir() {
			if err := s.StageFile(a.Path, path.Join(dst, path.Base(a.Path)), nil); err != nil {
				return err
			}
			continue
		}
		if len(a.Items) == 0 {
			if err := s.StageTree(a.Path, dst); err != nil {
				return err
			}
			continue
		}
		if err := stageItems(s, a, dst); err != nil {
			return err
		}
	}
	return nil
}

func stageItems(s *Stager, a project.IncludedArtifact, dst string) error {
	named := map[string]bool{}
	for _, item := range a.Items.Named() {
		named[item] = true
		if err := stageEntry(s, path.Join(a.Path, item), path.Join(dst, item)); err != nil {
			return fmt.Errorf("included artifact %s: %w", a.Name, err)
		}
	}
	if !a.Items.HasWildcard() {
		return nil
	}
	entries, err := s.Source.ReadDir(a.Path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if named[e.Name()] {
			continue
		}
		if err := stageEntry(s, path.Join(a.Path, e.Name()), path.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func stageEntry(s *Stager, srcRel, dstRel string) error {
	info, err := s.Source.Stat(srcRel)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("item not found at: %s", s.Source.Path(srcRel))
		}
		return err
	}
	if info.IsDir() {
		return s.StageTree(srcRel, dstRel)
	}
	return s.StageFile(srcRel, dstRel, nil)
}
