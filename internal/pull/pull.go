// Package pull brings remote content back into a project's source tree. Every
// local file is backed up before it is overwritten.
package pull

import (
	"context"
	"fmt"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// BackupDir is the workspace directory holding pre-pull copies.
const BackupDir = "pre_pull_backup"

// Error is a fatal pull failure.
type Error struct {
	Project string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pulling %s: %v", e.Project, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Change records a source file overwritten by a pull.
type Change struct {
	Project string
	// Path is the absolute path of the overwritten file.
	Path string
	// Backup is the absolute path of its pre-pull copy.
	Backup string
}

// Result is the outcome of a pull.
type Result struct {
	Changes     []Change
	Diagnostics []journal.ReferenceDiagnostic
}

// Backup copies source files into the backup tree of one node, at most once
// per file per run.
type Backup struct {
	source *tree.Tree
	target *tree.Tree
	done   map[string]bool
	result *Result
	name   string
}

// File backs up rel when it exists. It is a no-op when rel is missing or has
// already been backed up in this run.
func (b *Backup) File(rel string) error {
	if b.done[rel] || !b.source.IsFile(rel) {
		return nil
	}
	if err := tree.CopyFile(b.source, rel, b.target, rel); err != nil {
		return fmt.Errorf("backing up %s: %w", b.source.Path(rel), err)
	}
	b.done[rel] = true
	b.result.Changes = append(b.result.Changes, Change{Project: b.name, Path: b.source.Path(rel), Backup: b.target.Path(rel)})
	return nil
}

// Puller is handed to a handler to pull the content of one node.
type Puller struct {
	Config  *project.Config
	Index   *project.Index
	Journal *journal.Journal
	Source  *tree.Tree
	Backup  *Backup
	Stores  orchestrator.Stores
}

// Write backs up rel and replaces it with data.
func (p *Puller) Write(rel string, data []byte) error {
	if err := p.Backup.File(rel); err != nil {
		return err
	}
	return p.Source.WriteFile(rel, data)
}

// Handler pulls the type-specific content of one node.
type Handler interface {
	Pull(ctx context.Context, p *Puller) error
}

// HandlerFunc looks up the handler for a node.
type HandlerFunc func(cfg *project.Config) (Handler, error)

// Run pulls p and its sub-projects. The backup tree is cleaned first and
// mirrors the source nesting.
func Run(ctx context.Context, p *project.Project, handlerFor HandlerFunc, stores orchestrator.Stores, j *journal.Journal) (*Result, error) {
	backup := p.Workspace().Sub(BackupDir)
	if err := backup.Clean(); err != nil {
		return nil, &Error{Project: p.Config.Name, Err: err}
	}
	result := &Result{}
	idx := project.NewIndex(p.Config)
	err := run(ctx, p, idx, handlerFor, stores, backup, j, result)
	result.Diagnostics = j.Diagnostics()
	return result, err
}

func run(ctx context.Context, p *project.Project, idx *project.Index, handlerFor HandlerFunc, stores orchestrator.Stores, backup *tree.Tree, j *journal.Journal, result *Result) error {
	j.Section("Pull Sources")
	h, err := handlerFor(p.Config)
	if err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	puller := &Puller{
		Config:  p.Config,
		Index:   idx,
		Journal: j,
		Source:  p.Tree,
		Backup:  &Backup{source: p.Tree, target: backup, done: map[string]bool{}, result: result, name: p.Config.Name},
		Stores:  stores,
	}
	if err := h.Pull(ctx, puller); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}

	for _, child := range p.Children {
		j.Subproject(child.Config.Name)
		err := run(ctx, child, idx, handlerFor, stores, backup.Sub(project.ContainsDir, child.Config.EffectiveDirectory()), j, result)
		j.SubprojectEnd()
		if err != nil {
			return err
		}
	}
	return nil
}
