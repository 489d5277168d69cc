// Package push uploads the content of a built package to an environment.
package push

import (
	"context"
	"fmt"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// Dir is the workspace directory packages are extracted to.
const Dir = "push"

// Error is a push failure.
type Error struct {
	Project string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pushing %s: %v", e.Project, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Pusher is handed to a handler to push the content of one node.
type Pusher struct {
	Config  *project.Config
	Journal *journal.Journal
	Content *tree.Tree
	Stores  orchestrator.Stores
}

// Handler pushes the type-specific content of one node.
type Handler interface {
	Push(ctx context.Context, p *Pusher) error
}

// HandlerFunc looks up the handler for a node.
type HandlerFunc func(cfg *project.Config) (Handler, error)

// Run extracts the package at a into workspace/push and pushes it. Children
// are pushed before their parent so that anything the parent references
// already exists.
func Run(ctx context.Context, a *packaging.Archive, workspace *tree.Tree, handlerFor HandlerFunc, stores orchestrator.Stores, j *journal.Journal) (*project.Project, error) {
	j.Section("Processing Package")
	j.Event("Processing %s", a.Tree.Path(a.Path))
	p, err := a.Project(workspace.Sub(Dir))
	if err != nil {
		return nil, err
	}
	return p, Content(ctx, p, handlerFor, stores, j)
}

// Content pushes an already extracted package tree.
func Content(ctx context.Context, p *project.Project, handlerFor HandlerFunc, stores orchestrator.Stores, j *journal.Journal) error {
	for _, child := range p.Children {
		j.Subproject(child.Config.Name)
		err := Content(ctx, child, handlerFor, stores, j)
		j.SubprojectEnd()
		if err != nil {
			return err
		}
	}

	j.Section("Push Content")
	h, err := handlerFor(p.Config)
	if err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	pusher := &Pusher{Config: p.Config, Journal: j, Content: p.Tree, Stores: stores}
	if err := h.Push(ctx, pusher); err != nil {
		return &Error{Project: p.Config.Name, Err: err}
	}
	return nil
}
