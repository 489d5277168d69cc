// Package handlers holds the type-specific behaviour of each kind of project:
// where its sources live, how they are checked, staged and compiled, and how
// the resulting content is pushed to and pulled from an environment.
//
// Handlers are selected by project type and, for Resource projects, by the
// resource manager group.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/pull"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
	"github.com/opmodel/lmctl/internal/validation"
)

// ErrMissingArtifact is returned when a file or directory a handler needs to
// stage is missing from the source tree.
var ErrMissingArtifact = errors.New("required artifact not found")

// Handler implements every process for one kind of project.
type Handler interface {
	validation.Handler
	stage.Handler
	packaging.Handler
	pull.Handler
	push.Handler
	behaviour.Handler
}

// Key selects a handler. ResourceManager is only set for Resource projects.
type Key struct {
	Type            project.Type
	ResourceManager project.ResourceManager
}

// Factory creates the handler for one node.
type Factory func(cfg *project.Config) Handler

var registry = map[Key]Factory{}

// Register adds a factory. Registering the same key twice replaces the
// earlier factory.
func Register(key Key, f Factory) {
	registry[key] = f
}

func keyFor(cfg *project.Config) Key {
	key := Key{Type: cfg.EffectiveType().Canonical()}
	if key.Type == project.TypeResource {
		key.ResourceManager = cfg.ResourceManager.Group()
	}
	return key
}

// For returns the handler for cfg.
//
//nolint:ireturn // handlers are selected at runtime.
func For(cfg *project.Config) (Handler, error) {
	key := keyFor(cfg)
	f, ok := registry[key]
	if !ok {
		if key.Type == project.TypeResource {
			return nil, fmt.Errorf("resource_manager '%s' on Resource '%s' not supported", cfg.ResourceManager, cfg.Name)
		}
		return nil, fmt.Errorf("type '%s' on project '%s' not supported", cfg.Type, cfg.Name)
	}
	return f(cfg), nil
}

// The adapters below satisfy the HandlerFunc of each process package.

//nolint:ireturn // see For.
func ValidationHandler(cfg *project.Config) (validation.Handler, error) { return For(cfg) }

//nolint:ireturn // see For.
func StageHandler(cfg *project.Config) (stage.Handler, error) { return For(cfg) }

//nolint:ireturn // see For.
func PackagingHandler(cfg *project.Config) (packaging.Handler, error) { return For(cfg) }

//nolint:ireturn // see For.
func PullHandler(cfg *project.Config) (pull.Handler, error) { return For(cfg) }

//nolint:ireturn // see For.
func PushHandler(cfg *project.Config) (push.Handler, error) { return For(cfg) }

//nolint:ireturn // see For.
func BehaviourHandler(cfg *project.Config) (behaviour.Handler, error) { return For(cfg) }

// findOne returns the candidate present in t, or the first candidate when
// none are. Both spellings present is an error.
func findOne(t *tree.Tree, what string, candidates ...string) (string, error) {
	found, err := t.FindOne(candidates...)
	if errors.Is(err, tree.ErrAmbiguous) {
		return "", fmt.Errorf("project has both a %s %s and a %s %s when there should only be one",
			path.Base(candidates[0]), what, path.Base(candidates[1]), what)
	}
	if err != nil {
		return "", err
	}
	if found == "" {
		return candidates[0], nil
	}
	return found, nil
}

func requireFile(t *tree.Tree, rel string) error {
	if !t.IsFile(rel) {
		return fmt.Errorf("%w: %s", ErrMissingArtifact, t.Path(rel))
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// safeFileName turns a remote object name into a portable file name.
func safeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// walkJSON decodes every .json object below dir in lexical order. Other
// files are ignored. A missing dir is not an error.
func walkJSON(t *tree.Tree, dir string, fn func(rel string, doc map[string]any) error) error {
	if !t.IsDir(dir) {
		return nil
	}
	return t.WalkFiles(dir, func(rel string, _ os.FileInfo) error {
		if path.Ext(rel) != ".json" {
			return nil
		}
		data, err := t.ReadFile(rel)
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%s: %w", t.Path(rel), err)
		}
		if doc == nil {
			return fmt.Errorf("%s: expected a JSON object", t.Path(rel))
		}
		return fn(rel, doc)
	})
}

func marshalJSON(doc map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// descriptorAPI is the part of the descriptor store shared by descriptors
// and descriptor templates.
type descriptorAPI struct {
	kind   string
	get    func(ctx context.Context, name string) (string, error)
	create func(ctx context.Context, content string) error
	update func(ctx context.Context, name, content string) error
}

func descriptors(s orchestrator.DescriptorStore) descriptorAPI {
	return descriptorAPI{kind: "Descriptor", get: s.GetDescriptor, create: s.CreateDescriptor, update: s.UpdateDescriptor}
}

func descriptorTemplates(s orchestrator.DescriptorStore) descriptorAPI {
	return descriptorAPI{kind: "Descriptor Template", get: s.GetDescriptorTemplate, create: s.CreateDescriptorTemplate, update: s.UpdateDescriptorTemplate}
}

// pushDescriptor creates or updates the descriptor at rel in the package
// content and returns its name.
func pushDescriptor(ctx context.Context, p *push.Pusher, api descriptorAPI, rel string) (string, error) {
	raw, err := p.Content.ReadFile(rel)
	if err != nil {
		return "", err
	}
	d, err := descriptor.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Content.Path(rel), err)
	}
	name, err := d.Name()
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Content.Path(rel), err)
	}

	p.Journal.Event("Checking for %s %s", api.kind, name)
	_, err = api.get(ctx, name)
	switch {
	case err == nil:
		p.Journal.Event("%s %s already exists, updating", api.kind, name)
		err = api.update(ctx, name, string(raw))
	case errors.Is(err, orchestrator.ErrNotFound):
		p.Journal.Event("Not found, creating %s %s", api.kind, name)
		err = api.create(ctx, string(raw))
	}
	if err != nil {
		return "", fmt.Errorf("pushing %s %s: %w", api.kind, name, err)
	}
	return name, nil
}

// deleteDescriptor removes a descriptor before its package is re-onboarded.
func deleteDescriptor(ctx context.Context, p *push.Pusher, name string) error {
	p.Journal.Event("Removing descriptor %s", name)
	err := p.Stores.Descriptors.DeleteDescriptor(ctx, name)
	if errors.Is(err, orchestrator.ErrNotFound) {
		p.Journal.Event("Descriptor %s not found", name)
		return nil
	}
	return err
}

// descriptorName reads the name of the descriptor at rel.
func descriptorName(t *tree.Tree, rel string) (string, error) {
	d, err := descriptor.Load(t, rel)
	if err != nil {
		return "", err
	}
	name, err := d.Name()
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Path(rel), err)
	}
	return name, nil
}

// noTests is the test result of handlers with no behaviour tests.
func noTests(s *behaviour.Session) behaviour.Suite {
	s.Journal.Event("No tests to execute")
	return behaviour.Suite{}
}

// nothingToPull is the pull of handlers with no pullable content.
func nothingToPull(p *pull.Puller) {
	p.Journal.Event("Nothing to pull")
}
