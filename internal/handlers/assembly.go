package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/mutate"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/pull"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
	"github.com/opmodel/lmctl/internal/validation"
)

// Layout of projects carrying a service descriptor and its behaviour.
const (
	descriptorDir        = "Descriptor"
	behaviourDir         = "Behaviour"
	behaviorDir          = "Behavior"
	assemblyTemplateBase = "assembly-template"
)

// behaviourSet is one directory of behaviour documents.
type behaviourSet struct {
	dir   string
	label string
	// plural is used in events.
	plural string
}

var (
	configurationSet = behaviourSet{dir: "Configurations", label: "Configuration", plural: "configurations"}
	runtimeSet       = behaviourSet{dir: "Runtime", label: "Runtime", plural: "runtime scenarios"}
	testSet          = behaviourSet{dir: "Tests", label: "Test", plural: "tests"}
)

func init() {
	Register(Key{Type: project.TypeAssembly}, func(cfg *project.Config) Handler {
		return &assemblyHandler{cfg: cfg, kind: "assembly", template: true, runtime: true}
	})
	Register(Key{Type: project.TypeType}, func(cfg *project.Config) Handler {
		return &assemblyHandler{cfg: cfg, kind: "type"}
	})
	Register(Key{Type: project.TypeETSINS}, func(cfg *project.Config) Handler {
		return &assemblyHandler{cfg: cfg, kind: "assembly", template: true, runtime: true, etsi: true}
	})
}

// assemblyHandler handles Assembly, Type and ETSI_NS projects.
type assemblyHandler struct {
	cfg *project.Config
	// kind is the descriptor file base name.
	kind     string
	template bool
	runtime  bool
	etsi     bool
}

func (h *assemblyHandler) packagedDescriptor() string {
	return path.Join(descriptorDir, h.kind+".yml")
}

func (h *assemblyHandler) descriptorFile(t *tree.Tree) (string, error) {
	return findOne(t, "file", h.packagedDescriptor(), path.Join(descriptorDir, h.kind+".yaml"))
}

func templateFile(t *tree.Tree) (string, error) {
	return findOne(t, "file",
		path.Join(descriptorDir, assemblyTemplateBase+".yml"),
		path.Join(descriptorDir, assemblyTemplateBase+".yaml"))
}

func behaviourRoot(t *tree.Tree) (string, error) {
	return findOne(t, "directory", behaviourDir, behaviorDir)
}

func (h *assemblyHandler) sets() []behaviourSet {
	if h.runtime {
		return []behaviourSet{configurationSet, runtimeSet, testSet}
	}
	return []behaviourSet{configurationSet, testSet}
}

func (h *assemblyHandler) Validate(v *validation.Validator) error {
	v.Journal.Stage("Validating " + h.kind + " descriptor for " + h.cfg.Name)
	desc, err := h.descriptorFile(v.Source)
	if err != nil {
		v.Error(descriptorDir, "%v", err)
	} else {
		v.Descriptor(desc, false)
	}

	if h.template {
		tmpl, err := templateFile(v.Source)
		switch {
		case err != nil:
			v.Error(descriptorDir, "%v", err)
		case v.Source.IsFile(tmpl):
			v.Journal.Stage("Validating assembly template descriptor for " + h.cfg.Name)
			v.Descriptor(tmpl, true)
		}
	}

	h.validateBehaviour(v)
	if h.etsi {
		validateETSI(v)
	}
	return nil
}

func (h *assemblyHandler) validateBehaviour(v *validation.Validator) {
	v.Journal.Stage("Validating service behaviour for " + h.cfg.Name)
	root, err := behaviourRoot(v.Source)
	if err != nil {
		v.Error(behaviourDir, "%v", err)
		return
	}
	if !v.Source.IsDir(root) {
		v.Journal.Event("No service behaviour found at: %s", v.Source.Path(root))
		return
	}
	for _, set := range h.sets() {
		dir := path.Join(root, set.dir)
		if !v.Source.IsDir(dir) {
			v.Journal.Event("No %s found at: %s", set.plural, v.Source.Path(dir))
			continue
		}
		v.Journal.Event("Checking %s at: %s", set.plural, v.Source.Path(dir))
		checkJSONFiles(v, dir, set.label)
	}
}

// checkJSONFiles records an error for every file below dir that is not a
// parseable .json file.
func checkJSONFiles(v *validation.Validator, dir, label string) {
	err := v.Source.WalkFiles(dir, func(rel string, _ os.FileInfo) error {
		full := v.Source.Path(rel)
		if path.Ext(rel) != ".json" {
			v.Error(rel, "%s [%s]: is not a json file (with a .json extension)", label, full)
			return nil
		}
		data, err := v.Source.ReadFile(rel)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			v.Error(rel, "%s [%s]: does not contain valid JSON: %v", label, full, err)
		}
		return nil
	})
	if err != nil {
		v.Error(dir, "%s [%s]: %v", label, v.Source.Path(dir), err)
	}
}

func (h *assemblyHandler) Stage(s *stage.Stager) error {
	desc, err := h.descriptorFile(s.Source)
	if err != nil {
		return err
	}
	s.Journal.Stage("Staging " + h.kind + " descriptor for " + h.cfg.Name + " at " + s.Source.Path(desc))
	if err := requireFile(s.Source, desc); err != nil {
		return err
	}
	if err := s.StageDescriptor(desc, h.packagedDescriptor(), false); err != nil {
		return err
	}

	if h.template {
		tmpl, err := templateFile(s.Source)
		if err != nil {
			return err
		}
		if s.Source.IsFile(tmpl) {
			s.Journal.Stage("Staging assembly template descriptor for " + h.cfg.Name + " at " + s.Source.Path(tmpl))
			dst := path.Join(descriptorDir, assemblyTemplateBase+".yml")
			if err := s.StageDescriptor(tmpl, dst, true); err != nil {
				return err
			}
		}
	}

	if err := h.stageBehaviour(s); err != nil {
		return err
	}
	if h.etsi {
		return stageETSI(s)
	}
	return nil
}

func (h *assemblyHandler) stageBehaviour(s *stage.Stager) error {
	root, err := behaviourRoot(s.Source)
	if err != nil {
		return err
	}
	s.Journal.Stage("Staging service behaviour for " + h.cfg.Name)
	if !s.Source.IsDir(root) {
		s.Journal.Event("Skipping - no service behaviour found at: %s", s.Source.Path(root))
		return nil
	}
	for _, set := range h.sets() {
		src := path.Join(root, set.dir)
		if !s.Source.IsDir(src) {
			s.Journal.Event("Skipping - no %s found at: %s", set.plural, s.Source.Path(src))
			continue
		}
		s.Journal.Event("Staging %s at: %s", set.plural, s.Source.Path(src))
		err := s.Source.WalkFiles(src, func(rel string, _ os.FileInfo) error {
			if path.Ext(rel) != ".json" {
				return nil
			}
			var m stage.Mutator = mutate.ScenarioStage{Config: s.Config}
			if set == configurationSet {
				m = mutate.ConfigurationStage{Config: s.Config, Index: s.Index, Journal: s.Journal, File: rel}
			}
			dst := path.Join(behaviourDir, set.dir, path.Base(rel))
			if s.Target.IsFile(dst) {
				s.Journal.Warning("%s [%s] replaces another file staged as %s", set.label, s.Source.Path(rel), s.Target.Path(dst))
			}
			return s.StageFile(rel, dst, m)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *assemblyHandler) Compile(c *packaging.Compiler) error {
	c.Journal.Event("Compiling descriptor(s) for: %s", c.Config.FullName())
	if err := c.CompileTree(descriptorDir, descriptorDir); err != nil {
		return err
	}
	if c.Staged.IsDir(behaviourDir) {
		c.Journal.Event("Compiling service behaviour for: %s", c.Config.FullName())
		if err := c.CompileTree(behaviourDir, behaviourDir); err != nil {
			return err
		}
	} else {
		c.Journal.Event("Skipping - nothing to compile at %s", c.Staged.Path(behaviourDir))
	}
	if h.etsi {
		return compileETSI(c)
	}
	return nil
}

func (h *assemblyHandler) Pull(ctx context.Context, p *pull.Puller) error {
	if h.etsi {
		nothingToPull(p)
		return nil
	}
	if err := h.pullDescriptor(ctx, p); err != nil {
		return err
	}
	return h.pullBehaviour(ctx, p)
}

func (h *assemblyHandler) pullDescriptor(ctx context.Context, p *pull.Puller) error {
	name := p.Config.DescriptorName()
	p.Journal.Stage("Pulling " + h.kind + " descriptor for " + h.cfg.Name)
	p.Journal.Event("Pulling descriptor %s", name)
	raw, err := p.Stores.Descriptors.GetDescriptor(ctx, name)
	if errors.Is(err, orchestrator.ErrNotFound) {
		p.Journal.ErrorEvent("Descriptor %s not found", name)
		return nil
	}
	if err != nil {
		return err
	}
	d, err := descriptor.Parse([]byte(raw))
	if err != nil {
		return fmt.Errorf("descriptor %s: %w", name, err)
	}

	rel, err := h.descriptorFile(p.Source)
	if err != nil {
		return err
	}
	d = mutate.DescriptorPull{Index: p.Index, Journal: p.Journal, File: rel}.Apply(d)
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	p.Journal.Event("Saving descriptor %s to %s", name, p.Source.Path(rel))
	return p.Write(rel, data)
}

func (h *assemblyHandler) pullBehaviour(ctx context.Context, p *pull.Puller) error {
	id := p.Config.DescriptorName()
	p.Journal.Stage("Pulling service behaviour for " + h.cfg.Name)
	store := p.Stores.Behaviour
	if _, err := store.GetProject(ctx, id); err != nil {
		if errors.Is(err, orchestrator.ErrNotFound) {
			p.Journal.Event("No Service Behaviour project with name %s found, skipping pull", id)
			return nil
		}
		return err
	}
	root, err := behaviourRoot(p.Source)
	if err != nil {
		return err
	}

	configurations, err := store.ListConfigurations(ctx, id)
	if err != nil {
		return err
	}
	p.Journal.Event("Found %d assembly configuration(s) to pull", len(configurations))
	byID := make(map[string]map[string]any, len(configurations))
	for _, c := range configurations {
		if cid, ok := c[mutate.FieldID].(string); ok {
			byID[cid] = c
		}
		name, _ := c[mutate.FieldName].(string)
		rel := path.Join(root, configurationSet.dir, safeFileName(name)+".json")
		doc := mutate.ConfigurationPull{Config: p.Config, Index: p.Index, Journal: p.Journal, File: rel}.Apply(maps.Clone(c))
		if err := writeJSON(p, rel, doc); err != nil {
			return err
		}
	}

	scenarios, err := store.ListScenarios(ctx, id)
	if err != nil {
		return err
	}
	p.Journal.Event("Found %d scenario(s) to pull", len(scenarios))
	for _, sc := range scenarios {
		set := testSet
		if h.runtime && mutate.HasProvidedActor(sc) {
			set = runtimeSet
		}
		name, _ := sc[mutate.FieldName].(string)
		rel := path.Join(root, set.dir, safeFileName(name)+".json")
		doc := mutate.ScenarioPull{Config: p.Config, Index: p.Index, ConfigurationsByID: byID}.Apply(maps.Clone(sc))
		if err := writeJSON(p, rel, doc); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(p *pull.Puller, rel string, doc map[string]any) error {
	data, err := marshalJSON(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", rel, err)
	}
	p.Journal.Event("Saving %s", p.Source.Path(rel))
	return p.Write(rel, data)
}

func (h *assemblyHandler) Push(ctx context.Context, p *push.Pusher) error {
	p.Journal.Stage("Pushing " + h.kind + " descriptor for " + h.cfg.Name)
	id, err := pushDescriptor(ctx, p, descriptors(p.Stores.Descriptors), h.packagedDescriptor())
	if err != nil {
		return err
	}
	if h.template {
		tmpl := path.Join(descriptorDir, assemblyTemplateBase+".yml")
		if p.Content.IsFile(tmpl) {
			p.Journal.Stage("Pushing assembly template descriptor for " + h.cfg.Name)
			if _, err := pushDescriptor(ctx, p, descriptorTemplates(p.Stores.Descriptors), tmpl); err != nil {
				return err
			}
		}
	}
	return h.pushBehaviour(ctx, p, id)
}

func (h *assemblyHandler) pushBehaviour(ctx context.Context, p *push.Pusher, id string) error {
	p.Journal.Stage("Pushing service behaviour for " + h.cfg.Name)
	if !p.Content.IsDir(behaviourDir) {
		p.Journal.Event("Skipping - nothing to push at %s", p.Content.Path(behaviourDir))
		return nil
	}
	store := p.Stores.Behaviour
	if err := ensureBehaviourProject(ctx, p, id); err != nil {
		return err
	}

	existing, err := store.ListConfigurations(ctx, id)
	if err != nil {
		return err
	}
	err = walkJSON(p.Content, path.Join(behaviourDir, configurationSet.dir), func(_ string, doc map[string]any) error {
		doc[mutate.FieldProjectID] = id
		name, _ := doc[mutate.FieldName].(string)
		p.Journal.Event("Checking for assembly configuration %s in project %s", name, id)
		if match := findByName(existing, name); match != nil {
			p.Journal.Event("Assembly configuration %s already exists, updating", name)
			doc[mutate.FieldID] = match[mutate.FieldID]
			return store.UpdateConfiguration(ctx, doc)
		}
		p.Journal.Event("Not found, creating assembly configuration %s", name)
		return store.CreateConfiguration(ctx, doc)
	})
	if err != nil {
		return err
	}

	configurations, err := store.ListConfigurations(ctx, id)
	if err != nil {
		return err
	}
	scenarios, err := store.ListScenarios(ctx, id)
	if err != nil {
		return err
	}
	swap := mutate.ScenarioPush{Configurations: configurations}
	for _, set := range h.sets()[1:] {
		err := walkJSON(p.Content, path.Join(behaviourDir, set.dir), func(_ string, doc map[string]any) error {
			doc = swap.Apply(doc)
			doc[mutate.FieldProjectID] = id
			name, _ := doc[mutate.FieldName].(string)
			p.Journal.Event("Checking for scenario %s in project %s", name, id)
			if match := findByName(scenarios, name); match != nil {
				p.Journal.Event("Scenario %s already exists, updating", name)
				doc[mutate.FieldID] = match[mutate.FieldID]
				return store.UpdateScenario(ctx, doc)
			}
			p.Journal.Event("Not found, creating scenario %s", name)
			return store.CreateScenario(ctx, doc)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureBehaviourProject(ctx context.Context, p *push.Pusher, id string) error {
	store := p.Stores.Behaviour
	p.Journal.Event("Checking for Service Behaviour project %s", id)
	_, err := store.GetProject(ctx, id)
	if errors.Is(err, orchestrator.ErrNotFound) {
		p.Journal.Event("Not found, creating Service Behaviour project %s", id)
		return store.CreateProject(ctx, orchestrator.Object{mutate.FieldID: id, mutate.FieldName: id})
	}
	return err
}

func findByName(objects []orchestrator.Object, name string) orchestrator.Object {
	for _, o := range objects {
		if n, _ := o[mutate.FieldName].(string); n == name {
			return o
		}
	}
	return nil
}

func (h *assemblyHandler) Test(ctx context.Context, s *behaviour.Session) (behaviour.Suite, error) {
	id, err := descriptorName(s.Content, h.packagedDescriptor())
	if err != nil {
		return behaviour.Suite{}, err
	}
	return s.RunDir(ctx, id, path.Join(behaviourDir, testSet.dir))
}

func (h *assemblyHandler) ListTests(content *tree.Tree) ([]string, error) {
	scenarios, err := behaviour.LoadScenarios(content, path.Join(behaviourDir, testSet.dir))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(scenarios))
	for _, sc := range scenarios {
		if name, ok := sc[mutate.FieldName].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
