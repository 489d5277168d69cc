package handlers

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/pull"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
	"github.com/opmodel/lmctl/internal/validation"
)

// Layout of ansible-rm Resource projects. The same layout is used in the CSAR.
const (
	ansibleDescriptorDir = "descriptor"
	ansibleLifecycleDir  = "lifecycle"
	ansibleTestsDir      = "tests"
	ansibleMetaInfDir    = "Meta-Inf"
	ansibleManifest      = "Meta-Inf/manifest.MF"
)

func init() {
	Register(Key{Type: project.TypeResource, ResourceManager: project.RMAnsible}, func(cfg *project.Config) Handler {
		return &ansibleHandler{cfg: cfg}
	})
}

// ansibleHandler handles Resource projects for the ansible resource manager.
type ansibleHandler struct {
	cfg *project.Config
}

func (h *ansibleHandler) csarFile() string { return h.cfg.FullName() + ".csar" }

func (h *ansibleHandler) rootDescriptor() string { return h.cfg.FullName() + ".yml" }

func (h *ansibleHandler) Validate(v *validation.Validator) error {
	v.Journal.Stage("Validating Resource descriptor for " + h.cfg.Name)
	v.Descriptor(path.Join(ansibleDescriptorDir, h.cfg.Name+".yml"), false)
	v.Journal.Stage("Validating Resource sources for " + h.cfg.Name)
	v.Require(ansibleLifecycleDir, "lifecycle sources")
	v.Require(ansibleManifest, "manifest")
	return nil
}

func (h *ansibleHandler) Stage(s *stage.Stager) error {
	src := path.Join(ansibleDescriptorDir, h.cfg.Name+".yml")
	s.Journal.Event("Staging resource descriptor for %s at %s", h.cfg.FullName(), s.Source.Path(src))
	if err := requireFile(s.Source, src); err != nil {
		return err
	}
	if err := s.StageDescriptor(src, path.Join(ansibleDescriptorDir, h.rootDescriptor()), false); err != nil {
		return err
	}
	for _, dir := range []string{ansibleLifecycleDir, ansibleTestsDir, ansibleMetaInfDir} {
		if s.Source.IsDir(dir) {
			s.Journal.Event("Staging directory %s", s.Source.Path(dir))
			if err := s.StageTree(dir, dir); err != nil {
				return err
			}
		}
	}
	if err := requireFile(s.Source, ansibleManifest); err != nil {
		return err
	}
	return s.StageFile(ansibleManifest, ansibleManifest, manifestStage{name: h.cfg.FullName(), version: h.cfg.EffectiveVersion()})
}

// manifestStage names a CSAR manifest after the package it is staged into.
type manifestStage struct {
	name    string
	version string
}

// Apply writes name and version first, followed by the remaining keys of
// the original manifest in their original order.
func (m manifestStage) Apply(content []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	original := descriptor.NewMap()
	if len(doc.Content) > 0 {
		if root, ok := descriptor.AsMap(doc.Content[0]); ok {
			original = root
		}
	}

	out := descriptor.NewMap()
	out.Set("name", descriptor.Scalar(m.name))
	out.Set("version", versionNode(m.version))
	original.Range(func(key string, value *yaml.Node) {
		if key != "name" && key != "version" {
			out.Set(key, value)
		}
	})

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out.Node()); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// versionNode writes numeric versions as numbers.
func versionNode(version string) *yaml.Node {
	n := descriptor.Scalar(version)
	if _, err := strconv.ParseFloat(version, 64); err == nil {
		n.Tag = "!!float"
	}
	return n
}

func (h *ansibleHandler) Compile(c *packaging.Compiler) error {
	c.Journal.Event("Creating CSAR for Resource %s: %s", h.cfg.Name, h.csarFile())
	err := c.Zip(h.csarFile(),
		packaging.ZipSource{Dir: ansibleDescriptorDir},
		packaging.ZipSource{Dir: ansibleLifecycleDir},
		packaging.ZipSource{Dir: ansibleTestsDir, Optional: true},
		packaging.ZipSource{Dir: ansibleMetaInfDir},
	)
	if err != nil {
		return err
	}
	return c.CompileFile(path.Join(ansibleDescriptorDir, h.rootDescriptor()), h.rootDescriptor())
}

func (h *ansibleHandler) Pull(_ context.Context, p *pull.Puller) error {
	nothingToPull(p)
	return nil
}

func (h *ansibleHandler) Push(ctx context.Context, p *push.Pusher) error {
	name, err := descriptorName(p.Content, h.rootDescriptor())
	if err != nil {
		return err
	}
	p.Journal.Stage(fmt.Sprintf("Pushing %s (version: %s) CSAR to ansible-rm", h.cfg.FullName(), h.cfg.EffectiveVersion()))
	if err := deleteDescriptor(ctx, p, name); err != nil {
		return err
	}
	return onboard(ctx, p, h.csarFile(), h.cfg.FullName())
}

func (h *ansibleHandler) Test(_ context.Context, s *behaviour.Session) (behaviour.Suite, error) {
	return noTests(s), nil
}

func (h *ansibleHandler) ListTests(_ *tree.Tree) ([]string, error) {
	return nil, nil
}
