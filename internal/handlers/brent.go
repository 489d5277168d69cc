package handlers

import (
	"context"
	"errors"
	"path"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/pull"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/tree"
	"github.com/opmodel/lmctl/internal/validation"
)

// Layout of Brent Resource projects.
const (
	definitionsDir         = "Definitions"
	infrastructureDir      = "Definitions/infrastructure"
	infrastructureManifest = "Definitions/infrastructure/infrastructure.mf"
	lmDir                  = "Definitions/lm"
	lifecycleDir           = "Lifecycle"
	lifecycleManifest      = "Lifecycle/lifecycle.mf"
	resourceDescriptor     = "Definitions/lm/resource.yaml"
	rootResourceDescriptor = "resource.yaml"
)

func init() {
	Register(Key{Type: project.TypeResource, ResourceManager: project.RMBrent}, func(cfg *project.Config) Handler {
		return &brentHandler{cfg: cfg, legacy: true}
	})
	Register(Key{Type: project.TypeResource, ResourceManager: project.RMBrent21}, func(cfg *project.Config) Handler {
		return &brentHandler{cfg: cfg}
	})
	Register(Key{Type: project.TypeETSIVNF}, func(cfg *project.Config) Handler {
		return &brentHandler{cfg: cfg, legacy: true, etsi: true}
	})
}

// brentHandler handles Resource projects for the Brent resource manager and
// ETSI_VNF projects, which carry a Brent Resource package in Files/.
type brentHandler struct {
	cfg *project.Config
	// legacy enables the full set of corrections for formats the current
	// resource manager no longer accepts. brent2.1 projects only have their
	// manifests merged.
	legacy bool
	etsi   bool
}

func (h *brentHandler) descriptorFile(t *tree.Tree) (string, error) {
	return findOne(t, "file", resourceDescriptor, path.Join(lmDir, "resource.yml"))
}

// packageFile is where the compiled Resource package lives in the content.
func (h *brentHandler) packageFile() string {
	name := h.cfg.FullName() + ".zip"
	if h.etsi {
		return path.Join(etsiFilesDir, name)
	}
	return name
}

func (h *brentHandler) Validate(v *validation.Validator) error {
	v.Journal.Stage("Validating Resource descriptor for " + h.cfg.Name)
	desc, err := h.descriptorFile(v.Source)
	if err != nil {
		v.Error(lmDir, "%v", err)
		return nil
	}
	v.Descriptor(desc, false)

	v.Journal.Stage("Validating Resource package sources for " + h.cfg.Name)
	if v.Require(definitionsDir, "Definitions directory") {
		if h.legacy {
			if v.Source.IsDir(infrastructureDir) {
				v.Journal.Event("Infrastructure definitions directory found at: %s", v.Source.Path(infrastructureDir))
			}
		} else {
			v.Require(infrastructureDir, "Infrastructure definitions directory")
		}
	}
	v.Require(lifecycleDir, "Lifecycle directory")
	if h.etsi {
		validateETSI(v)
	}

	a := &autocorrector{v: v, descriptor: desc}
	if h.legacy {
		a.run()
	} else {
		a.manifests()
	}
	return nil
}

func (h *brentHandler) Stage(s *stage.Stager) error {
	desc, err := h.descriptorFile(s.Source)
	if err != nil {
		return err
	}
	if h.etsi {
		if err := stageETSI(s); err != nil {
			return err
		}
		s.Journal.Event("Staging directory %s", s.Source.Path(definitionsDir))
		if s.Source.IsDir(definitionsDir) {
			if err := s.StageTree(definitionsDir, definitionsDir); err != nil {
				return err
			}
		}
	}

	s.Journal.Stage("Staging Resource descriptor for " + h.cfg.Name + " at " + s.Source.Path(desc))
	if err := requireFile(s.Source, desc); err != nil {
		return err
	}
	if err := s.StageDescriptor(desc, resourceDescriptor, false); err != nil {
		return err
	}

	s.Journal.Stage("Staging Resource package sources for " + h.cfg.Name)
	for _, dir := range []string{infrastructureDir, lifecycleDir} {
		if !s.Source.IsDir(dir) {
			s.Journal.Event("Skipping - no directory found at: %s", s.Source.Path(dir))
			continue
		}
		s.Journal.Event("Staging directory %s", s.Source.Path(dir))
		if err := s.StageTree(dir, dir); err != nil {
			return err
		}
	}
	return nil
}

func (h *brentHandler) Compile(c *packaging.Compiler) error {
	if h.etsi {
		if err := compileETSI(c); err != nil {
			return err
		}
		if err := c.CompileTree(definitionsDir, definitionsDir); err != nil {
			return err
		}
	}
	pkg := h.packageFile()
	c.Journal.Event("Creating Resource package for %s: %s", c.Config.FullName(), c.Target.Path(pkg))
	err := c.Zip(pkg,
		packaging.ZipSource{Dir: definitionsDir},
		packaging.ZipSource{Dir: lifecycleDir},
	)
	if err != nil {
		return err
	}
	return c.CompileFile(resourceDescriptor, rootResourceDescriptor)
}

func (h *brentHandler) Pull(_ context.Context, p *pull.Puller) error {
	nothingToPull(p)
	return nil
}

func (h *brentHandler) Push(ctx context.Context, p *push.Pusher) error {
	name, err := descriptorName(p.Content, rootResourceDescriptor)
	if err != nil {
		return err
	}
	pkg := h.packageFile()
	p.Journal.Stage("Pushing Resource package " + name)
	if err := deleteDescriptor(ctx, p, name); err != nil {
		return err
	}
	if err := onboard(ctx, p, pkg, h.cfg.FullName()); err != nil {
		return err
	}
	_, err = pushDescriptor(ctx, p, descriptors(p.Stores.Descriptors), rootResourceDescriptor)
	return err
}

// onboard replaces the Resource package named name with the file at rel.
func onboard(ctx context.Context, p *push.Pusher, rel, name string) error {
	store := p.Stores.Packages
	if err := store.DeletePackage(ctx, name); err != nil {
		if !errors.Is(err, orchestrator.ErrNotFound) {
			return err
		}
		p.Journal.Event("No package named %s found", name)
	}
	f, err := p.Content.Open(rel)
	if err != nil {
		return err
	}
	defer f.Close()
	p.Journal.Event("Onboarding package %s", p.Content.Path(rel))
	return store.OnboardPackage(ctx, path.Base(rel), f)
}

func (h *brentHandler) Test(_ context.Context, s *behaviour.Session) (behaviour.Suite, error) {
	return noTests(s), nil
}

func (h *brentHandler) ListTests(_ *tree.Tree) ([]string, error) {
	return nil, nil
}
