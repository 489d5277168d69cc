package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/testutil"
	"github.com/opmodel/lmctl/internal/tree"
)

func resourceProject(rm string) string {
	return `schema: "2.0"
name: db
version: "1.0"
type: Resource
resource-manager: ` + rm + "\n"
}

const dbDescriptor = "name: resource::db::1.0\n"

func brentSources(extra map[string]string) map[string]string {
	files := map[string]string{
		"Definitions/lm/resource.yaml":                   dbDescriptor,
		"Definitions/infrastructure/Openstack/heat.yaml": "heat_template_version: 2013-05-23\n",
		"Lifecycle/ansible/scripts/Install.yaml":         "- hosts: all\n",
	}
	for k, v := range extra {
		files[k] = v
	}
	return files
}

func zipEntries(t *testing.T, data []byte) []string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func loadYAML(t *testing.T, tr *tree.Tree, rel string) map[string]any {
	t.Helper()
	data, err := tr.ReadFile(rel)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	return doc
}

func dig(doc map[string]any, keys ...string) any {
	var cur any = doc
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func TestBrentValidate(t *testing.T) {
	t.Run("brent2.1 requires infrastructure definitions", func(t *testing.T) {
		p := testutil.Project(t, resourceProject("brent2.1"), map[string]string{
			"Definitions/lm/resource.yaml":   dbDescriptor,
			"Lifecycle/ansible/Install.yaml": "- hosts: all\n",
		})

		result, _ := validate(t, p, false)

		assert.Equal(t, []string{
			"No Infrastructure definitions directory found at: /project/Definitions/infrastructure",
		}, findingMessages(result.Errors))
	})

	t.Run("brent allows missing infrastructure definitions", func(t *testing.T) {
		p := testutil.Project(t, resourceProject("brent"), map[string]string{
			"Definitions/lm/resource.yaml":   dbDescriptor,
			"Lifecycle/ansible/Install.yaml": "- hosts: all\n",
		})

		result, _ := validate(t, p, false)

		assert.True(t, result.Valid())
	})

	t.Run("missing lifecycle", func(t *testing.T) {
		p := testutil.Project(t, resourceProject("brent"), map[string]string{
			"Definitions/lm/resource.yaml": dbDescriptor,
		})

		result, _ := validate(t, p, false)

		assert.Equal(t, []string{"No Lifecycle directory found at: /project/Lifecycle"}, findingMessages(result.Errors))
	})
}

func TestBrentValidateWithoutAutocorrect(t *testing.T) {
	p := testutil.Project(t, resourceProject("brent"), brentSources(map[string]string{
		"Lifecycle/lifecycle.mf": "types:\n  - lifecycle_type: ansible\n    infrastructure_type: '*'\n",
	}))

	result, _ := validate(t, p, false)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Found lifecycle manifest [/project/Lifecycle/lifecycle.mf]: this file is no longer supported by the Brent Resource Manager. "+
		"Add this information to the Resource descriptor instead or enable the autocorrect option", result.Errors[0].Message)
	assert.True(t, p.Tree.IsFile("Lifecycle/lifecycle.mf"))
}

func TestBrentAutocorrect(t *testing.T) {
	const (
		lifecycleManifest = "types:\n  - lifecycle_type: shell\n    infrastructure_type: Kubernetes\n"
		toscaTemplate     = "tosca_definitions_version: tosca_simple_yaml_1_0\n"
	)
	p := testutil.DiskProject(t, resourceProject("brent"), map[string]string{
		"Definitions/lm/resource.yaml": `name: resource::db::1.0
infrastructure:
  Openstack:
    template:
      file: tosca.yaml
      template-type: TOSCA
lifecycle:
  - Install
default-driver:
  ansible:
    infrastructure-type:
      - '*'
`,
		"Definitions/infrastructure/tosca.yaml":  toscaTemplate,
		"Lifecycle/lifecycle.mf":                 lifecycleManifest,
		"Lifecycle/ansible/scripts/Install.yaml": "- hosts: all\n",
	})

	result, j := validate(t, p, true)

	require.True(t, result.Valid(), result.Errors)
	assert.Contains(t, messages(j), "Found unsupported lifecycle manifest ["+p.Tree.Path("Lifecycle/lifecycle.mf")+"], attempting to autocorrect by moving contents to Resource descriptor")

	src := p.Tree
	assert.False(t, src.IsFile("Lifecycle/lifecycle.mf"))
	assert.True(t, src.IsFile("Lifecycle/lifecycle.mf.bak"))
	assert.True(t, src.IsFile("Lifecycle/openstack/tosca.yaml"))
	assert.False(t, src.IsDir("Definitions/infrastructure"))
	assert.True(t, src.IsFile("Definitions/infrastructure-bak/tosca.yaml.bak"))
	assert.False(t, src.IsFile("Definitions/lm/resource.yaml.tmp"))

	backup, err := src.ReadFile("Lifecycle/lifecycle.mf.bak")
	require.NoError(t, err)
	assert.Equal(t, lifecycleManifest, string(backup))
	backup, err = src.ReadFile("Definitions/infrastructure-bak/tosca.yaml.bak")
	require.NoError(t, err)
	assert.Equal(t, toscaTemplate, string(backup))

	doc := loadYAML(t, src, "Definitions/lm/resource.yaml")
	assert.Equal(t, []any{"*"}, dig(doc, "default-driver", "ansible", "selector", "infrastructure-type"))
	assert.Nil(t, dig(doc, "default-driver", "ansible", "infrastructure-type"))
	assert.Equal(t, []any{"Kubernetes"}, dig(doc, "default-driver", "shell", "selector", "infrastructure-type"))
	assert.Equal(t, []any{"Openstack"}, dig(doc, "lifecycle", "Create", "drivers", "openstack", "selector", "infrastructure-type"))
	assert.Equal(t, "TOSCA", dig(doc, "lifecycle", "Create", "drivers", "openstack", "properties", "template-type", "value"))
	assert.Equal(t, []any{"Openstack"}, dig(doc, "lifecycle", "Delete", "drivers", "openstack", "selector", "infrastructure-type"))
	assert.Contains(t, dig(doc, "lifecycle"), "Install")
	assert.Equal(t, map[string]any{}, dig(doc, "infrastructure", "Openstack"))

	// A second pass finds nothing left to correct.
	again, j := validate(t, p, false)
	assert.True(t, again.Valid(), again.Errors)
	for _, m := range messages(j) {
		assert.False(t, strings.HasPrefix(m, "Found"), m)
	}
}

func TestBrentAutocorrectFailureKeepsSources(t *testing.T) {
	const lifecycleManifest = "types:\n  - lifecycle_type: ansible\n    infrastructure_type: '*'\n"
	p := testutil.DiskProject(t, resourceProject("brent"), brentSources(map[string]string{
		"Lifecycle/lifecycle.mf": lifecycleManifest,
		// A directory in place of the rewrite target makes the write fail.
		"Definitions/lm/resource.yaml.tmp/blocked": "",
	}))

	result, _ := validate(t, p, true)

	require.False(t, result.Valid())
	var failed []string
	for _, m := range findingMessages(result.Errors) {
		if strings.Contains(m, "Unable to autocorrect this issue") {
			failed = append(failed, m)
		}
	}
	assert.Len(t, failed, 1, result.Errors)

	src := p.Tree
	data, err := src.ReadFile("Definitions/lm/resource.yaml")
	require.NoError(t, err)
	assert.Equal(t, dbDescriptor, string(data))
	data, err = src.ReadFile("Lifecycle/lifecycle.mf")
	require.NoError(t, err)
	assert.Equal(t, lifecycleManifest, string(data))
	assert.False(t, src.IsFile("Lifecycle/lifecycle.mf.bak"))
	assert.False(t, src.IsFile("Definitions/lm/resource.yaml.bak"))
}

func TestBrent21MergesInfrastructureManifest(t *testing.T) {
	p := testutil.DiskProject(t, resourceProject("brent2.1"), map[string]string{
		"Definitions/lm/resource.yaml":                 dbDescriptor,
		"Definitions/infrastructure/infrastructure.mf": `templates:
  - file: heat.yaml
    infrastructure_type: Openstack
discover:
  - file: discover.yaml
    infrastructure_type: Openstack
    template_type: HEAT
`,
		"Definitions/infrastructure/heat.yaml": "heat_template_version: 2013-05-23\n",
		"Lifecycle/ansible/Install.yaml":       "- hosts: all\n",
	})

	result, _ := validate(t, p, true)

	require.True(t, result.Valid(), result.Errors)
	src := p.Tree
	assert.True(t, src.IsFile("Definitions/infrastructure/infrastructure.mf.bak"))
	assert.True(t, src.IsFile("Definitions/infrastructure/heat.yaml"), "brent2.1 keeps its infrastructure directory")
	doc := loadYAML(t, src, "Definitions/lm/resource.yaml")
	assert.Equal(t, "heat.yaml", dig(doc, "infrastructure", "Openstack", "template", "file"))
	assert.Equal(t, "HEAT", dig(doc, "infrastructure", "Openstack", "discover", "template-type"))
}

func TestBrentSelectorsWithoutAutocorrect(t *testing.T) {
	p := testutil.Project(t, resourceProject("brent"), brentSources(map[string]string{
		"Definitions/lm/resource.yaml": `name: resource::db::1.0
lifecycle:
  Install:
    drivers:
      ansible:
        infrastructure-type:
          - Openstack
`,
	}))

	result, _ := validate(t, p, false)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "Move infrastructure-type information under the selector key or enable the autocorrect option")
}

func TestBrentStageAndCompile(t *testing.T) {
	p := testutil.Project(t, resourceProject("brent"), brentSources(nil))

	staged, content := stageAndCompile(t, p)

	assert.True(t, staged.IsFile("Definitions/lm/resource.yaml"))
	assert.True(t, content.IsFile("resource.yaml"))
	data, err := content.ReadFile("db.zip")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Definitions/infrastructure/Openstack/heat.yaml",
		"Definitions/lm/resource.yaml",
		"Lifecycle/ansible/scripts/Install.yaml",
	}, zipEntries(t, data))
}

func TestBrentCompileRequiresLifecycle(t *testing.T) {
	p := testutil.Project(t, resourceProject("brent"), map[string]string{
		"Definitions/lm/resource.yaml": dbDescriptor,
	})
	staged, err := stageRoot(t, p)
	require.NoError(t, err)
	h, err := For(p.Config)
	require.NoError(t, err)

	err = h.Compile(&packaging.Compiler{Config: p.Config, Journal: journal.New(), Staged: staged, Target: testutil.MemTree(t, "/content", nil)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Required directory for Resource package not found: /staging/Lifecycle")
}

func TestETSIVNFCompile(t *testing.T) {
	p := testutil.Project(t, `schema: "2.0"
name: vnf
version: "1.0"
type: ETSI_VNF
resource-manager: brent
`, map[string]string{
		"Definitions/lm/resource.yaml":   "name: resource::vnf::1.0\n",
		"Definitions/etsi/vnfd.yaml":     "tosca_definitions_version: x\n",
		"Lifecycle/ansible/Install.yaml": "- hosts: all\n",
		"MRF.mf":                         "manifest\n",
		"Files/Licenses/LICENSE":         "license\n",
	})

	_, content := stageAndCompile(t, p)

	for _, rel := range []string{"MRF.mf", "Files/Licenses/LICENSE", "Files/vnf.zip", "Definitions/etsi/vnfd.yaml", "resource.yaml"} {
		assert.True(t, content.IsFile(rel), rel)
	}
}

func TestBrentPush(t *testing.T) {
	o := testutil.NewOrchestrator()
	o.Descriptors["resource::db::1.0"] = dbDescriptor
	o.Packages["db"] = []byte("old")
	content := testutil.MemTree(t, "/content", map[string]string{
		"resource.yaml": dbDescriptor,
		"db.zip":        "new",
	})
	cfg := &project.Config{Name: "db", Version: "1.0", Type: project.TypeResource, ResourceManager: project.RMBrent}
	h, err := For(cfg)
	require.NoError(t, err)

	err = h.Push(context.Background(), &push.Pusher{Config: cfg, Journal: journal.New(), Content: content, Stores: o.Stores()})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"DeleteDescriptor resource::db::1.0",
		"DeletePackage db",
		"OnboardPackage db.zip",
		"GetDescriptor resource::db::1.0",
		"CreateDescriptor resource::db::1.0",
	}, o.Calls)
	assert.Equal(t, "new", string(o.Packages["db"]))
}

func TestBrentPushFirstTime(t *testing.T) {
	o := testutil.NewOrchestrator()
	content := testutil.MemTree(t, "/content", map[string]string{
		"resource.yaml": dbDescriptor,
		"db.zip":        "new",
	})
	cfg := &project.Config{Name: "db", Version: "1.0", Type: project.TypeResource, ResourceManager: project.RMBrent}
	h, err := For(cfg)
	require.NoError(t, err)
	j := journal.New()

	require.NoError(t, h.Push(context.Background(), &push.Pusher{Config: cfg, Journal: j, Content: content, Stores: o.Stores()}))

	assert.Contains(t, messages(j), "Descriptor resource::db::1.0 not found")
	assert.Contains(t, messages(j), "No package named db found")
	assert.Contains(t, o.Packages, "db")
}
