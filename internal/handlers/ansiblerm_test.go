package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/push"
	"github.com/opmodel/lmctl/internal/testutil"
)

func ansibleSources() map[string]string {
	return map[string]string{
		"descriptor/db.yml":     dbDescriptor,
		"lifecycle/Install.yml": "- hosts: all\n",
		"tests/smoke.yml":       "- hosts: all\n",
		"Meta-Inf/manifest.MF":  "name: placeholder\nresource-manager: ansible\n",
	}
}

func TestManifestStage(t *testing.T) {
	out, err := manifestStage{name: "db", version: "1.0"}.Apply([]byte("name: placeholder\nresource-manager: ansible\nversion: 0.1\n"))
	require.NoError(t, err)
	assert.Equal(t, "name: db\nversion: 1.0\nresource-manager: ansible\n", string(out))
}

func TestManifestStageKeepsNonNumericVersion(t *testing.T) {
	out, err := manifestStage{name: "db", version: "1.0-rc1"}.Apply([]byte("resource-manager: ansible\n"))
	require.NoError(t, err)
	assert.Equal(t, "name: db\nversion: 1.0-rc1\nresource-manager: ansible\n", string(out))
}

func TestAnsibleValidate(t *testing.T) {
	p := testutil.Project(t, resourceProject("ansible-rm"), map[string]string{
		"descriptor/db.yml": dbDescriptor,
	})

	result, _ := validate(t, p, false)

	assert.Equal(t, []string{
		"No lifecycle sources found at: /project/lifecycle",
		"No manifest found at: /project/Meta-Inf/manifest.MF",
	}, findingMessages(result.Errors))
}

func TestAnsibleStageAndCompile(t *testing.T) {
	p := testutil.Project(t, resourceProject("ansiblerm"), ansibleSources())

	staged, content := stageAndCompile(t, p)

	manifest, err := staged.ReadFile("Meta-Inf/manifest.MF")
	require.NoError(t, err)
	assert.Equal(t, "name: db\nversion: 1.0\nresource-manager: ansible\n", string(manifest))

	assert.True(t, content.IsFile("db.yml"))
	data, err := content.ReadFile("db.csar")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"descriptor/db.yml",
		"lifecycle/Install.yml",
		"tests/smoke.yml",
		"Meta-Inf/manifest.MF",
	}, zipEntries(t, data))
}

func TestAnsibleStageMissingManifest(t *testing.T) {
	p := testutil.Project(t, resourceProject("ansible-rm"), map[string]string{
		"descriptor/db.yml":     dbDescriptor,
		"lifecycle/Install.yml": "- hosts: all\n",
	})

	_, err := stageRoot(t, p)

	require.ErrorIs(t, err, ErrMissingArtifact)
}

func TestAnsiblePush(t *testing.T) {
	o := testutil.NewOrchestrator()
	o.Descriptors["resource::db::1.0"] = dbDescriptor
	content := testutil.MemTree(t, "/content", map[string]string{
		"db.yml":  dbDescriptor,
		"db.csar": "csar",
	})
	cfg := &project.Config{Name: "db", Version: "1.0", Type: project.TypeResource, ResourceManager: project.RMAnsible}
	h, err := For(cfg)
	require.NoError(t, err)
	j := journal.New()

	require.NoError(t, h.Push(context.Background(), &push.Pusher{Config: cfg, Journal: j, Content: content, Stores: o.Stores()}))

	assert.Equal(t, []string{
		"DeleteDescriptor resource::db::1.0",
		"DeletePackage db",
		"OnboardPackage db.csar",
	}, o.Calls)
	assert.Equal(t, "csar", string(o.Packages["db.csar"]))
	assert.Contains(t, messages(j), "Pushing db (version: 1.0) CSAR to ansible-rm")
}
