package mutate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/reference"
)

const serviceProject = `schema: "2.0"
name: root
version: "1.0"
type: Assembly
contains:
  - name: db
    type: Resource
    resource-manager: brent
`

const dbRef = "$lmctl:/contains:/db:/descriptor_name"

func setup(t *testing.T) (*project.Config, *project.Index, *journal.Journal) {
	t.Helper()
	cfg, err := project.Parse([]byte(serviceProject))
	require.NoError(t, err)
	return cfg, project.NewIndex(cfg), journal.New()
}

func parse(t *testing.T, src string) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.Parse([]byte(src))
	require.NoError(t, err)
	return d
}

func TestDescriptorStage(t *testing.T) {
	cfg, idx, j := setup(t)

	t.Run("names and resolves", func(t *testing.T) {
		d := parse(t, `description: svc
composition:
  db:
    type: `+dbRef+`
references:
  net:
    type: resource::external::1.0
`)
		out := DescriptorStage{Config: cfg, Index: idx, Journal: j}.Apply(d, false)

		name, err := out.Name()
		require.NoError(t, err)
		assert.Equal(t, "assembly::root::1.0", name)
		assert.Equal(t, "name", out.Keys()[0])
		assert.Equal(t, "resource::db-root::1.0", out.Entries(descriptor.KeyComposition)[0].String("type"))
		assert.Equal(t, "resource::external::1.0", out.Entries(descriptor.KeyReferences)[0].String("type"))
	})

	t.Run("template name", func(t *testing.T) {
		out := DescriptorStage{Config: cfg, Index: idx, Journal: j}.Apply(parse(t, "description: x\n"), true)
		name, err := out.Name()
		require.NoError(t, err)
		assert.Equal(t, "assembly-template::root::1.0", name)
	})

	t.Run("keeps existing name", func(t *testing.T) {
		out := DescriptorStage{Config: cfg, Index: idx, Journal: j}.Apply(parse(t, "name: assembly::custom::2.0\n"), false)
		name, _ := out.Name()
		assert.Equal(t, "assembly::custom::2.0", name)
	})

	t.Run("unresolvable reference is kept", func(t *testing.T) {
		jj := journal.New()
		d := parse(t, "composition:\n  x:\n    type: $lmctl:/contains:/missing:/descriptor_name\n")
		out := DescriptorStage{Config: cfg, Index: idx, Journal: jj, File: "Descriptor/assembly.yml"}.Apply(d, false)

		assert.Equal(t, "$lmctl:/contains:/missing:/descriptor_name", out.Entries(descriptor.KeyComposition)[0].String("type"))
		diags := jj.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, "composition.x.type", diags[0].Field)
		assert.Equal(t, "Descriptor/assembly.yml", diags[0].File)
		assert.ErrorIs(t, diags[0].Err, reference.ErrNotResolvable)
	})
}

func TestDescriptorPull(t *testing.T) {
	_, idx, _ := setup(t)
	j := journal.New()

	d := parse(t, `name: assembly::root::1.0
composition:
  db:
    type: resource::db-root::1.0
  ext:
    type: resource::external::1.0
`)
	out := DescriptorPull{Index: idx, Journal: j}.Apply(d)

	assert.False(t, out.HasName())
	comp := out.Entries(descriptor.KeyComposition)
	assert.Equal(t, dbRef, comp[0].String("type"))
	assert.Equal(t, "resource::external::1.0", comp[1].String("type"))
	require.Len(t, j.Diagnostics(), 1)
}

func TestStageThenPullRestoresReferences(t *testing.T) {
	cfg, idx, j := setup(t)
	src := "composition:\n  db:\n    type: " + dbRef + "\n"

	staged := DescriptorStage{Config: cfg, Index: idx, Journal: j}.Apply(parse(t, src), false)
	pulled := DescriptorPull{Index: idx, Journal: j}.Apply(staged)

	out, err := pulled.Marshal()
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
	assert.Empty(t, j.Diagnostics())
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestConfigurationStage(t *testing.T) {
	cfg, idx, j := setup(t)
	m := ConfigurationStage{Config: cfg, Index: idx, Journal: j}

	t.Run("deprecated ref", func(t *testing.T) {
		out, err := m.Apply([]byte(`{"name": "c1", "descriptorNameRef": "$lmctl.descriptor_name"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"name": "c1", "projectId": "assembly::root::1.0", "descriptorName": "assembly::root::1.0",
		}, decode(t, out))
		assert.Contains(t, string(out), "\n  \"name\": \"c1\"")
	})

	t.Run("reference", func(t *testing.T) {
		out, err := m.Apply([]byte(`{"descriptorName": "` + dbRef + `"}`))
		require.NoError(t, err)
		assert.Equal(t, "resource::db-root::1.0", decode(t, out)["descriptorName"])
	})

	t.Run("literal", func(t *testing.T) {
		out, err := m.Apply([]byte(`{"descriptorName": "assembly::other::1.0"}`))
		require.NoError(t, err)
		assert.Equal(t, "assembly::other::1.0", decode(t, out)["descriptorName"])
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := m.Apply([]byte(`[1,2]`))
		require.Error(t, err)
	})
}

func TestScenarioStage(t *testing.T) {
	cfg, _, _ := setup(t)
	out, err := ScenarioStage{Config: cfg}.Apply([]byte(`{"name": "s1", "projectId": "old"}`))
	require.NoError(t, err)
	assert.Equal(t, "assembly::root::1.0", decode(t, out)["projectId"])
}

func TestConfigurationPull(t *testing.T) {
	cfg, idx, j := setup(t)
	doc := map[string]any{"id": "123", "name": "c1", "projectId": "assembly::root::1.0", "descriptorName": "resource::db-root::1.0"}

	out := ConfigurationPull{Config: cfg, Index: idx, Journal: j}.Apply(doc)
	assert.Equal(t, map[string]any{
		"name": "c1", "projectId": "$lmctl:/descriptor_name", "descriptorName": dbRef,
	}, out)
}

func TestScenarioPull(t *testing.T) {
	cfg, idx, _ := setup(t)
	doc := map[string]any{
		"id":        "s-1",
		"projectId": "assembly::root::1.0",
		"assemblyActors": []any{
			map[string]any{"instanceName": "a", "provided": false, "baseConfigurationId": "c-1", "assemblyConfigurationId": nil},
			map[string]any{"instanceName": "b", "provided": false, "assemblyConfigurationId": "unknown"},
			map[string]any{"instanceName": "c", "provided": true, "baseConfigurationId": "c-1"},
		},
	}
	byID := map[string]map[string]any{"c-1": {"id": "c-1", "name": "base"}}

	out := ScenarioPull{Config: cfg, Index: idx, ConfigurationsByID: byID}.Apply(doc)

	assert.NotContains(t, out, "id")
	assert.Equal(t, "$lmctl:/descriptor_name", out["projectId"])
	actors := out["assemblyActors"].([]any)
	assert.Equal(t, map[string]any{"instanceName": "a", "provided": false, "baseConfigurationRef": "base", "assemblyConfigurationId": nil}, actors[0])
	assert.Equal(t, map[string]any{"instanceName": "b", "provided": false, "assemblyConfigurationRef": "unknown"}, actors[1])
	assert.Equal(t, map[string]any{"instanceName": "c", "provided": true, "baseConfigurationId": "c-1"}, actors[2])
}

func TestScenarioPush(t *testing.T) {
	doc := map[string]any{
		"assemblyActors": []any{
			map[string]any{"provided": false, "baseConfigurationRef": "base", "assemblyConfigurationRef": "missing"},
			map[string]any{"provided": true, "baseConfigurationRef": "base"},
		},
	}
	configs := []map[string]any{{"id": "c-9", "name": "base"}}

	out := ScenarioPush{Configurations: configs}.Apply(doc)
	actors := out["assemblyActors"].([]any)
	assert.Equal(t, map[string]any{"provided": false, "baseConfigurationId": "c-9", "assemblyConfigurationId": "missing"}, actors[0])
	assert.Equal(t, map[string]any{"provided": true, "baseConfigurationRef": "base"}, actors[1])
}

func TestHasProvidedActor(t *testing.T) {
	assert.False(t, HasProvidedActor(map[string]any{}))
	assert.True(t, HasProvidedActor(map[string]any{"assemblyActors": []any{map[string]any{"provided": true}}}))
}
