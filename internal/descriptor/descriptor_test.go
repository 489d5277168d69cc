package descriptor

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/tree"
)

func TestParse(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		d, err := Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, d.Keys())
		assert.False(t, d.HasName())
	})

	t.Run("null document", func(t *testing.T) {
		d, err := Parse([]byte("~\n"))
		require.NoError(t, err)
		assert.Empty(t, d.Keys())
	})

	t.Run("list document", func(t *testing.T) {
		_, err := Parse([]byte("- a\n- b\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a mapping")
	})

	t.Run("keeps document order", func(t *testing.T) {
		d, err := Parse([]byte("properties: {}\nname: assembly::a::1.0\ndescription: x\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"properties", "name", "description"}, d.Keys())
	})
}

func TestMarshalSortsSections(t *testing.T) {
	in := `custom: value
lifecycle:
  Delete: {}
  Create: {}
  Custom: {}
  Install: {}
properties:
  a:
    type: string
name: resource::r::1.0
`
	d, err := Parse([]byte(in))
	require.NoError(t, err)

	out, err := d.Marshal()
	require.NoError(t, err)

	want := `name: resource::r::1.0
properties:
  a:
    type: string
lifecycle:
  Create: {}
  Install: {}
  Delete: {}
  Custom: {}
custom: value
`
	assert.Equal(t, want, string(out))

	// Marshal leaves the original order untouched.
	assert.Equal(t, []string{"custom", "lifecycle", "properties", "name"}, d.Keys())
}

func TestMarshalRoundTrip(t *testing.T) {
	in := `name: assembly::a::1.0
description: an assembly
properties:
  deploymentLocation:
    type: string
    default: core
composition:
  b:
    type: $lmctl:/contains:/b:/descriptor_name
    quantity: "1"
`
	d, err := Parse([]byte(in))
	require.NoError(t, err)
	out, err := d.Marshal()
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	out2, err := again.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))

	var a, b map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(in), &a))
	require.NoError(t, yaml.Unmarshal(out, &b))
	assert.Equal(t, a, b)
}

func TestMarshalKeepsRepeatedSectionsAndHeadComment(t *testing.T) {
	in := `# Resource descriptor for db

description: first
name: resource::db::1.0
description: second
`
	d, err := Parse([]byte(in))
	require.NoError(t, err)

	out, err := d.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# Resource descriptor for db\n"), string(out))

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "description", "description"}, again.Keys())
	var descriptions []string
	again.Range(func(key string, value *yaml.Node) {
		if key == KeyDescription {
			descriptions = append(descriptions, value.Value)
		}
	})
	assert.Equal(t, []string{"first", "second"}, descriptions)

	out2, err := again.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestName(t *testing.T) {
	d := New()
	_, err := d.Name()
	require.ErrorIs(t, err, ErrNoName)

	require.NoError(t, d.AddProperty("a", Property{Type: "string"}))
	d.SetName("resource::r::2.0")
	assert.Equal(t, []string{"name", "properties"}, d.Keys())

	name, err := d.Name()
	require.NoError(t, err)
	assert.Equal(t, "resource::r::2.0", name)

	version, err := d.Version()
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)

	d.SetName("resource::r::3.0")
	assert.Equal(t, []string{"name", "properties"}, d.Keys())

	d.RemoveName()
	assert.False(t, d.HasName())
}

func TestVersionShortName(t *testing.T) {
	d := New()
	d.SetName("resource::r")
	_, err := d.Version()
	require.Error(t, err)
}

func TestParseName(t *testing.T) {
	n, err := ParseName("assembly::net::1.0")
	require.NoError(t, err)
	assert.Equal(t, Name{Type: TypeAssembly, Name: "net", Version: "1.0"}, n)
	assert.Equal(t, "assembly::net::1.0", n.String())

	_, err = ParseName("assembly::net")
	require.Error(t, err)
}

func TestInsertLifecycle(t *testing.T) {
	build := func(phases ...string) string {
		d := New()
		for _, p := range phases {
			require.NoError(t, d.InsertLifecycle(p, nil, nil))
		}
		out, err := d.Marshal()
		require.NoError(t, err)
		return string(out)
	}

	a := build("Delete", "Install", "Create")
	b := build("Create", "Delete", "Install")
	assert.Equal(t, a, b)
	assert.Equal(t, "lifecycle:\n  Create: {}\n  Install: {}\n  Delete: {}\n", a)
}

func TestInsertLifecycleConvertsList(t *testing.T) {
	d, err := Parse([]byte("lifecycle:\n  - Install\n  - Start\n"))
	require.NoError(t, err)

	drivers := map[string]any{
		"openstack": map[string]any{
			"selector": map[string]any{"infrastructure-type": []string{"Openstack"}},
		},
	}
	require.NoError(t, d.InsertLifecycle("Create", nil, drivers))

	lifecycle := d.Lifecycle()
	assert.Equal(t, []string{"Create", "Install", "Start"}, lifecycle.Keys())

	create, ok := lifecycle.Map("Create")
	require.True(t, ok)
	openstack, ok := create.EnsureMap("drivers").Map("openstack")
	require.True(t, ok)
	seq := openstack.EnsureMap("selector").EnsureSeq("infrastructure-type")
	assert.True(t, SeqContains(seq, "Openstack"))
}

func TestScaffoldHelpers(t *testing.T) {
	d := New()
	d.SetName("resource::r::1.0")
	d.InsertInfrastructureTemplate("Openstack", "example.yaml", "HEAT")
	d.InsertInfrastructureDiscover("Openstack", "discover.yaml", "")
	d.InsertDefaultDriver("ansible", nil)
	require.NoError(t, d.AddProperty("vnfdId", Property{Description: "the VNFD id", Type: "string", Required: true}))

	out, err := d.Marshal()
	require.NoError(t, err)

	want := `name: resource::r::1.0
properties:
  vnfdId:
    description: the VNFD id
    type: string
    required: true
infrastructure:
  Openstack:
    template:
      file: example.yaml
      template-type: HEAT
    discover:
      file: discover.yaml
default-driver:
  ansible:
    selector:
      infrastructure-type:
        - '*'
`
	assert.Equal(t, want, string(out))
}

func TestEntries(t *testing.T) {
	d, err := Parse([]byte(`composition:
  a:
    type: x
  b: broken
references:
  c:
    type: y
`))
	require.NoError(t, err)

	comp := d.Entries(KeyComposition)
	require.Len(t, comp, 1)
	assert.Equal(t, "a", comp[0].Key)
	assert.Equal(t, "x", comp[0].String("type"))

	refs := d.Entries(KeyReferences)
	require.Len(t, refs, 1)
	assert.Empty(t, d.Entries(KeyRelationships))
}

func TestLoadSave(t *testing.T) {
	root := tree.New(memfs.New(), "/project")
	require.NoError(t, root.WriteFile("Descriptor/assembly.yml", []byte("description: d\nname: assembly::a::1.0\n")))

	d, err := Load(root, "Descriptor/assembly.yml")
	require.NoError(t, err)
	d.SetName("assembly::a::2.0")
	require.NoError(t, Save(root, "Descriptor/assembly.yml", d))

	data, err := root.ReadFile("Descriptor/assembly.yml")
	require.NoError(t, err)
	assert.Equal(t, "name: assembly::a::2.0\ndescription: d\n", string(data))

	_, err = Load(root, "Descriptor/missing.yml")
	require.Error(t, err)
}
