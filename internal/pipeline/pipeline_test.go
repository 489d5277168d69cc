package pipeline

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/descriptor"
	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/testutil"
)

const rootProject = `schema: "2.0"
name: root
version: "1.0"
contains:
  - name: db
    type: Resource
    resource-manager: brent
`

const rootDescriptorName = "assembly::root::1.0"

func sources() map[string]string {
	return map[string]string{
		"Descriptor/assembly.yml": `description: svc
composition:
  db:
    type: $lmctl:/contains:/db:/descriptor_name
`,
		"Behaviour/Configurations/base.json": `{"name": "base", "descriptorName": "$lmctl:/descriptor_name", "properties": {}}`,
		"Behaviour/Tests/smoke.json":         `{"name": "smoke", "assemblyActors": [{"instanceName": "svc", "assemblyConfigurationRef": "base"}], "stages": []}`,

		"Contains/db/Definitions/lm/resource.yaml":   "description: db\n",
		"Contains/db/Lifecycle/ansible/Install.yaml": "- hosts: all\n",
	}
}

func newProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	return testutil.Project(t, rootProject, files)
}

func TestBuild(t *testing.T) {
	p := newProject(t, sources())

	result, err := NewPipeline(journal.New(), orchestrator.Stores{}).Build(p, Options{})
	require.NoError(t, err)
	assert.True(t, result.Validation.Valid())
	assert.Equal(t, "/project/_lmctl/build/root-1.0.tgz", result.Package)
	assert.Empty(t, result.Diagnostics)

	build := p.Workspace().Sub(packaging.BuildDir)
	a, err := packaging.Open(build, path.Base(result.Package))
	require.NoError(t, err)
	assert.Equal(t, []packaging.MetaEntry{
		{Name: "db", Type: project.TypeResource, ResourceManager: "brent", Directory: "db"},
	}, a.Meta.Contains)

	content, err := a.Extract(p.Workspace().Sub("extracted"))
	require.NoError(t, err)
	d, err := descriptor.Load(content, "Descriptor/assembly.yml")
	require.NoError(t, err)
	name, err := d.Name()
	require.NoError(t, err)
	assert.Equal(t, rootDescriptorName, name)
	assert.Equal(t, "resource::db-root::1.0", d.Entries(descriptor.KeyComposition)[0].String("type"))
	assert.True(t, content.IsFile("Contains/db/db-root.zip"))
	assert.True(t, content.IsFile("Contains/db/resource.yaml"))

	assert.False(t, p.Workspace().IsDir("staging"), "staging is removed once packaged")
	data, err := p.Tree.ReadFile("Descriptor/assembly.yml")
	require.NoError(t, err)
	assert.Equal(t, sources()["Descriptor/assembly.yml"], string(data))
}

func TestBuildStopsOnValidationErrors(t *testing.T) {
	files := sources()
	delete(files, "Contains/db/Lifecycle/ansible/Install.yaml")
	p := newProject(t, files)
	stale := p.Workspace().Sub(packaging.BuildDir)
	require.NoError(t, stale.WriteFile("root-1.0.tgz", []byte("previous build")))

	result, err := NewPipeline(journal.New(), orchestrator.Stores{}).Build(p, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)
	var vErr *ValidationFailedError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Result.Errors, 1)
	assert.Equal(t, "No Lifecycle directory found at: /project/Contains/db/Lifecycle", vErr.Result.Errors[0].Message)
	assert.Equal(t, "db", vErr.Result.Errors[0].Project)
	assert.NotNil(t, result)
	assert.False(t, p.Workspace().IsDir("build"))
}

func TestBuildReportsUnresolvedReferences(t *testing.T) {
	files := sources()
	files["Descriptor/assembly.yml"] = "composition:\n  cache:\n    type: $lmctl:/contains:/cache:/descriptor_name\n"
	p := newProject(t, files)

	result, err := NewPipeline(journal.New(), orchestrator.Stores{}).Build(p, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "$lmctl:/contains:/cache:/descriptor_name", result.Diagnostics[0].Reference)
}

func TestPushRequiresEnvironment(t *testing.T) {
	p := newProject(t, sources())

	_, err := NewPipeline(journal.New(), orchestrator.Stores{}).Push(context.Background(), p, Options{})

	assert.ErrorIs(t, err, ErrNoEnvironment)
}

func TestPush(t *testing.T) {
	p := newProject(t, sources())
	o := testutil.NewOrchestrator()

	result, err := NewPipeline(journal.New(), o.Stores()).Push(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, "/project/_lmctl/build/root-1.0.tgz", result.Package)

	assert.Contains(t, o.Descriptors, "resource::db-root::1.0")
	assert.Contains(t, o.Descriptors, rootDescriptorName)
	assert.Contains(t, o.Packages, "db-root")
	assert.Contains(t, o.Projects, rootDescriptorName)

	configs := o.Configurations[rootDescriptorName]
	require.Len(t, configs, 1)
	assert.Equal(t, rootDescriptorName, configs[0]["descriptorName"])

	scenarios := o.Scenarios[rootDescriptorName]
	require.Len(t, scenarios, 1)
	actor := scenarios[0]["assemblyActors"].([]any)[0].(map[string]any)
	assert.Equal(t, configs[0]["id"], actor["assemblyConfigurationId"])
	assert.NotContains(t, actor, "assemblyConfigurationRef")

	// The resource is pushed before the assembly that composes it.
	assert.Less(t, indexOf(o.Calls, "CreateDescriptor resource::db-root::1.0"), indexOf(o.Calls, "CreateDescriptor "+rootDescriptorName))
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func TestTest(t *testing.T) {
	p := newProject(t, sources())
	o := testutil.NewOrchestrator()

	result, err := NewPipeline(journal.New(), o.Stores()).Test(context.Background(), p, TestOptions{
		Selection: []string{behaviour.SelectAll},
		Interval:  time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.Passed())
	assert.False(t, result.Report.HasFailures())
	require.Len(t, result.Report.Children, 1)
	assert.Empty(t, result.Report.Children[0].Suite.Entries)
}

func TestTestFailure(t *testing.T) {
	p := newProject(t, sources())
	o := testutil.NewOrchestrator()
	o.Executions["smoke"] = []orchestrator.Object{
		{"status": "IN_PROGRESS"},
		{"status": "FAIL", "error": "step 2 failed"},
	}

	result, err := NewPipeline(journal.New(), o.Stores()).Test(context.Background(), p, TestOptions{
		Selection: []string{"smoke"},
		Interval:  time.Millisecond,
	})

	var failed *TestsFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "1 test(s) failed, 0 passed, 0 skipped", err.Error())
	assert.Equal(t, behaviour.Entry{Name: "smoke", Status: behaviour.StatusFailed, Detail: "smoke failed: step 2 failed"}, result.Report.Suite.Entries[0])
}

func TestTestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    TestOptions
		wantErr bool
	}{
		{"all", TestOptions{Selection: []string{"*"}}, false},
		{"named", TestOptions{Selection: []string{"a", "b"}, Interval: time.Second, Timeout: time.Minute}, false},
		{"no selection", TestOptions{}, true},
		{"negative timeout", TestOptions{Selection: []string{"*"}, Timeout: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				var optsErr *InvalidOptionsError
				assert.True(t, errors.As(err, &optsErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListTests(t *testing.T) {
	p := newProject(t, sources())

	listings, err := NewPipeline(journal.New(), orchestrator.Stores{}).ListTests(p, Options{})
	require.NoError(t, err)

	assert.Equal(t, []behaviour.Listing{
		{Project: "root", FullName: "root", Tests: []string{"smoke"}},
		{Project: "db", FullName: "db-root"},
	}, listings)
}

func TestPull(t *testing.T) {
	p := newProject(t, sources())
	o := testutil.NewOrchestrator()
	o.Descriptors[rootDescriptorName] = "name: " + rootDescriptorName + "\ndescription: remote\n"

	result, err := NewPipeline(journal.New(), o.Stores()).Pull(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, result.Changes, 1)
	assert.Equal(t, "/project/Descriptor/assembly.yml", result.Changes[0].Path)
	backup, err := p.Workspace().ReadFile("pre_pull_backup/Descriptor/assembly.yml")
	require.NoError(t, err)
	assert.Equal(t, sources()["Descriptor/assembly.yml"], string(backup))
}
