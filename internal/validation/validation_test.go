package validation

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

const svcProject = `schema: "2.0"
name: root
version: "1.0"
contains:
  - name: db
    type: Resource
    resource-manager: brent
  - name: web
    type: Resource
    resource-manager: brent
`

type descriptorCheck struct{ rel string }

func (d descriptorCheck) Validate(v *Validator) error {
	v.Descriptor(d.rel, false)
	return nil
}

func open(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	root := tree.New(memfs.New(), "/svc")
	require.NoError(t, root.WriteFile(project.FileYML, []byte(svcProject)))
	for rel, content := range files {
		require.NoError(t, root.WriteFile(rel, []byte(content)))
	}
	p, err := project.OpenTree(root)
	require.NoError(t, err)
	return p
}

func handlerFor(_ *project.Config) (Handler, error) {
	return descriptorCheck{rel: "descriptor.yml"}, nil
}

func TestRunCollectsAcrossTree(t *testing.T) {
	p := open(t, map[string]string{
		"descriptor.yml":              "name: assembly::root::1.0\n",
		"Contains/web/descriptor.yml": "name: resource::wrong-root::2.0\n",
	})
	j := journal.New()

	result, err := Run(p, handlerFor, Options{}, j)
	require.NoError(t, err)
	require.False(t, result.Valid())

	var messages []string
	for _, f := range result.Errors {
		messages = append(messages, f.String())
	}
	assert.Equal(t, []string{
		"db: No descriptor found at: /svc/Contains/db/descriptor.yml",
		"web: Descriptor [/svc/Contains/web/descriptor.yml]: name 'resource::wrong-root::2.0' includes 'wrong-root' but this should be 'web-root' based on project configuration",
		"web: Descriptor [/svc/Contains/web/descriptor.yml]: name 'resource::wrong-root::2.0' includes version '2.0' but this should be '1.0' based on project configuration",
	}, messages)

	err = result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No descriptor found")

	var kinds []journal.Kind
	for _, e := range j.Entries() {
		if e.Kind == journal.KindSubproject || e.Kind == journal.KindSubprojectEnd {
			kinds = append(kinds, e.Kind)
		}
	}
	assert.Equal(t, []journal.Kind{
		journal.KindSubproject, journal.KindSubprojectEnd,
		journal.KindSubproject, journal.KindSubprojectEnd,
	}, kinds)
}

func TestDescriptorTypeMismatch(t *testing.T) {
	p := open(t, map[string]string{"descriptor.yml": "name: resource::root::1.0\n"})
	result := &Result{}
	v := NewValidator(p.Config, p.Tree, journal.New(), Options{}, result)

	v.Descriptor("descriptor.yml", false)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "includes type 'resource' but this should be 'assembly'")

	result.Errors = nil
	v.Descriptor("descriptor.yml", true)
	assert.Contains(t, result.Errors[0].Message, "but this should be 'assembly-template'")
}

func TestDescriptorUnparseable(t *testing.T) {
	p := open(t, map[string]string{"descriptor.yml": "- a\n- b\n"})
	result := &Result{}
	NewValidator(p.Config, p.Tree, journal.New(), Options{}, result).Descriptor("descriptor.yml", false)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "could not be parsed")
	assert.Equal(t, "descriptor.yml", result.Errors[0].Path)
}

func TestRequire(t *testing.T) {
	p := open(t, map[string]string{"Lifecycle/lifecycle.mf": "x"})
	result := &Result{}
	v := NewValidator(p.Config, p.Tree, journal.New(), Options{}, result)

	assert.True(t, v.Require("Lifecycle", "Lifecycle directory"))
	assert.False(t, v.Require("Definitions", "Definitions directory"))
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "No Definitions directory found at: /svc/Definitions", result.Errors[0].Message)
}

func TestIncludedArtifacts(t *testing.T) {
	root := tree.New(memfs.New(), "/svc")
	require.NoError(t, root.WriteFile(project.FileYML, []byte(`schema: "2.0"
name: root
version: "1.0"
included-artifacts:
  - name: scripts
    path: scripts
    items: [run.sh, missing.sh]
  - name: docs
    path: docs
`)))
	require.NoError(t, root.WriteFile("scripts/run.sh", []byte("#!/bin/sh")))
	require.NoError(t, root.WriteFile("descriptor.yml", []byte("description: x\n")))
	p, err := project.OpenTree(root)
	require.NoError(t, err)

	result, err := Run(p, handlerFor, Options{}, journal.New())
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Included artifact scripts has no item missing.sh in: /svc/scripts", result.Errors[0].Message)
	assert.Equal(t, "Included artifact docs not found at: /svc/docs", result.Errors[1].Message)
}

func TestRunHandlerFailureStops(t *testing.T) {
	p := open(t, nil)
	boom := errors.New("boom")
	_, err := Run(p, func(*project.Config) (Handler, error) { return nil, boom }, Options{}, journal.New())
	assert.ErrorIs(t, err, boom)
}

func TestResultMerge(t *testing.T) {
	r := &Result{Errors: []Finding{{Message: "a"}}}
	r.Merge(&Result{Errors: []Finding{{Message: "b"}}, Warnings: []Finding{{Message: "w"}}})
	r.Merge(nil)
	assert.Len(t, r.Errors, 2)
	assert.Len(t, r.Warnings, 1)
	assert.NoError(t, (&Result{}).Err())
}
