// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"

	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// MemTree returns an in-memory tree rooted at root holding files.
func MemTree(t *testing.T, root string, files map[string]string) *tree.Tree {
	t.Helper()
	tr := tree.New(memfs.New(), root)
	for rel, content := range files {
		if err := tr.WriteFile(rel, []byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return tr
}

// Project writes projectFile as lmproject.yml next to files in an in-memory
// tree rooted at /project and opens it.
func Project(t *testing.T, projectFile string, files map[string]string) *project.Project {
	t.Helper()
	tr := MemTree(t, "/project", files)
	if err := tr.WriteFile(project.FileYML, []byte(projectFile)); err != nil {
		t.Fatalf("failed to write project file: %v", err)
	}
	p, err := project.OpenTree(tr)
	if err != nil {
		t.Fatalf("failed to open project: %v", err)
	}
	return p
}

// DiskProject is Project backed by a temporary directory.
func DiskProject(t *testing.T, projectFile string, files map[string]string) *project.Project {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, project.FileYML, projectFile)
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	p, err := project.Open(dir)
	if err != nil {
		t.Fatalf("failed to open project: %v", err)
	}
	return p
}
