package tree

import (
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemTree(t *testing.T) *Tree {
	t.Helper()
	return New(memfs.New(), "/project")
}

func TestWriteReadExists(t *testing.T) {
	tr := newMemTree(t)

	require.NoError(t, tr.WriteFile("Descriptor/assembly.yml", []byte("name: x\n")))

	ok, err := tr.Exists("Descriptor/assembly.yml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, tr.IsDir("Descriptor"))
	assert.True(t, tr.IsFile("Descriptor/assembly.yml"))

	data, err := tr.ReadFile("Descriptor/assembly.yml")
	require.NoError(t, err)
	assert.Equal(t, "name: x\n", string(data))

	ok, err = tr.Exists("missing.yml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindOne(t *testing.T) {
	tr := newMemTree(t)

	found, err := tr.FindOne("a.yml", "a.yaml")
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, tr.WriteFile("a.yaml", nil))
	found, err = tr.FindOne("a.yml", "a.yaml")
	require.NoError(t, err)
	assert.Equal(t, "a.yaml", found)

	require.NoError(t, tr.WriteFile("a.yml", nil))
	_, err = tr.FindOne("a.yml", "a.yaml")
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestCopyTreeAndWalk(t *testing.T) {
	fs := memfs.New()
	src := New(fs, "/src")
	dst := New(fs, "/dst")

	require.NoError(t, src.WriteFile("Lifecycle/b.yaml", []byte("b")))
	require.NoError(t, src.WriteFile("Lifecycle/a/c.yaml", []byte("c")))

	require.NoError(t, CopyTree(src, "Lifecycle", dst, "out/Lifecycle"))

	var files []string
	require.NoError(t, dst.WalkFiles("", func(rel string, _ os.FileInfo) error {
		files = append(files, rel)
		return nil
	}))
	assert.Equal(t, []string{"out/Lifecycle/a/c.yaml", "out/Lifecycle/b.yaml"}, files)

	data, err := src.ReadFile("Lifecycle/b.yaml")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestCleanAndSub(t *testing.T) {
	tr := newMemTree(t)
	require.NoError(t, tr.WriteFile("_lmctl/staging/old.txt", []byte("x")))

	staging := tr.Sub("_lmctl", "staging")
	require.NoError(t, staging.Clean())

	ok, err := staging.Exists("old.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, tr.IsDir("_lmctl/staging"))
}

func TestRename(t *testing.T) {
	tr := newMemTree(t)
	require.NoError(t, tr.WriteFile("infrastructure.mf", []byte("m")))
	require.NoError(t, tr.Rename("infrastructure.mf", "infrastructure.mf.bak"))

	assert.False(t, tr.IsFile("infrastructure.mf"))
	data, err := tr.ReadFile("infrastructure.mf.bak")
	require.NoError(t, err)
	assert.Equal(t, "m", string(data))
}
