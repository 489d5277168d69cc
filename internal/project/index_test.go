package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/reference"
)

func TestIndexDescriptorReference(t *testing.T) {
	cfg, err := Parse([]byte(layeredProject))
	require.NoError(t, err)
	idx := NewIndex(cfg)

	layer1 := cfg.Contains[0]
	layer2 := layer1.Contains[0]

	assert.Equal(t, "$lmctl:/descriptor_name", idx.DescriptorReference(cfg))
	assert.Equal(t, "$lmctl:/contains:/Layer1:/descriptor_name", idx.DescriptorReference(layer1))

	ref := idx.DescriptorReference(layer2)
	assert.Equal(t, "$lmctl:/contains:/Layer1:/contains:/Layer2:/descriptor_name", ref)

	got, err := idx.ResolveString(ref)
	require.NoError(t, err)
	assert.Equal(t, "resource::Layer2-Layer1-root::1.0", got)
}

func TestIndexReverseMapping(t *testing.T) {
	cfg, err := Parse([]byte(layeredProject))
	require.NoError(t, err)
	idx := NewIndex(cfg)

	ref := idx.DescriptorMappingReference("resource::Layer2-Layer1-root::1.0")
	assert.Equal(t, "$lmctl:/descriptor_mappings:/resource::Layer2-Layer1-root::1.0:/project", ref)

	owner, err := idx.ProjectFor("resource::Layer2-Layer1-root::1.0")
	require.NoError(t, err)
	assert.Same(t, cfg.Contains[0].Contains[0], owner)

	_, err = idx.ProjectFor("resource::unknown::1.0")
	assert.ErrorIs(t, err, reference.ErrNotResolvable)
}

func TestIndexResolveErrors(t *testing.T) {
	cfg, err := Parse([]byte(layeredProject))
	require.NoError(t, err)
	idx := NewIndex(cfg)

	_, err = idx.Resolve("$lmctl:/contains:/Missing:/descriptor_name")
	assert.ErrorIs(t, err, reference.ErrNotResolvable)

	_, err = idx.Resolve("$lmctl:/descriptor_name:/deeper")
	assert.ErrorIs(t, err, reference.ErrBadReference)

	_, err = idx.ResolveString("$lmctl:/contains")
	assert.ErrorIs(t, err, reference.ErrBadReference)
}
