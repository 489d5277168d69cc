package reference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReference(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"$lmctl:/descriptor_name", true},
		{"$lmctl:/a", true},
		{"$lmctl:/", false},
		{"$lmctl", false},
		{"resource::db::1.0", false},
		{"", false},
		{" $lmctl:/a", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.IsReference(tt.value))
		})
	}
}

func TestBreakdown(t *testing.T) {
	t.Run("multi character separator", func(t *testing.T) {
		segments, err := Default.Breakdown("$lmctl:/contains:/db:/descriptor_name")
		require.NoError(t, err)
		assert.Equal(t, []string{"contains", "db", "descriptor_name"}, segments)
	})

	t.Run("keeps empty segments", func(t *testing.T) {
		segments, err := Default.Breakdown("$lmctl:/a:/:/b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "", "b"}, segments)
	})

	t.Run("single colon is not a separator", func(t *testing.T) {
		segments, err := Default.Breakdown("$lmctl:/type::db::1.0")
		require.NoError(t, err)
		assert.Equal(t, []string{"type::db::1.0"}, segments)
	})

	t.Run("rejects non reference", func(t *testing.T) {
		_, err := Default.Breakdown("plain")
		assert.ErrorIs(t, err, ErrNotReference)
	})
}

func TestBuilder(t *testing.T) {
	t.Run("joins segments", func(t *testing.T) {
		ref, err := Default.NewBuilder().Add("a").Add("b").Add("c").Get()
		require.NoError(t, err)
		assert.Equal(t, "$lmctl"+":/"+"a"+":/"+"b"+":/"+"c", ref)
	})

	t.Run("add before prepends", func(t *testing.T) {
		ref, err := Default.NewBuilder().Add("b").AddBefore("a").Get()
		require.NoError(t, err)
		assert.Equal(t, "$lmctl:/a:/b", ref)
	})

	t.Run("no segments", func(t *testing.T) {
		_, err := Default.NewBuilder().Get()
		assert.ErrorIs(t, err, ErrNoSegments)
	})

	t.Run("round trip", func(t *testing.T) {
		sets := [][]string{
			{"a"},
			{"a", "b", "c"},
			{"contains", "Layer1", "contains", "Layer2", "descriptor_name"},
			{"x", "", "y"},
		}
		for _, segments := range sets {
			b := Default.NewBuilder()
			for _, s := range segments {
				b.Add(s)
			}
			ref, err := b.Get()
			require.NoError(t, err)
			got, err := Default.Breakdown(ref)
			require.NoError(t, err)
			assert.Equal(t, segments, got)
		}
	})

	t.Run("custom schema", func(t *testing.T) {
		s := Schema{Root: "@", Separator: "/"}
		ref, err := s.NewBuilder().Add("x").Add("y").Get()
		require.NoError(t, err)
		assert.Equal(t, "@/x/y", ref)
	})
}

func TestResolve(t *testing.T) {
	values := map[string]any{
		"descriptor_name": "assembly::root::1.0",
		"contains": map[string]any{
			"db": map[string]any{
				"descriptor_name": "resource::db-root::1.0",
			},
		},
	}

	t.Run("terminal value", func(t *testing.T) {
		got, err := Default.Resolve(values, "$lmctl:/contains:/db:/descriptor_name")
		require.NoError(t, err)
		assert.Equal(t, "resource::db-root::1.0", got)
	})

	t.Run("terminal map", func(t *testing.T) {
		got, err := Default.Resolve(values, "$lmctl:/contains")
		require.NoError(t, err)
		assert.IsType(t, map[string]any{}, got)
	})

	t.Run("missing leading segment", func(t *testing.T) {
		_, err := Default.Resolve(values, "$lmctl:/missing:/descriptor_name")
		require.ErrorIs(t, err, ErrNotResolvable)
		assert.Equal(t, "Cannot find 'missing' in reference: $lmctl:/missing:/descriptor_name", err.Error())
	})

	t.Run("intermediate value not a map", func(t *testing.T) {
		_, err := Default.Resolve(values, "$lmctl:/descriptor_name:/more")
		require.ErrorIs(t, err, ErrBadReference)

		var resolveErr *ResolveError
		require.True(t, errors.As(err, &resolveErr))
		assert.Equal(t, "descriptor_name", resolveErr.Previous)
		assert.Equal(t, "more", resolveErr.Segment)
	})

	t.Run("not a reference", func(t *testing.T) {
		_, err := Default.Resolve(values, "descriptor_name")
		assert.ErrorIs(t, err, ErrNotReference)
	})
}
