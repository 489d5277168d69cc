package push

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

type recorder struct {
	order *[]string
	fail  string
}

func (r recorder) Push(_ context.Context, p *Pusher) error {
	if p.Config.Name == r.fail {
		return errors.New("rejected")
	}
	*r.order = append(*r.order, p.Config.DescriptorName()+"@"+p.Content.Root())
	return nil
}

func contentTree(t *testing.T) *project.Project {
	t.Helper()
	cfg := project.Link(&project.Config{
		Schema:  "2.0",
		Name:    "root",
		Version: "1.0",
		Contains: []*project.Config{
			{Name: "db", Type: project.TypeResource, ResourceManager: "brent"},
			{Name: "web", Type: project.TypeResource, ResourceManager: "brent", Directory: "frontend"},
		},
	})
	p, err := project.Bind(tree.New(memfs.New(), "/content"), cfg)
	require.NoError(t, err)
	return p
}

func TestContentPushesChildrenFirst(t *testing.T) {
	var order []string
	err := Content(context.Background(), contentTree(t), func(*project.Config) (Handler, error) {
		return recorder{order: &order}, nil
	}, orchestrator.Stores{}, journal.New())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"resource::db-root::1.0@/content/Contains/db",
		"resource::web-root::1.0@/content/Contains/frontend",
		"assembly::root::1.0@/content",
	}, order)
}

func TestContentStopsOnFailure(t *testing.T) {
	var order []string
	err := Content(context.Background(), contentTree(t), func(*project.Config) (Handler, error) {
		return recorder{order: &order, fail: "db"}, nil
	}, orchestrator.Stores{}, journal.New())

	var pushErr *Error
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, "db", pushErr.Project)
	assert.Empty(t, order)
}
