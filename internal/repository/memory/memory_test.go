package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
	"github.com/R3E-Network/mvc_bridge/internal/repository"
)

var (
	contentType = namespace.NewQName(namespace.ContentModelURI, "content")
	folderType  = namespace.NewQName(namespace.ContentModelURI, "folder")
	cmName      = namespace.NewQName(namespace.ContentModelURI, "name")
	cmTitle     = namespace.NewQName(namespace.ContentModelURI, "title")
)

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateNode(ctx, repository.Node{
		Type:       contentType,
		Properties: node.Properties{cmName: "a.txt", cmTitle: nil},
	})
	require.NoError(t, err)
	assert.False(t, created.Ref.IsZero())
	assert.False(t, created.Created.IsZero())
	assert.NotContains(t, created.Properties, cmTitle)

	got, err := s.GetNode(ctx, created.Ref)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Properties[cmName])

	got.Properties[cmName] = "mutated"
	again, err := s.GetNode(ctx, created.Ref)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", again.Properties[cmName])

	_, err = s.CreateNode(ctx, repository.Node{Ref: created.Ref})
	assert.Error(t, err)
}

func TestGetNode_NotFound(t *testing.T) {
	_, err := New().GetNode(context.Background(), node.NewRef())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateProperties(t *testing.T) {
	s := New()
	ctx := context.Background()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	n, err := s.CreateNode(ctx, repository.Node{Type: contentType, Properties: node.Properties{cmName: "a", cmTitle: "t"}})
	require.NoError(t, err)

	updated, err := s.UpdateProperties(ctx, n.Ref, node.Properties{cmName: "b", cmTitle: nil})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Properties[cmName])
	assert.NotContains(t, updated.Properties, cmTitle)
	assert.True(t, updated.Modified.After(n.Modified))
	assert.Equal(t, n.Created, updated.Created)

	_, err = s.UpdateProperties(ctx, node.NewRef(), nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListNodes(t *testing.T) {
	s := New()
	ctx := context.Background()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	first, err := s.CreateNode(ctx, repository.Node{Type: contentType})
	require.NoError(t, err)
	_, err = s.CreateNode(ctx, repository.Node{Type: folderType})
	require.NoError(t, err)
	second, err := s.CreateNode(ctx, repository.Node{Type: contentType})
	require.NoError(t, err)

	nodes, err := s.ListNodes(ctx, contentType)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, first.Ref, nodes[0].Ref)
	assert.Equal(t, second.Ref, nodes[1].Ref)

	none, err := s.ListNodes(ctx, namespace.NewQName("urn:x", "y"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeleteNode(t *testing.T) {
	s := New()
	ctx := context.Background()
	n, err := s.CreateNode(ctx, repository.Node{Type: contentType})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, n.Ref))
	assert.ErrorIs(t, s.DeleteNode(ctx, n.Ref), repository.ErrNotFound)
}
