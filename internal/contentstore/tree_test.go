package contentstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"edflex-sync/internal/domain"
	"edflex-sync/internal/models"
	"edflex-sync/internal/refresh"
)

func blockRow(id, parent, category string, pos int) models.ContentBlock {
	return models.ContentBlock{CourseID: "course-v1:Org+C+R", BlockID: id, Branch: models.BranchDraft, ParentID: parent, Category: category, Position: pos}
}

func TestBuildTree(t *testing.T) {
	item := blockRow("item", "unit", ResourceCategory, 0)
	item.Resource = datatypes.JSON(`{"id":"r1","title":"Intro","duration":90}`)
	blocks := []models.ContentBlock{
		blockRow("unit", "sub", "vertical", 0),
		item,
		blockRow("html", "unit", "html", 1),
		blockRow("course", "", "course", 0),
		blockRow("sec2", "course", "chapter", 1),
		blockRow("sec1", "course", "chapter", 0),
		blockRow("sub", "sec1", "sequential", 0),
	}

	root, err := BuildTree(blocks, refresh.DefaultDepth)
	require.NoError(t, err)
	assert.Equal(t, refresh.Location{CourseID: "course-v1:Org+C+R", BlockID: "course", Branch: "draft"}, root.Location())

	var order []string
	var resources []refresh.ResourceNode
	refresh.Walk(root, refresh.DefaultDepth, func(n refresh.Node) {
		order = append(order, n.Location().BlockID)
		if rn, ok := n.(refresh.ResourceNode); ok {
			resources = append(resources, rn)
		}
	})
	assert.Equal(t, []string{"sec1", "sub", "unit", "item", "html", "sec2"}, order)
	require.Len(t, resources, 1)
	assert.Equal(t, "r1", resources[0].Snapshot().ID())
	assert.Equal(t, float64(90), resources[0].Snapshot()["duration"])
}

func TestBuildTreeDepth(t *testing.T) {
	blocks := []models.ContentBlock{
		blockRow("course", "", "course", 0),
		blockRow("sec", "course", "chapter", 0),
		blockRow("sub", "sec", "sequential", 0),
	}
	root, err := BuildTree(blocks, 1)
	require.NoError(t, err)
	require.Len(t, root.Children(), 1)
	assert.Empty(t, root.Children()[0].Children())
}

func TestBuildTreeErrors(t *testing.T) {
	_, err := BuildTree(nil, refresh.DefaultDepth)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, err = BuildTree([]models.ContentBlock{
		blockRow("a", "", "course", 0),
		blockRow("b", "", "course", 0),
	}, refresh.DefaultDepth)
	assert.Error(t, err)

	bad := blockRow("item", "course", ResourceCategory, 0)
	bad.Resource = datatypes.JSON(`[1,2]`)
	_, err = BuildTree([]models.ContentBlock{blockRow("course", "", "course", 0), bad}, refresh.DefaultDepth)
	assert.Error(t, err)
}

func TestEmptyResourceHasNoID(t *testing.T) {
	root, err := BuildTree([]models.ContentBlock{
		blockRow("course", "", "course", 0),
		blockRow("item", "course", ResourceCategory, 0),
	}, refresh.DefaultDepth)
	require.NoError(t, err)
	rn, ok := root.Children()[0].(refresh.ResourceNode)
	require.True(t, ok)
	assert.Equal(t, "", rn.Snapshot().ID())

	rn.SetSnapshot(domain.Snapshot{"id": "r2"})
	assert.Equal(t, "r2", rn.Snapshot().ID())
}

type foreignNode struct{}

func (foreignNode) Location() refresh.Location  { return refresh.Location{} }
func (foreignNode) Children() []refresh.Node    { return nil }
func (foreignNode) Snapshot() domain.Snapshot   { return nil }
func (foreignNode) SetSnapshot(domain.Snapshot) {}

func TestSaveDraftRejectsForeignNodes(t *testing.T) {
	s := New(nil)
	_, err := s.SaveDraft(context.Background(), foreignNode{})
	assert.Error(t, err)
}
