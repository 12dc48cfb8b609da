package contentstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"edflex-sync/internal/domain"
	"edflex-sync/internal/models"
	"edflex-sync/internal/refresh"
)

// ResourceCategory is the block category that embeds a partner resource.
const ResourceCategory = "edflex"

var ErrCourseNotFound = errors.New("contentstore: course has no blocks")

// Block is a loaded content block.
type Block struct {
	Row      models.ContentBlock
	children []refresh.Node
}

func (b *Block) Location() refresh.Location {
	return refresh.Location{CourseID: b.Row.CourseID, BlockID: b.Row.BlockID, Branch: b.Row.Branch}
}

func (b *Block) Children() []refresh.Node { return b.children }

// ResourceBlock is a Block carrying a decoded resource snapshot.
type ResourceBlock struct {
	*Block
	snapshot domain.Snapshot
}

func (b *ResourceBlock) Snapshot() domain.Snapshot { return b.snapshot }

func (b *ResourceBlock) SetSnapshot(s domain.Snapshot) { b.snapshot = s }

// mergeBranches overlays draft blocks on published blocks by block id. A
// draft only holds the blocks edited since the last publish, so blocks
// without a draft copy come from the published branch.
func mergeBranches(draft, published []models.ContentBlock) []models.ContentBlock {
	drafted := make(map[string]bool, len(draft))
	for _, b := range draft {
		drafted[b.BlockID] = true
	}
	out := make([]models.ContentBlock, 0, len(draft)+len(published))
	for _, b := range published {
		if !drafted[b.BlockID] {
			out = append(out, b)
		}
	}
	return append(out, draft...)
}

// BuildTree assembles the blocks of one course into a tree rooted
// at the block without parent, keeping depth levels below the root.
// Siblings are ordered by Position.
func BuildTree(blocks []models.ContentBlock, depth int) (refresh.Node, error) {
	byParent := map[string][]models.ContentBlock{}
	var roots []models.ContentBlock
	for _, b := range blocks {
		if b.ParentID == "" {
			roots = append(roots, b)
			continue
		}
		byParent[b.ParentID] = append(byParent[b.ParentID], b)
	}
	switch len(roots) {
	case 0:
		return nil, ErrCourseNotFound
	case 1:
	default:
		return nil, fmt.Errorf("contentstore: course %s has %d root blocks", roots[0].CourseID, len(roots))
	}
	for _, siblings := range byParent {
		sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Position < siblings[j].Position })
	}
	return newNode(roots[0], byParent, depth)
}

func newNode(row models.ContentBlock, byParent map[string][]models.ContentBlock, depth int) (refresh.Node, error) {
	b := &Block{Row: row}
	if depth > 0 {
		for _, child := range byParent[row.BlockID] {
			n, err := newNode(child, byParent, depth-1)
			if err != nil {
				return nil, err
			}
			b.children = append(b.children, n)
		}
	}
	if row.Category != ResourceCategory {
		return b, nil
	}
	snap, err := decodeSnapshot(row)
	if err != nil {
		return nil, err
	}
	return &ResourceBlock{Block: b, snapshot: snap}, nil
}

func decodeSnapshot(row models.ContentBlock) (domain.Snapshot, error) {
	if len(row.Resource) == 0 || string(row.Resource) == "null" {
		return domain.Snapshot{}, nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(row.Resource, &snap); err != nil {
		return nil, fmt.Errorf("contentstore: block %s: decode resource: %w", row.BlockID, err)
	}
	return snap, nil
}
