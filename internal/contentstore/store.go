// Package contentstore keeps course trees in Postgres with a draft and a
// published copy of every block, and serves them to the refresher.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edflex-sync/internal/models"
	"edflex-sync/internal/refresh"
)

type Store struct {
	db *gorm.DB
}

var (
	_ refresh.CourseStore   = (*Store)(nil)
	_ refresh.IdentityStore = (*Store)(nil)
	_ refresh.Versioning    = (*Store)(nil)
)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListCourses(ctx context.Context) ([]refresh.Course, error) {
	var rows []models.ContentCourse
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]refresh.Course, 0, len(rows))
	for _, r := range rows {
		out = append(out, refresh.Course{ID: r.ID, Org: r.Org})
	}
	return out, nil
}

// LoadCourse returns the course tree with every draft block laid over its
// published copy.
func (s *Store) LoadCourse(ctx context.Context, courseID string, depth int) (refresh.Node, error) {
	var rows []models.ContentBlock
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND branch IN ?", courseID, []string{models.BranchDraft, models.BranchPublished}).
		Order("position asc").Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	var draft, published []models.ContentBlock
	for _, r := range rows {
		if r.Branch == models.BranchDraft {
			draft = append(draft, r)
		} else {
			published = append(published, r)
		}
	}
	merged := mergeBranches(draft, published)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}
	return BuildTree(merged, depth)
}

func (s *Store) FirstPrivilegedUser(ctx context.Context) (*refresh.User, error) {
	var u models.ContentUser
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("is_staff = ? OR is_superuser = ?", true, true).
		Order("id asc").
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &refresh.User{ID: u.ID, Username: u.Username}, nil
}

// SaveDraft writes the node's snapshot to the draft copy of the block,
// creating the draft copy from the loaded row when needed.
func (s *Store) SaveDraft(ctx context.Context, n refresh.ResourceNode) (refresh.Location, error) {
	rb, ok := n.(*ResourceBlock)
	if !ok {
		return refresh.Location{}, fmt.Errorf("contentstore: unsupported node %T", n)
	}
	raw, err := json.Marshal(rb.Snapshot())
	if err != nil {
		return refresh.Location{}, err
	}
	now := time.Now().UTC()
	draft := rb.Row
	draft.ID = 0
	draft.Branch = models.BranchDraft
	draft.Resource = datatypes.JSON(raw)
	draft.EditedAt = &now
	draft.PublishedAt, draft.PublishedBy = nil, nil

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "block_id"}, {Name: "branch"}},
		DoUpdates: clause.AssignmentColumns([]string{"resource", "edited_at"}),
	}).Create(&draft).Error
	if err != nil {
		return refresh.Location{}, err
	}
	rb.Row = draft
	return rb.Location(), nil
}

// UpdateItem stamps the draft block with the editing user.
func (s *Store) UpdateItem(ctx context.Context, n refresh.ResourceNode, userID uint) error {
	loc := n.Location().ForBranch(models.BranchDraft)
	raw, err := json.Marshal(n.Snapshot())
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.ContentBlock{}).
		Where("course_id = ? AND block_id = ? AND branch = ?", loc.CourseID, loc.BlockID, loc.Branch).
		Updates(map[string]any{
			"resource":  datatypes.JSON(raw),
			"edited_by": userID,
			"edited_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("contentstore: no draft block at %s", loc)
	}
	return nil
}

// Publish copies the draft block at loc over its published copy.
func (s *Store) Publish(ctx context.Context, loc refresh.Location, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var draft models.ContentBlock
		err := tx.Where("course_id = ? AND block_id = ? AND branch = ?", loc.CourseID, loc.BlockID, models.BranchDraft).
			Take(&draft).Error
		if err != nil {
			return fmt.Errorf("contentstore: load draft %s: %w", loc, err)
		}
		now := time.Now().UTC()
		published := draft
		published.ID = 0
		published.Branch = models.BranchPublished
		published.PublishedBy = &userID
		published.PublishedAt = &now
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}, {Name: "block_id"}, {Name: "branch"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"parent_id",
				"category",
				"position",
				"resource",
				"edited_by",
				"edited_at",
				"published_by",
				"published_at",
			}),
		}).Create(&published).Error
	})
}
