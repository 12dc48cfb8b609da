package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BranchDraft     = "draft"
	BranchPublished = "published"
)

// ContentCourse is a course known to the content store.
type ContentCourse struct {
	ID          string    `gorm:"primaryKey;type:text"`
	Org         string    `gorm:"type:text;not null;index"`
	DisplayName string    `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null"`
}

func (ContentCourse) TableName() string {
	return "content_courses"
}

// ContentBlock is one node of a course tree on one branch. Blocks of
// category "edflex" carry the embedded resource snapshot in Resource.
type ContentBlock struct {
	ID          uint           `gorm:"primaryKey"`
	CourseID    string         `gorm:"type:text;not null;uniqueIndex:idx_content_blocks_key,priority:1"`
	BlockID     string         `gorm:"type:text;not null;uniqueIndex:idx_content_blocks_key,priority:2"`
	Branch      string         `gorm:"type:text;not null;uniqueIndex:idx_content_blocks_key,priority:3"`
	ParentID    string         `gorm:"type:text;not null;default:''"`
	Category    string         `gorm:"type:text;not null;index"`
	Position    int            `gorm:"not null;default:0"`
	Resource    datatypes.JSON `gorm:"type:jsonb"`
	EditedBy    *uint
	EditedAt    *time.Time     `gorm:"type:timestamptz"`
	PublishedBy *uint
	PublishedAt *time.Time     `gorm:"type:timestamptz"`
}

func (ContentBlock) TableName() string {
	return "content_blocks"
}

// ContentUser is an identity edits can be attributed to.
type ContentUser struct {
	ID          uint   `gorm:"primaryKey"`
	Username    string `gorm:"type:text;not null;uniqueIndex"`
	IsActive    bool   `gorm:"not null;default:true"`
	IsStaff     bool   `gorm:"not null;default:false"`
	IsSuperuser bool   `gorm:"not null;default:false"`
}

func (ContentUser) TableName() string {
	return "content_users"
}
