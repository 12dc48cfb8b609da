package models

import "time"

// Resource is the cached metadata of one remote learning resource.
type Resource struct {
	ID         uint       `gorm:"primaryKey"`
	CatalogID  string     `gorm:"type:text;not null;uniqueIndex:idx_edflex_resources_key,priority:1;index"`
	ResourceID string     `gorm:"type:text;not null;uniqueIndex:idx_edflex_resources_key,priority:2"`
	Scope      string     `gorm:"type:text;not null;default:'';index"`
	Title      string     `gorm:"type:text;not null;default:''"`
	Type       string     `gorm:"column:r_type;type:text;not null;default:'';index"`
	Language   string     `gorm:"type:text;not null;default:'';index"`
	Categories []Category `gorm:"many2many:edflex_resource_categories;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;not null"`
}

func (Resource) TableName() string {
	return "edflex_resources"
}
