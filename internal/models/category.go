package models

import "time"

// Category is a tag scoped to the catalog it was discovered in.
type Category struct {
	ID           uint      `gorm:"primaryKey"`
	CategoryID   string    `gorm:"type:text;not null;uniqueIndex:idx_edflex_categories_key,priority:1"`
	CatalogID    string    `gorm:"type:text;not null;uniqueIndex:idx_edflex_categories_key,priority:2;index"`
	Name         string    `gorm:"type:text;not null;default:''"`
	CatalogTitle string    `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null"`
}

func (Category) TableName() string {
	return "edflex_categories"
}

type ResourceCategory struct {
	ResourceID uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey;index"`
}

func (ResourceCategory) TableName() string {
	return "edflex_resource_categories"
}
