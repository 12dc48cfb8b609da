package db

import (
	"edflex-sync/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Category{},
		&models.Resource{},
		&models.ResourceCategory{},
		&models.SyncState{},
		&models.ContentCourse{},
		&models.ContentBlock{},
		&models.ContentUser{},
	)
}
