// Package repository declares the persistence contracts of the local
// catalog cache. The gorm sub-package backs them with Postgres; the memory
// sub-package keeps everything in process.
package repository

import (
	"context"

	"edflex-sync/internal/models"
)

type CatalogRepository interface {
	// InTx runs fn against a repository bound to one transaction. fn's error
	// rolls every write back.
	InTx(ctx context.Context, fn func(tx CatalogRepository) error) error

	// UpsertResource inserts or updates by (CatalogID, ResourceID) and sets
	// item.ID to the stored row id.
	UpsertResource(ctx context.Context, item *models.Resource) error
	// FindResource returns nil, nil when no row matches.
	FindResource(ctx context.Context, catalogID, resourceID string) (*models.Resource, error)
	ReplaceResourceCategories(ctx context.Context, resourceID uint, categoryIDs []uint) error
	// UpsertCategory inserts or updates by (CategoryID, CatalogID) and sets
	// item.ID to the stored row id.
	UpsertCategory(ctx context.Context, item *models.Category) error

	DeleteCatalogResourcesExcept(ctx context.Context, catalogID string, keep []uint) (int64, error)
	// DeleteResourcesOutsideCatalogs removes the rows owned by scope whose
	// catalog is not in catalogIDs.
	DeleteResourcesOutsideCatalogs(ctx context.Context, scope string, catalogIDs []string) (int64, error)
	DeleteCategoriesExcept(ctx context.Context, keep []uint) (int64, error)

	ListResources(ctx context.Context, params ListResourcesParams) ([]models.Resource, error)
	ListCategories(ctx context.Context, catalogIDs []string) ([]models.Category, error)
	ListLanguages(ctx context.Context, catalogIDs []string) ([]string, error)

	GetSyncState(ctx context.Context, scope, mode string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
}

// ListResourcesParams filters ListResources. Empty fields do not filter.
// Results are ordered by catalog id then resource id.
type ListResourcesParams struct {
	CatalogIDs []string
	CategoryID string
	Language   string
	Type       string
	Limit      int
	Offset     int
}
