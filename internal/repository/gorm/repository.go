package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edflex-sync/internal/models"
	"edflex-sync/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.CatalogRepository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.CatalogRepository) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) UpsertResource(ctx context.Context, item *models.Resource) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "catalog_id"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"scope",
			"title",
			"r_type",
			"language",
		}),
	}).Create(item).Error
}

func (s *Store) FindResource(ctx context.Context, catalogID, resourceID string) (*models.Resource, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Resource
	err := s.db.WithContext(ctx).
		Where("catalog_id = ? AND resource_id = ?", catalogID, resourceID).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ReplaceResourceCategories(ctx context.Context, resourceID uint, categoryIDs []uint) error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db.WithContext(ctx)
	if err := db.Where("resource_id = ?", resourceID).Delete(&models.ResourceCategory{}).Error; err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]models.ResourceCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		rows = append(rows, models.ResourceCategory{ResourceID: resourceID, CategoryID: id})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (s *Store) UpsertCategory(ctx context.Context, item *models.Category) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}, {Name: "catalog_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"catalog_title",
		}),
	}).Create(item).Error
}

func (s *Store) DeleteCatalogResourcesExcept(ctx context.Context, catalogID string, keep []uint) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Where("catalog_id = ?", catalogID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	res := query.Delete(&models.Resource{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteResourcesOutsideCatalogs(ctx context.Context, scope string, catalogIDs []string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Where("scope = ?", scope)
	if len(catalogIDs) > 0 {
		query = query.Where("catalog_id NOT IN ?", catalogIDs)
	}
	res := query.Delete(&models.Resource{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteCategoriesExcept(ctx context.Context, keep []uint) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	} else {
		query = query.Where("1 = 1")
	}
	res := query.Delete(&models.Category{})
	return res.RowsAffected, res.Error
}

func (s *Store) ListResources(ctx context.Context, params repository.ListResourcesParams) ([]models.Resource, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Resource{}).Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("edflex_categories.name asc")
	})
	if ids := compact(params.CatalogIDs); len(ids) > 0 {
		query = query.Where("edflex_resources.catalog_id IN ?", ids)
	}
	if v := strings.TrimSpace(params.Language); v != "" {
		query = query.Where("edflex_resources.language = ?", v)
	}
	if v := strings.TrimSpace(params.Type); v != "" {
		query = query.Where("edflex_resources.r_type = ?", v)
	}
	if v := strings.TrimSpace(params.CategoryID); v != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM edflex_resource_categories rc JOIN edflex_categories c ON c.id = rc.category_id "+
				"WHERE rc.resource_id = edflex_resources.id AND c.category_id = ?)", v)
	}
	query = query.Order("edflex_resources.catalog_id asc").Order("edflex_resources.resource_id asc")
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}
	var items []models.Resource
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListCategories(ctx context.Context, catalogIDs []string) ([]models.Category, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Category{})
	if ids := compact(catalogIDs); len(ids) > 0 {
		query = query.Where("catalog_id IN ?", ids)
	}
	var items []models.Category
	if err := query.Order("name asc").Order("catalog_id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListLanguages(ctx context.Context, catalogIDs []string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Resource{}).Where("language <> ''")
	if ids := compact(catalogIDs); len(ids) > 0 {
		query = query.Where("catalog_id IN ?", ids)
	}
	var out []string
	if err := query.Distinct("language").Order("language asc").Pluck("language", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetSyncState(ctx context.Context, scope, mode string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).Where("scope = ? AND mode = ?", scope, mode).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "mode"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_attempt_at",
			"last_success_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("scope asc").Order("mode asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
