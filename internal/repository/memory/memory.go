// Package memory is an in-process CatalogRepository. Transactions are
// serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"edflex-sync/internal/models"
	"edflex-sync/internal/repository"
)

type Store struct {
	txMu sync.Mutex

	mu   sync.Mutex
	data state
}

type state struct {
	nextResource uint
	nextCategory uint
	resources    map[uint]models.Resource
	categories   map[uint]models.Category
	links        map[uint][]uint // resource row id -> category row ids
	syncStates   map[[2]string]models.SyncState
}

var _ repository.CatalogRepository = (*Store)(nil)

func New() *Store {
	return &Store{data: state{
		resources:  map[uint]models.Resource{},
		categories: map[uint]models.Category{},
		links:      map[uint][]uint{},
		syncStates: map[[2]string]models.SyncState{},
	}}
}

func (s *state) clone() state {
	out := state{
		nextResource: s.nextResource,
		nextCategory: s.nextCategory,
		resources:    make(map[uint]models.Resource, len(s.resources)),
		categories:   make(map[uint]models.Category, len(s.categories)),
		links:        make(map[uint][]uint, len(s.links)),
		syncStates:   make(map[[2]string]models.SyncState, len(s.syncStates)),
	}
	for k, v := range s.resources {
		out.resources[k] = v
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.links {
		out.links[k] = slices.Clone(v)
	}
	for k, v := range s.syncStates {
		out.syncStates[k] = v
	}
	return out
}

func (s *Store) InTx(_ context.Context, fn func(tx repository.CatalogRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) UpsertResource(_ context.Context, item *models.Resource) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.data.resources {
		if r.CatalogID == item.CatalogID && r.ResourceID == item.ResourceID {
			r.Scope, r.Title, r.Type, r.Language = item.Scope, item.Title, item.Type, item.Language
			s.data.resources[id] = r
			item.ID, item.CreatedAt = id, r.CreatedAt
			return nil
		}
	}
	s.data.nextResource++
	row := *item
	row.ID = s.data.nextResource
	row.Categories = nil
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	s.data.resources[row.ID] = row
	item.ID, item.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (s *Store) FindResource(_ context.Context, catalogID, resourceID string) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.data.resources {
		if r.CatalogID == catalogID && r.ResourceID == resourceID {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) ReplaceResourceCategories(_ context.Context, resourceID uint, categoryIDs []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := slices.Clone(categoryIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		delete(s.data.links, resourceID)
		return nil
	}
	s.data.links[resourceID] = ids
	return nil
}

func (s *Store) UpsertCategory(_ context.Context, item *models.Category) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.data.categories {
		if c.CategoryID == item.CategoryID && c.CatalogID == item.CatalogID {
			c.Name, c.CatalogTitle = item.Name, item.CatalogTitle
			s.data.categories[id] = c
			item.ID, item.CreatedAt = id, c.CreatedAt
			return nil
		}
	}
	s.data.nextCategory++
	row := *item
	row.ID = s.data.nextCategory
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	s.data.categories[row.ID] = row
	item.ID, item.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (s *Store) DeleteCatalogResourcesExcept(_ context.Context, catalogID string, keep []uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteResources(func(r models.Resource) bool {
		return r.CatalogID == catalogID && !slices.Contains(keep, r.ID)
	}), nil
}

func (s *Store) DeleteResourcesOutsideCatalogs(_ context.Context, scope string, catalogIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteResources(func(r models.Resource) bool {
		return r.Scope == scope && !slices.Contains(catalogIDs, r.CatalogID)
	}), nil
}

func (s *Store) deleteResources(match func(models.Resource) bool) int64 {
	var n int64
	for id, r := range s.data.resources {
		if match(r) {
			delete(s.data.resources, id)
			delete(s.data.links, id)
			n++
		}
	}
	return n
}

func (s *Store) DeleteCategoriesExcept(_ context.Context, keep []uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id := range s.data.categories {
		if slices.Contains(keep, id) {
			continue
		}
		delete(s.data.categories, id)
		n++
		for rid, cats := range s.data.links {
			s.data.links[rid] = slices.DeleteFunc(cats, func(c uint) bool { return c == id })
		}
	}
	return n, nil
}

func (s *Store) ListResources(_ context.Context, params repository.ListResourcesParams) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	catalogs := compact(params.CatalogIDs)
	out := make([]models.Resource, 0, len(s.data.resources))
	for id, r := range s.data.resources {
		if len(catalogs) > 0 && !slices.Contains(catalogs, r.CatalogID) {
			continue
		}
		if v := strings.TrimSpace(params.Language); v != "" && r.Language != v {
			continue
		}
		if v := strings.TrimSpace(params.Type); v != "" && r.Type != v {
			continue
		}
		r.Categories = s.categoriesOf(id)
		if v := strings.TrimSpace(params.CategoryID); v != "" && !slices.ContainsFunc(r.Categories, func(c models.Category) bool {
			return c.CategoryID == v
		}) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CatalogID != out[j].CatalogID {
			return out[i].CatalogID < out[j].CatalogID
		}
		return out[i].ResourceID < out[j].ResourceID
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return []models.Resource{}, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *Store) categoriesOf(resourceID uint) []models.Category {
	ids := s.data.links[resourceID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.data.categories[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) ListCategories(_ context.Context, catalogIDs []string) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	catalogs := compact(catalogIDs)
	out := make([]models.Category, 0, len(s.data.categories))
	for _, c := range s.data.categories {
		if len(catalogs) > 0 && !slices.Contains(catalogs, c.CatalogID) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CatalogID < out[j].CatalogID
	})
	return out, nil
}

func (s *Store) ListLanguages(_ context.Context, catalogIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	catalogs := compact(catalogIDs)
	var out []string
	for _, r := range s.data.resources {
		if r.Language == "" || (len(catalogs) > 0 && !slices.Contains(catalogs, r.CatalogID)) {
			continue
		}
		out = append(out, r.Language)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (s *Store) GetSyncState(_ context.Context, scope, mode string) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data.syncStates[[2]string{scope, mode}]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *Store) SaveSyncState(_ context.Context, state *models.SyncState) error {
	if state == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.syncStates[[2]string{state.Scope, state.Mode}] = *state
	return nil
}

func (s *Store) ListSyncStates(_ context.Context) ([]models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncState, 0, len(s.data.syncStates))
	for _, st := range s.data.syncStates {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Mode < out[j].Mode
	})
	return out, nil
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
