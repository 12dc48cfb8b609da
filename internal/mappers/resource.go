package mappers

import (
	"edflex-sync/internal/domain"
	"edflex-sync/internal/models"
)

// ToResource maps a fetched resource detail to its store row for catalogID.
// Title is sanitized; type and language fall back to "".
func ToResource(catalogID string, d domain.ResourceDetail) models.Resource {
	return models.Resource{
		CatalogID:  catalogID,
		ResourceID: d.ID,
		Title:      StripEmoji(d.Title),
		Type:       d.TypeOrEmpty(),
		Language:   d.LanguageOrEmpty(),
	}
}

// ToCategories maps the categories of a resource detail to rows scoped to
// the catalog. Duplicate category ids keep their first occurrence.
func ToCategories(catalog domain.Catalog, d domain.ResourceDetail) []models.Category {
	if len(d.Categories) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(d.Categories))
	out := make([]models.Category, 0, len(d.Categories))
	for _, c := range d.Categories {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, models.Category{
			CategoryID:   c.ID,
			CatalogID:    catalog.ID,
			Name:         StripEmoji(c.Name),
			CatalogTitle: catalog.Title,
		})
	}
	return out
}
