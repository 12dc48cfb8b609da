package export

import (
	"encoding/csv"
	"io"
	"strings"

	"edflex-sync/internal/models"
)

// Keep header order stable; downstream imports map columns by position.
var resourcesHeader = []string{
	"CATALOG_ID",
	"RESOURCE_ID",
	"TITLE",
	"TYPE",
	"LANGUAGE",
	"CATEGORY_IDS",
	"CATEGORIES",
}

// WriteResourcesCSV writes cached resources, one row each, in the order
// given. Category lists are joined with " | ".
func WriteResourcesCSV(w io.Writer, resources []models.Resource) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(resourcesHeader); err != nil {
		return err
	}
	for _, r := range resources {
		if err := cw.Write(toRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toRow(r models.Resource) []string {
	ids := make([]string, 0, len(r.Categories))
	names := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		ids = append(ids, c.CategoryID)
		names = append(names, clean(c.Name))
	}
	return []string{
		r.CatalogID,
		r.ResourceID,
		clean(r.Title),
		r.Type,
		r.Language,
		strings.Join(ids, " | "),
		strings.Join(names, " | "),
	}
}

// clean flattens line breaks so every record stays on one line.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
