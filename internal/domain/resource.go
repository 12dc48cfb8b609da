package domain

// Catalog is one remote selection visible to a credential set.
type Catalog struct {
	ID    string
	Title string
}

// CatalogDetail is a catalog together with the resources it lists. A failed
// fetch yields a CatalogDetail with no Items.
type CatalogDetail struct {
	ID    string
	Title string
	Items []CatalogItem
}

type CatalogItem struct {
	ResourceID string
}

type CategoryRef struct {
	ID   string
	Name string
}

// ResourceDetail is the full detail payload of one remote resource.
// Optional remote fields are pointers so a missing field differs from an
// empty one. Raw keeps the decoded object as received; it is what gets
// embedded into course content.
type ResourceDetail struct {
	ID         string
	Title      string
	Type       *string
	Language   *string
	Categories []CategoryRef
	Raw        map[string]any
}

// TypeOrEmpty returns the resource type or "" when the remote omitted it.
func (r ResourceDetail) TypeOrEmpty() string {
	if r.Type == nil {
		return ""
	}
	return *r.Type
}

// LanguageOrEmpty returns the language or "" when the remote omitted it.
func (r ResourceDetail) LanguageOrEmpty() string {
	if r.Language == nil {
		return ""
	}
	return *r.Language
}

// Snapshot is the embedded copy of a resource detail payload stored inside a
// course content node. It is opaque apart from its "id" field.
type Snapshot map[string]any

// ID returns the remote resource id referenced by the snapshot.
func (s Snapshot) ID() string {
	if s == nil {
		return ""
	}
	switch v := s["id"].(type) {
	case string:
		return v
	case float64:
		return trimFloat(v)
	default:
		return ""
	}
}
