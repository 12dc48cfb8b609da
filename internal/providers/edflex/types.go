package edflex

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"edflex-sync/internal/domain"
)

// ID accepts identifiers sent either as JSON strings or as JSON numbers.
type ID string

func (i *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*i = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if v, err := n.Int64(); err == nil {
		*i = ID(strconv.FormatInt(v, 10))
		return nil
	}
	*i = ID(n.String())
	return nil
}

type catalogPayload struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

type catalogDetailPayload struct {
	ID    ID            `json:"id"`
	Title string        `json:"title"`
	Items []itemPayload `json:"items"`
}

type itemPayload struct {
	Resource *struct {
		ID ID `json:"id"`
	} `json:"resource"`
}

type categoryPayload struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type resourcePayload struct {
	ID         ID                `json:"id"`
	Title      string            `json:"title"`
	Type       *string           `json:"type"`
	Language   *string           `json:"language"`
	Categories []categoryPayload `json:"categories"`
}

func (p catalogPayload) toDomain() domain.Catalog {
	return domain.Catalog{ID: string(p.ID), Title: p.Title}
}

func (p catalogDetailPayload) toDomain() domain.CatalogDetail {
	out := domain.CatalogDetail{ID: string(p.ID), Title: p.Title}
	for _, it := range p.Items {
		// items without a resource reference cannot be fetched
		if it.Resource == nil || it.Resource.ID == "" {
			continue
		}
		out.Items = append(out.Items, domain.CatalogItem{ResourceID: string(it.Resource.ID)})
	}
	return out
}

func (p resourcePayload) toDomain(raw map[string]any) *domain.ResourceDetail {
	out := &domain.ResourceDetail{
		ID:       string(p.ID),
		Title:    p.Title,
		Type:     p.Type,
		Language: p.Language,
		Raw:      raw,
	}
	for _, c := range p.Categories {
		if c.ID == "" {
			continue
		}
		out.Categories = append(out.Categories, domain.CategoryRef{ID: string(c.ID), Name: c.Name})
	}
	return out
}
