package providers

import (
	"context"

	"edflex-sync/internal/config"
	"edflex-sync/internal/domain"
)

// CatalogSource is the read side of a partner catalog API for one credential
// set. Implementations absorb transport failures: ListCatalogs returns nil,
// GetCatalog returns a detail without items and GetResource returns nil.
type CatalogSource interface {
	Name() string
	ListCatalogs(ctx context.Context) []domain.Catalog
	GetCatalog(ctx context.Context, id string) domain.CatalogDetail
	GetResource(ctx context.Context, id string) *domain.ResourceDetail
}

// SourceFactory builds the CatalogSource for a resolved credential set.
type SourceFactory interface {
	Source(tc config.TenantConfig) CatalogSource
}

// SourceFactoryFunc adapts a plain function into a SourceFactory.
type SourceFactoryFunc func(tc config.TenantConfig) CatalogSource

func (f SourceFactoryFunc) Source(tc config.TenantConfig) CatalogSource { return f(tc) }
