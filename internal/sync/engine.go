// Package sync reconciles the local catalog cache with the partner API.
package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"edflex-sync/internal/concurrency"
	"edflex-sync/internal/domain"
	"edflex-sync/internal/mappers"
	"edflex-sync/internal/providers"
	"edflex-sync/internal/repository"
)

// Engine runs one reconciliation pass for one credential scope. It is not
// safe to run two passes for the same scope at the same time; Sweeper
// guards that inside a process.
type Engine struct {
	Store  repository.CatalogRepository
	Logger *zap.Logger
	// DetailWorkers bounds concurrent resource detail fetches within one
	// catalog. Store writes stay sequential and in catalog order.
	DetailWorkers int
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// SyncCatalogs fetches every resource of every listed catalog, upserts it,
// and prunes what the remote no longer lists: per catalog first, then
// resources of this scope whose catalog is gone, then categories no catalog
// of this pass touched. Category pruning is store-wide, so scopes sharing a
// store recreate each other's categories on their next full pass.
//
// An empty catalog list (including a failed listing) makes the pass a
// no-op. A store failure in one catalog rolls that catalog back, lets the
// others proceed, and skips the final pruning step.
func (e *Engine) SyncCatalogs(ctx context.Context, src providers.CatalogSource) (Result, error) {
	return e.run(ctx, src, ModeFull)
}

// SyncNewResources is the incremental pass: known resources are kept
// without a detail fetch, new ones are fetched and stored, and each catalog
// is pruned of resources it no longer lists. Nothing is pruned across
// catalogs.
func (e *Engine) SyncNewResources(ctx context.Context, src providers.CatalogSource) (Result, error) {
	return e.run(ctx, src, ModeNew)
}

func (e *Engine) run(ctx context.Context, src providers.CatalogSource, mode Mode) (Result, error) {
	log := e.logger().With(zap.String("tenant", src.Name()), zap.String("mode", string(mode)))
	var res Result

	catalogs := src.ListCatalogs(ctx)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(catalogs) == 0 {
		log.Warn("sync: no catalogs listed, nothing to do")
		return res, nil
	}

	seenCategories := touched{}
	catalogIDs := make([]string, 0, len(catalogs))
	var failed []error
	for _, c := range catalogs {
		catalogIDs = append(catalogIDs, c.ID)
		cr, cats, err := e.syncCatalog(ctx, src, c, mode)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			log.Error("sync: catalog failed", zap.String("catalog_id", c.ID), zap.Error(err))
			failed = append(failed, fmt.Errorf("catalog %s: %w", c.ID, err))
			continue
		}
		seenCategories.merge(cats)
		res.Add(cr)
		log.Info("sync: catalog done",
			zap.String("catalog_id", c.ID),
			zap.Int("upserted", cr.ResourcesUpserted),
			zap.Int("known", cr.ResourcesKnown),
			zap.Int("failed", cr.ResourcesFailed),
			zap.Int("deleted", cr.ResourcesDeleted),
		)
	}

	if len(failed) > 0 {
		return res, errors.Join(failed...)
	}
	if mode != ModeFull {
		return res, nil
	}

	err := e.Store.InTx(ctx, func(tx repository.CatalogRepository) error {
		n, err := tx.DeleteResourcesOutsideCatalogs(ctx, src.Name(), catalogIDs)
		if err != nil {
			return fmt.Errorf("delete resources of unlisted catalogs: %w", err)
		}
		res.ResourcesDeleted += int(n)

		n, err = tx.DeleteCategoriesExcept(ctx, seenCategories.list())
		if err != nil {
			return fmt.Errorf("delete untouched categories: %w", err)
		}
		res.CategoriesDeleted += int(n)
		return nil
	})
	return res, err
}

// syncCatalog reconciles one catalog inside one transaction and returns the
// category rows it touched.
func (e *Engine) syncCatalog(ctx context.Context, src providers.CatalogSource, c domain.Catalog, mode Mode) (Result, touched, error) {
	res := Result{Catalogs: 1}
	detail := src.GetCatalog(ctx, c.ID)
	if c.Title == "" {
		c.Title = detail.Title
	}

	seen := touched{}
	var pending []string
	for _, item := range detail.Items {
		if mode == ModeNew {
			existing, err := e.Store.FindResource(ctx, c.ID, item.ResourceID)
			if err != nil {
				return res, nil, fmt.Errorf("find resource %s: %w", item.ResourceID, err)
			}
			if existing != nil {
				seen.add(existing.ID)
				res.ResourcesKnown++
				continue
			}
		}
		pending = append(pending, item.ResourceID)
	}

	details, errs := concurrency.ProcessParallel(ctx, pending, concurrency.ParallelOptions{MaxWorkers: e.DetailWorkers},
		func(ctx context.Context, _ int, id string) (*domain.ResourceDetail, error) {
			return src.GetResource(ctx, id), nil
		})
	if len(errs) > 0 {
		return res, nil, errors.Join(errs...)
	}

	cats := touched{}
	err := e.Store.InTx(ctx, func(tx repository.CatalogRepository) error {
		for i, d := range details {
			if d == nil {
				// a failed fetch leaves the resource out of the seen set
				res.ResourcesFailed++
				e.logger().Debug("sync: resource skipped",
					zap.String("catalog_id", c.ID), zap.String("resource_id", pending[i]))
				continue
			}
			rowID, catIDs, err := storeResource(ctx, tx, src.Name(), c, *d)
			if err != nil {
				return err
			}
			seen.add(rowID)
			cats.add(catIDs...)
			res.ResourcesUpserted++
			res.CategoriesUpserted += len(catIDs)
		}

		n, err := tx.DeleteCatalogResourcesExcept(ctx, c.ID, seen.list())
		if err != nil {
			return fmt.Errorf("delete unlisted resources: %w", err)
		}
		res.ResourcesDeleted = int(n)
		return nil
	})
	if err != nil {
		return Result{}, nil, err
	}
	return res, cats, nil
}

func storeResource(ctx context.Context, tx repository.CatalogRepository, scope string, c domain.Catalog, d domain.ResourceDetail) (uint, []uint, error) {
	row := mappers.ToResource(c.ID, d)
	row.Scope = scope
	if err := tx.UpsertResource(ctx, &row); err != nil {
		return 0, nil, fmt.Errorf("upsert resource %s: %w", d.ID, err)
	}

	categories := mappers.ToCategories(c, d)
	ids := make([]uint, 0, len(categories))
	for i := range categories {
		if err := tx.UpsertCategory(ctx, &categories[i]); err != nil {
			return 0, nil, fmt.Errorf("upsert category %s: %w", categories[i].CategoryID, err)
		}
		ids = append(ids, categories[i].ID)
	}
	if err := tx.ReplaceResourceCategories(ctx, row.ID, ids); err != nil {
		return 0, nil, fmt.Errorf("link categories of %s: %w", d.ID, err)
	}
	return row.ID, ids, nil
}
