package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/config"
	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/taxonomy"
)

// CatalogBootstrap records how the category tree was populated at startup.
type CatalogBootstrap struct {
	Seeded   taxonomy.Result
	Imported taxonomy.Result
}

// ProvideCatalogBootstrap seeds the built-in taxonomy into an empty store
// and applies the configured taxonomy file.
func ProvideCatalogBootstrap(i do.Injector) (*CatalogBootstrap, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	importer := do.MustInvoke[*taxonomy.Importer](i)

	ctx := context.Background()
	boot := &CatalogBootstrap{}

	if cfg.Catalog.SeedDefaults {
		n, err := storeHandle.CountCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("count categories: %w", err)
		}
		if n == 0 {
			res, err := importer.Seed(ctx)
			if err != nil {
				return nil, fmt.Errorf("seed default taxonomy: %w", err)
			}
			boot.Seeded = res
			log.Info("Default taxonomy seeded", "created", res.Created)
		}
	}

	if cfg.Catalog.TaxonomyFile != "" {
		seeds, err := taxonomy.Load(cfg.Catalog.TaxonomyFile)
		if err != nil {
			return nil, err
		}
		res, err := importer.Apply(ctx, seeds)
		if err != nil {
			return nil, fmt.Errorf("apply taxonomy %s: %w", cfg.Catalog.TaxonomyFile, err)
		}
		boot.Imported = res
	}

	return boot, nil
}

// TaxonomyWatcherHandle wraps the taxonomy watcher with shutdown capability.
type TaxonomyWatcherHandle struct {
	*taxonomy.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *TaxonomyWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Shutdown()
}

// ProvideTaxonomyWatcher re-applies the taxonomy file on change when
// enabled. Returns an inert handle otherwise.
func ProvideTaxonomyWatcher(i do.Injector) (*TaxonomyWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	importer := do.MustInvoke[*taxonomy.Importer](i)

	if !cfg.Catalog.WatchTaxonomy || cfg.Catalog.TaxonomyFile == "" {
		return &TaxonomyWatcherHandle{}, nil
	}

	w, err := taxonomy.NewWatcher(cfg.Catalog.TaxonomyFile, importer, log.Logger, taxonomy.WatcherOptions{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Taxonomy watcher stopped", "error", err)
		}
	}()

	log.Info("Taxonomy watcher started", "path", cfg.Catalog.TaxonomyFile)

	return &TaxonomyWatcherHandle{Watcher: w, cancel: cancel}, nil
}
