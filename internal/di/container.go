// Package di provides dependency injection configuration for the catalog server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/config"
	"github.com/tradepost/catalog-server/internal/di/providers"
	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/service"
	"github.com/tradepost/catalog-server/internal/taxonomy"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is read from the process command line and environment.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	register(injector)
	return injector
}

// NewContainerWithConfig creates a container around an already loaded
// configuration.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	register(injector)
	return injector
}

func register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideCategoryService)
	do.Provide(injector, providers.ProvideCategoryRequestService)
	do.Provide(injector, providers.ProvideTaxonomyImporter)

	// Messaging
	do.Provide(injector, providers.ProvideBroker)
	do.Provide(injector, providers.ProvideHub)

	// Workers
	do.Provide(injector, providers.ProvideCatalogBootstrap)
	do.Provide(injector, providers.ProvideTaxonomyWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.CategoryService](injector)
	_ = do.MustInvoke[*service.CategoryRequestService](injector)
	_ = do.MustInvoke[*taxonomy.Importer](injector)

	// Messaging
	_ = do.MustInvoke[*providers.BrokerHandle](injector)
	_ = do.MustInvoke[*providers.HubHandle](injector)

	// Catalog contents, before the server accepts traffic
	if _, err := do.Invoke[*providers.CatalogBootstrap](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.TaxonomyWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
