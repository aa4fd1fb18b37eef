package providers

import (
	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/service"
	"github.com/tradepost/catalog-server/internal/taxonomy"
)

// ProvideCategoryService provides the category mutation and read service.
func ProvideCategoryService(i do.Injector) (*service.CategoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCategoryService(storeHandle.Store, indexHandle.CategoryIndex, log.Component("categories")), nil
}

// ProvideCategoryRequestService provides the seller proposal workflow.
func ProvideCategoryRequestService(i do.Injector) (*service.CategoryRequestService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	categories := do.MustInvoke[*service.CategoryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCategoryRequestService(storeHandle.Store, categories, log.Component("category_requests")), nil
}

// ProvideTaxonomyImporter provides the taxonomy importer.
func ProvideTaxonomyImporter(i do.Injector) (*taxonomy.Importer, error) {
	categories := do.MustInvoke[*service.CategoryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return taxonomy.NewImporter(categories, log.Component("taxonomy")), nil
}
