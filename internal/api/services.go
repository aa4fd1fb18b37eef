package api

import (
	"context"

	"github.com/tradepost/catalog-server/internal/messaging"
	"github.com/tradepost/catalog-server/internal/service"
)

// Services groups the business logic used by the API server.
type Services struct {
	Categories *service.CategoryService
	Requests   *service.CategoryRequestService
	Hub        *messaging.Hub
	// Health probes, optional.
	Store HealthChecker
	Index IndexStats
}

// HealthChecker is satisfied by every record store.
type HealthChecker interface {
	CountCategories(ctx context.Context) (int, error)
}

// IndexStats reports on the search index.
type IndexStats interface {
	DocumentCount() (uint64, error)
}
