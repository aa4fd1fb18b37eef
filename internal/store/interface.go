package store

import (
	"context"

	"github.com/tradepost/catalog-server/internal/domain"
)

// Store is the persistence boundary for the catalog. It is implemented by
// the Badger store in this package and by the SQL stores under sqlstore.
type Store interface {
	CategoryStore
	CategoryRequestStore
	ProductLinkStore
	MessageStore

	Close() error
}

// CategoryStore persists flat category records.
//
// Records returned by reads carry ProductCount, ChildrenCount and
// DescendantCount computed at read time. Children is never populated.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	// GetChildren returns the direct children of parentID ordered by
	// display order. An empty parentID lists root categories.
	GetChildren(ctx context.Context, parentID string) ([]*domain.Category, error)
	CountCategories(ctx context.Context) (int, error)

	// CreateCategory fails with ErrAlreadyExists on a duplicate ID or slug.
	CreateCategory(ctx context.Context, c *domain.Category) error
	// UpdateCategories writes every record or none of them.
	UpdateCategories(ctx context.Context, categories ...*domain.Category) error
	// DeleteCategory fails with ErrHasChildren while subcategories exist.
	// Product links to the category are removed with it.
	DeleteCategory(ctx context.Context, id string) error
}

// CategoryRequestFilter narrows ListCategoryRequests. Zero fields match all.
type CategoryRequestFilter struct {
	Status   domain.CategoryRequestStatus
	SellerID string
}

// CategoryRequestStore persists seller category proposals.
type CategoryRequestStore interface {
	CreateCategoryRequest(ctx context.Context, r *domain.CategoryRequest) error
	GetCategoryRequest(ctx context.Context, id string) (*domain.CategoryRequest, error)
	// ListCategoryRequests returns matches newest first.
	ListCategoryRequests(ctx context.Context, filter CategoryRequestFilter) ([]*domain.CategoryRequest, error)
	UpdateCategoryRequest(ctx context.Context, r *domain.CategoryRequest) error
}

// ProductLinkStore maps opaque product IDs onto categories.
type ProductLinkStore interface {
	// LinkProduct is idempotent. It fails with ErrNotFound for an unknown category.
	LinkProduct(ctx context.Context, categoryID, productID string) error
	UnlinkProduct(ctx context.Context, categoryID, productID string) error
	// ListProductIDs pages through the distinct products linked to any of
	// categoryIDs, ordered by product ID.
	ListProductIDs(ctx context.Context, categoryIDs []string, page Page) (PageResult[string], error)
}

// MessageStore persists direct messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *domain.Message) error
	// ListConversation returns up to limit of the most recent messages
	// exchanged between two users, oldest first.
	ListConversation(ctx context.Context, userA, userB string, limit int) ([]*domain.Message, error)
}
