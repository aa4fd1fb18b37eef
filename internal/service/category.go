package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/id"
	"github.com/tradepost/catalog-server/internal/search"
	"github.com/tradepost/catalog-server/internal/store"
	"github.com/tradepost/catalog-server/internal/validation"
)

// CategoryRepository is the persistence the category service needs.
type CategoryRepository interface {
	store.CategoryStore
	store.ProductLinkStore
}

// CategoryIndexer keeps the storefront search index in step with mutations.
type CategoryIndexer interface {
	IndexCategories(ctx context.Context, categories ...*domain.Category) error
	DeleteCategories(ctx context.Context, ids ...string) error
	Search(ctx context.Context, params search.Params) (*search.Result, error)
}

// ErrHasSubcategories is returned when deleting a category that still has
// children.
var ErrHasSubcategories = domainerrors.Conflict("category has subcategories; delete or move them first")

// CategoryService is the only way categories are mutated. It enforces the
// tree invariants: unique slugs, no parent cycles, and level, ancestors and
// path consistent with the ParentID chain for every node.
type CategoryService struct {
	store     CategoryRepository
	index     CategoryIndexer
	logger    *slog.Logger
	validator *validation.Validator

	// mu serializes read-check-write for every mutation in this process.
	mu sync.Mutex
}

// NewCategoryService creates a category service. index may be nil, in which
// case storefront search falls back to the in-memory substring search.
func NewCategoryService(s CategoryRepository, index CategoryIndexer, logger *slog.Logger) *CategoryService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CategoryService{
		store:     s,
		index:     index,
		logger:    logger,
		validator: validation.New(),
	}
}

// CreateCategoryRequest contains fields for creating a category.
type CreateCategoryRequest struct {
	Name         string           `json:"name" validate:"required,notblank,max=255"`
	Slug         string           `json:"slug,omitempty" validate:"omitempty,max=255,slug"`
	Description  string           `json:"description,omitempty" validate:"max=1000"`
	ParentID     string           `json:"parent_id,omitempty"`
	DisplayOrder int              `json:"display_order,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
	ImageURL     string           `json:"image_url,omitempty" validate:"omitempty,url,max=2048"`
	Metadata     *domain.Metadata `json:"metadata,omitempty"`
}

// Create validates and stores a new category.
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*domain.Category, error) {
	return s.create(ctx, req, "")
}

// create stores a new category under categoryID, generating one when it is
// empty.
func (s *CategoryService) create(ctx context.Context, req CreateCategoryRequest, categoryID string) (*domain.Category, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	slug := req.Slug
	if slug == "" {
		slug = category.GenerateSlug(name)
	}
	if slug == "" {
		return nil, domainerrors.ValidationOn("slug", "cannot be derived from name; provide a slug")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var parent *domain.Category
	if req.ParentID != "" {
		p, err := s.store.GetCategory(ctx, req.ParentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundOn("parent_id", "parent category not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load parent: %w", err)
		}
		parent = p
	}

	if _, err := s.store.GetCategoryBySlug(ctx, slug); err == nil {
		return nil, domainerrors.ConflictOn("slug", fmt.Sprintf("slug %q is already in use", slug))
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	if categoryID == "" {
		generated, err := id.Generate(id.PrefixCategory)
		if err != nil {
			return nil, err
		}
		categoryID = generated
	}

	c := &domain.Category{
		Record:       domain.Record{ID: categoryID},
		Name:         name,
		Slug:         slug,
		Description:  normalizeDescription(req.Description),
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		IsActive:     req.IsActive == nil || *req.IsActive,
		ImageURL:     req.ImageURL,
		Metadata:     req.Metadata,
	}
	category.LineageOf(parent, slug).Apply(c)
	c.InitTimestamps()

	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, translateStoreError(err, "slug", "parent_id")
	}

	s.reindex(ctx, c)
	s.logger.Info("category created", "id", c.ID, "slug", c.Slug, "level", c.Level)
	return c, nil
}

// UpdateCategoryRequest is a partial update; nil fields are left unchanged.
// An empty ParentID moves the category to the root.
type UpdateCategoryRequest struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Slug         *string          `json:"slug,omitempty" validate:"omitempty,slug,max=255"`
	Description  *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	ParentID     *string          `json:"parent_id,omitempty"`
	DisplayOrder *int             `json:"display_order,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
	ImageURL     *string          `json:"image_url,omitempty" validate:"omitempty,max=2048"`
	Metadata     *domain.Metadata `json:"metadata,omitempty"`
}

// Update applies a partial update. Moving or renaming a category rewrites
// the lineage of its whole subtree in one batch.
func (s *CategoryService) Update(ctx context.Context, categoryID string, req UpdateCategoryRequest) (*domain.Category, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := tree.Get(categoryID)
	if !ok {
		return nil, domainerrors.NotFound("category not found")
	}

	updated := current.Clone()
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		updated.Slug = *req.Slug
	}
	if req.Description != nil {
		updated.Description = normalizeDescription(*req.Description)
	}
	if req.ParentID != nil {
		updated.ParentID = *req.ParentID
	}
	if req.DisplayOrder != nil {
		updated.DisplayOrder = *req.DisplayOrder
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.ImageURL != nil {
		updated.ImageURL = *req.ImageURL
	}
	if req.Metadata != nil {
		updated.Metadata = req.Metadata
	}

	if updated.ParentID != current.ParentID && updated.ParentID != "" {
		if updated.ParentID == categoryID || category.IsDescendant(categoryID, updated.ParentID, tree) {
			return nil, domainerrors.ConflictOn("parent_id",
				"a category cannot be moved under itself or one of its descendants")
		}
		if _, ok := tree.Get(updated.ParentID); !ok {
			return nil, domainerrors.NotFoundOn("parent_id", "parent category not found")
		}
	}

	if updated.Slug != current.Slug {
		for _, other := range tree.Map {
			if other.ID != categoryID && other.Slug == updated.Slug {
				return nil, domainerrors.ConflictOn("slug", fmt.Sprintf("slug %q is already in use", updated.Slug))
			}
		}
	}

	updated.Touch()
	batch := []*domain.Category{updated}
	if updated.ParentID != current.ParentID || updated.Name != current.Name || updated.Slug != current.Slug {
		batch = category.Cascade(tree, updated)
		for _, d := range batch[1:] {
			d.UpdatedAt = updated.UpdatedAt
		}
	}

	if err := s.store.UpdateCategories(ctx, batch...); err != nil {
		return nil, translateStoreError(err, "slug", "parent_id")
	}

	s.reindex(ctx, batch...)
	s.logger.Info("category updated",
		"id", categoryID,
		"slug", updated.Slug,
		"level", batch[0].Level,
		"cascaded", len(batch)-1,
	)

	return s.Get(ctx, categoryID)
}

// Delete removes a category that has no subcategories, together with its
// product links, and returns its ID.
func (s *CategoryService) Delete(ctx context.Context, categoryID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadTree(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := tree.Get(categoryID); !ok {
		return "", domainerrors.NotFound("category not found")
	}
	if len(category.Descendants(categoryID, tree)) > 0 {
		return "", ErrHasSubcategories
	}

	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		if errors.Is(err, store.ErrHasChildren) {
			return "", ErrHasSubcategories
		}
		return "", translateStoreError(err, "id", "id")
	}

	if s.index != nil {
		if err := s.index.DeleteCategories(ctx, categoryID); err != nil {
			s.logger.Warn("failed to remove category from search index", "id", categoryID, "error", err)
		}
	}
	s.logger.Info("category deleted", "id", categoryID)
	return categoryID, nil
}

// Get returns a single category.
func (s *CategoryService) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("category not found")
	}
	return c, err
}

// GetBySlug returns a category by slug, optionally with its direct children.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string, withChildren bool) (*domain.Category, error) {
	c, err := s.store.GetCategoryBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("category not found")
	}
	if err != nil {
		return nil, err
	}
	if withChildren {
		children, err := s.store.GetChildren(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Children = children
	}
	return c, nil
}

// List returns every category in tree pre-order. With activeOnly, inactive
// categories and everything below them are left out.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	tree, err := s.Tree(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return detach(tree.Flatten()), nil
}

// Tree builds the category forest from the store.
func (s *CategoryService) Tree(ctx context.Context, activeOnly bool) (*category.Tree, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		return tree.ActiveOnly(), nil
	}
	return tree, nil
}

// Breadcrumbs returns the root-to-category chain.
func (s *CategoryService) Breadcrumbs(ctx context.Context, categoryID string) ([]category.Breadcrumb, error) {
	c, err := s.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return category.Breadcrumbs(c), nil
}

// Descendants returns every category below categoryID in pre-order.
func (s *CategoryService) Descendants(ctx context.Context, categoryID string) ([]*domain.Category, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(categoryID); !ok {
		return nil, domainerrors.NotFound("category not found")
	}

	descendants, revisited := category.DescendantsChecked(categoryID, tree)
	if len(revisited) > 0 {
		s.logger.Warn("category tree integrity problem", "id", categoryID, "revisited", revisited)
	}
	return detach(descendants), nil
}

// Siblings returns the other categories sharing categoryID's parent.
func (s *CategoryService) Siblings(ctx context.Context, categoryID string) ([]*domain.Category, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(categoryID); !ok {
		return nil, domainerrors.NotFound("category not found")
	}
	return detach(category.Siblings(categoryID, tree)), nil
}

// Picker lists the forest for a parent dropdown, leaving out excludeID and
// its subtree.
func (s *CategoryService) Picker(ctx context.Context, excludeID string) ([]category.PickerEntry, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	return category.FlattenForPicker(tree.Roots, excludeID), nil
}

// Search is the admin substring search over name, description and slug.
// A limit of zero or less returns every match.
func (s *CategoryService) Search(ctx context.Context, term string, limit int) ([]*domain.Category, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(detach(category.Search(term, tree)), limit), nil
}

// StorefrontSearch matches active categories the same way Search does and
// orders them by index relevance. Matches the index does not score keep
// their tree order after the scored ones.
func (s *CategoryService) StorefrontSearch(ctx context.Context, term string, limit int) ([]*domain.Category, error) {
	if limit <= 0 {
		limit = 20
	}

	tree, err := s.Tree(ctx, true)
	if err != nil {
		return nil, err
	}
	matches := detach(category.Search(term, tree))
	if len(matches) < 2 || s.index == nil {
		return truncate(matches, limit), nil
	}

	res, err := s.index.Search(ctx, search.Params{Query: term, Limit: tree.Len(), ActiveOnly: true})
	if err != nil {
		s.logger.Warn("search index query failed, returning unranked matches", "error", err)
		return truncate(matches, limit), nil
	}
	scores := make(map[string]float64, len(res.Hits))
	for _, h := range res.Hits {
		scores[h.ID] = h.Score
	}
	slices.SortStableFunc(matches, func(a, b *domain.Category) int {
		return cmp.Compare(scores[b.ID], scores[a.ID])
	})
	return truncate(matches, limit), nil
}

// ProductsInCategory pages through product IDs linked to a category and,
// when includeDescendants is set, to every category below it.
func (s *CategoryService) ProductsInCategory(ctx context.Context, categoryID string, includeDescendants bool, page store.Page) (store.PageResult[string], error) {
	ids := []string{categoryID}
	if includeDescendants {
		tree, err := s.loadTree(ctx)
		if err != nil {
			return store.PageResult[string]{}, err
		}
		if _, ok := tree.Get(categoryID); !ok {
			return store.PageResult[string]{}, domainerrors.NotFound("category not found")
		}
		for _, d := range category.Descendants(categoryID, tree) {
			ids = append(ids, d.ID)
		}
	} else if _, err := s.Get(ctx, categoryID); err != nil {
		return store.PageResult[string]{}, err
	}
	return s.store.ListProductIDs(ctx, ids, page)
}

// LinkProduct attaches a product to a category.
func (s *CategoryService) LinkProduct(ctx context.Context, categoryID, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return domainerrors.ValidationOn("product_id", "is required")
	}
	if err := s.store.LinkProduct(ctx, categoryID, productID); err != nil {
		return translateStoreError(err, "product_id", "category_id")
	}
	return nil
}

// UnlinkProduct detaches a product from a category.
func (s *CategoryService) UnlinkProduct(ctx context.Context, categoryID, productID string) error {
	return s.store.UnlinkProduct(ctx, categoryID, productID)
}

// Verify reports every stored inconsistency with the tree invariants.
func (s *CategoryService) Verify(ctx context.Context) ([]category.Violation, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	violations := category.Verify(tree)
	if violations == nil {
		violations = []category.Violation{}
	}
	return violations, nil
}

// Repair rewrites level, ancestors and path from the ParentID chain and
// detaches orphans and cycle members to the root. It returns the number of
// categories rewritten.
func (s *CategoryService) Repair(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadTree(ctx)
	if err != nil {
		return 0, err
	}
	fixed := category.Repair(tree)
	if len(fixed) == 0 {
		return 0, nil
	}
	for _, c := range fixed {
		c.Touch()
	}
	if err := s.store.UpdateCategories(ctx, fixed...); err != nil {
		return 0, fmt.Errorf("write repaired categories: %w", err)
	}

	s.reindex(ctx, fixed...)
	s.logger.Warn("category tree repaired", "rewritten", len(fixed))
	return len(fixed), nil
}

// Reindex rebuilds the search index from the store.
func (s *CategoryService) Reindex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	all, err := s.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	return s.index.IndexCategories(ctx, all...)
}

func (s *CategoryService) loadTree(ctx context.Context) (*category.Tree, error) {
	all, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	tree := category.BuildTree(all)
	if len(tree.Orphans) > 0 || len(tree.CycleBreaks) > 0 {
		s.logger.Warn("category tree integrity problem",
			"orphans", tree.Orphans,
			"cycles", tree.CycleBreaks,
		)
	}
	return tree, nil
}

// reindex is best effort: the store is the source of truth and a failed
// index update is repaired by the next Reindex.
func (s *CategoryService) reindex(ctx context.Context, categories ...*domain.Category) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexCategories(ctx, categories...); err != nil {
		s.logger.Warn("failed to index categories", "count", len(categories), "error", err)
	}
}

// translateStoreError maps store sentinels onto domain errors attributed to
// the request fields that caused them.
func translateStoreError(err error, conflictField, missingField string) error {
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.ConflictOn(conflictField, err.Error()).WithCause(err)
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundOn(missingField, err.Error()).WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(err.Error()).WithCause(err)
	}
	return err
}

// detach copies categories without their in-memory children links, so flat
// listings do not serialize whole subtrees.
func detach(categories []*domain.Category) []*domain.Category {
	out := make([]*domain.Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Clone())
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return slices.Clip(items[:limit])
	}
	return items
}
