package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/tradepost/catalog-server/internal/domain"
	"github.com/tradepost/catalog-server/internal/store"
)

// CreateCategoryRequest stores a new seller proposal.
func (s *Store) CreateCategoryRequest(ctx context.Context, r *domain.CategoryRequest) error {
	row := newCategoryRequestRow(r)
	_, err := exec(ctx, s.db,
		s.sb.Insert("category_requests").Columns(categoryRequestColumns...).Values(row.values()...))
	return s.translate(err, "category request already exists", "category request not found")
}

// GetCategoryRequest retrieves a proposal by ID.
func (s *Store) GetCategoryRequest(ctx context.Context, id string) (*domain.CategoryRequest, error) {
	var row categoryRequestRow
	err := get(ctx, s.db, &row,
		s.sb.Select(categoryRequestColumns...).From("category_requests").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListCategoryRequests returns matching proposals, newest first.
func (s *Store) ListCategoryRequests(ctx context.Context, filter store.CategoryRequestFilter) ([]*domain.CategoryRequest, error) {
	b := s.sb.Select(categoryRequestColumns...).From("category_requests").OrderBy("created_at DESC", "id DESC")
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.SellerID != "" {
		b = b.Where(sq.Eq{"seller_id": filter.SellerID})
	}

	var rows []categoryRequestRow
	if err := selectAll(ctx, s.db, &rows, b); err != nil {
		return nil, err
	}
	out := make([]*domain.CategoryRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpdateCategoryRequest replaces an existing proposal.
func (s *Store) UpdateCategoryRequest(ctx context.Context, r *domain.CategoryRequest) error {
	row := newCategoryRequestRow(r)
	n, err := exec(ctx, s.db, s.sb.Update("category_requests").SetMap(map[string]any{
		"seller_id":           row.SellerID,
		"proposed_name":       row.ProposedName,
		"proposed_slug":       row.ProposedSlug,
		"parent_category_id":  row.ParentCategoryID,
		"seller_reason":       row.SellerReason,
		"status":              row.Status,
		"reviewer_id":         row.ReviewerID,
		"review_note":         row.ReviewNote,
		"created_category_id": row.CreatedCategoryID,
		"updated_at":          row.UpdatedAt,
	}).Where(sq.Eq{"id": r.ID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("category request not found")
	}
	return nil
}
