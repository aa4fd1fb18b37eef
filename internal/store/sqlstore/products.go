package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/tradepost/catalog-server/internal/store"
)

// LinkProduct attaches a product to a category. Existing links are kept.
func (s *Store) LinkProduct(ctx context.Context, categoryID, productID string) error {
	_, err := exec(ctx, s.db, s.sb.Insert("category_products").
		Columns("category_id", "product_id").
		Values(categoryID, productID).
		Suffix("ON CONFLICT DO NOTHING"))
	return s.translate(err, "product already linked", "category not found")
}

// UnlinkProduct detaches a product from a category. Missing links are ignored.
func (s *Store) UnlinkProduct(ctx context.Context, categoryID, productID string) error {
	_, err := exec(ctx, s.db, s.sb.Delete("category_products").
		Where(sq.Eq{"category_id": categoryID, "product_id": productID}))
	return err
}

// ListProductIDs pages through products linked to any of categoryIDs.
func (s *Store) ListProductIDs(ctx context.Context, categoryIDs []string, page store.Page) (store.PageResult[string], error) {
	page.Normalize()
	if len(categoryIDs) == 0 {
		return store.NewPageResult[string](nil, 0, page), nil
	}
	where := sq.Eq{"category_id": categoryIDs}

	var total int
	if err := get(ctx, s.db, &total,
		s.sb.Select("COUNT(DISTINCT product_id)").From("category_products").Where(where)); err != nil {
		return store.PageResult[string]{}, err
	}

	var ids []string
	if err := selectAll(ctx, s.db, &ids, s.sb.Select("DISTINCT product_id").
		From("category_products").
		Where(where).
		OrderBy("product_id").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))); err != nil {
		return store.PageResult[string]{}, err
	}
	return store.NewPageResult(ids, total, page), nil
}
