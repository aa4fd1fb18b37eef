package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/tradepost/catalog-server/internal/domain"
	"github.com/tradepost/catalog-server/internal/store"
)

// Aggregates are computed per row at read time. Slugs never contain LIKE
// wildcards, so the path prefix match is exact.
const (
	childrenCountColumn   = "(SELECT COUNT(*) FROM categories ch WHERE ch.parent_id = c.id) AS children_count"
	descendantCountColumn = "(SELECT COUNT(*) FROM categories d WHERE d.path LIKE c.path || '/%') AS descendant_count"
	productCountColumn    = "(SELECT COUNT(*) FROM category_products p WHERE p.category_id = c.id) AS product_count"
)

func (s *Store) selectCategories() sq.SelectBuilder {
	cols := make([]string, 0, len(categoryColumns)+3)
	for _, col := range categoryColumns {
		cols = append(cols, "c."+col)
	}
	cols = append(cols, childrenCountColumn, descendantCountColumn, productCountColumn)
	return s.sb.Select(cols...).From("categories c")
}

func (s *Store) listCategories(ctx context.Context, b sq.SelectBuilder) ([]*domain.Category, error) {
	var rows []categoryRow
	if err := selectAll(ctx, s.db, &rows, b); err != nil {
		return nil, err
	}
	out := make([]*domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) getCategory(ctx context.Context, where sq.Eq) (*domain.Category, error) {
	var row categoryRow
	if err := get(ctx, s.db, &row, s.selectCategories().Where(where)); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListCategories returns every category ordered by path.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.listCategories(ctx, s.selectCategories().OrderBy("c.path"))
}

// GetCategory retrieves a category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.getCategory(ctx, sq.Eq{"c.id": id})
}

// GetCategoryBySlug retrieves a category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return s.getCategory(ctx, sq.Eq{"c.slug": slug})
}

// GetChildren returns the direct children of parentID.
func (s *Store) GetChildren(ctx context.Context, parentID string) ([]*domain.Category, error) {
	b := s.selectCategories().OrderBy("c.display_order", "c.name")
	if parentID == "" {
		b = b.Where(sq.Eq{"c.parent_id": nil})
	} else {
		b = b.Where(sq.Eq{"c.parent_id": parentID})
	}
	return s.listCategories(ctx, b)
}

// CountCategories returns the number of stored categories.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	var n int
	err := get(ctx, s.db, &n, s.sb.Select("COUNT(*)").From("categories"))
	return n, err
}

// CreateCategory inserts a new category.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	row := newCategoryRow(c)
	_, err := exec(ctx, s.db, s.sb.Insert("categories").Columns(categoryColumns...).Values(row.values()...))
	return s.translate(err, "category already exists", "parent category not found")
}

// UpdateCategories rewrites categories in one transaction.
func (s *Store) UpdateCategories(ctx context.Context, categories ...*domain.Category) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range categories {
			row := newCategoryRow(c)
			n, err := exec(ctx, tx, s.sb.Update("categories").SetMap(row.setMap()).Where(sq.Eq{"id": c.ID}))
			if err != nil {
				return s.translate(err, "category slug already exists", "parent category not found")
			}
			if n == 0 {
				return store.ErrNotFound.WithMessage("category " + c.ID + " not found")
			}
		}
		return nil
	})
}

// DeleteCategory removes a leaf category along with its product links.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var children int
		if err := get(ctx, tx, &children,
			s.sb.Select("COUNT(*)").From("categories").Where(sq.Eq{"parent_id": id})); err != nil {
			return err
		}
		if children > 0 {
			return store.ErrHasChildren
		}

		if _, err := exec(ctx, tx, s.sb.Delete("category_products").Where(sq.Eq{"category_id": id})); err != nil {
			return err
		}
		n, err := exec(ctx, tx, s.sb.Delete("categories").Where(sq.Eq{"id": id}))
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

