package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/tradepost/catalog-server/internal/domain"
)

// ListCategories returns every category ordered by path.
func (s *Badger) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(categoryPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var c domain.Category
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, &c)
		}

		for _, c := range out {
			annotate(txn, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b *domain.Category) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return out, nil
}

// GetCategory retrieves a category by ID.
func (s *Badger) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, categoryKey(id), &c); err != nil {
			return err
		}
		annotate(txn, &c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategoryBySlug retrieves a category by its slug.
func (s *Badger) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := slugOwner(txn, slug)
		if err != nil {
			return err
		}
		if id == "" {
			return ErrNotFound
		}
		if err := getJSON(txn, categoryKey(id), &c); err != nil {
			return err
		}
		annotate(txn, &c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChildren returns the direct children of parentID.
func (s *Badger) GetChildren(ctx context.Context, parentID string) ([]*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range keySuffixes(txn, categoryParentPrefix(parentID)) {
			var c domain.Category
			if err := getJSON(txn, categoryKey(id), &c); err != nil {
				return fmt.Errorf("child %s: %w", id, err)
			}
			annotate(txn, &c)
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b *domain.Category) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

// CountCategories returns the number of stored categories.
func (s *Badger) CountCategories(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		n = countPrefix(txn, []byte(categoryPrefix))
		return nil
	})
	return n, err
}

// CreateCategory stores a new category and its indexes.
func (s *Badger) CreateCategory(ctx context.Context, c *domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, categoryKey(c.ID))
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists.WithMessage("category id already exists")
		}
		if owner, err := slugOwner(txn, c.Slug); err != nil {
			return err
		} else if owner != "" {
			return ErrAlreadyExists.WithMessage("category slug already exists")
		}
		if c.ParentID != "" {
			if ok, err := exists(txn, categoryKey(c.ParentID)); err != nil {
				return err
			} else if !ok {
				return ErrNotFound.WithMessage("parent category not found")
			}
		}
		return putCategory(txn, c)
	})
}

// UpdateCategories rewrites categories and their indexes in one transaction.
func (s *Badger) UpdateCategories(ctx context.Context, categories ...*domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, c := range categories {
			var old domain.Category
			if err := getJSON(txn, categoryKey(c.ID), &old); err != nil {
				if errors.Is(err, ErrNotFound) {
					return ErrNotFound.WithMessage("category " + c.ID + " not found")
				}
				return err
			}

			if old.Slug != c.Slug {
				owner, err := slugOwner(txn, c.Slug)
				if err != nil {
					return err
				}
				if owner != "" && owner != c.ID {
					return ErrAlreadyExists.WithMessage("category slug already exists")
				}
			}

			if err := dropIndexes(txn, &old); err != nil {
				return err
			}
			if err := putCategory(txn, c); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return ErrInvalidInput.WithMessage("too many categories in one update").WithCause(err)
	}
	return err
}

// DeleteCategory removes a leaf category along with its product links.
func (s *Badger) DeleteCategory(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var c domain.Category
		if err := getJSON(txn, categoryKey(id), &c); err != nil {
			return err
		}
		if countPrefix(txn, categoryParentPrefix(id)) > 0 {
			return ErrHasChildren
		}

		for _, productID := range keySuffixes(txn, categoryProductsPrefix(id)) {
			if err := txn.Delete(categoryProductKey(id, productID)); err != nil {
				return err
			}
		}
		if err := dropIndexes(txn, &c); err != nil {
			return err
		}
		return txn.Delete(categoryKey(id))
	})
}

// putCategory writes the record and its slug, parent and path indexes.
// Read-only aggregates and transient children are not persisted.
func putCategory(txn *badger.Txn, c *domain.Category) error {
	rec := c.Clone()
	rec.ProductCount, rec.ChildrenCount, rec.DescendantCount = 0, 0, 0

	if err := setJSON(txn, categoryKey(c.ID), rec); err != nil {
		return err
	}
	if err := txn.Set(categorySlugKey(c.Slug), []byte(c.ID)); err != nil {
		return err
	}
	if err := txn.Set(categoryParentKey(c.ParentID, c.ID), []byte{}); err != nil {
		return err
	}
	return txn.Set(categoryPathKey(c.Path), []byte(c.ID))
}

func dropIndexes(txn *badger.Txn, c *domain.Category) error {
	for _, key := range [][]byte{
		categorySlugKey(c.Slug),
		categoryParentKey(c.ParentID, c.ID),
		categoryPathKey(c.Path),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// slugOwner returns the ID owning slug, or "" when it is free.
func slugOwner(txn *badger.Txn, slug string) (string, error) {
	item, err := txn.Get(categorySlugKey(slug))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// annotate fills the read-time aggregates from the indexes.
func annotate(txn *badger.Txn, c *domain.Category) {
	c.ChildrenCount = countPrefix(txn, categoryParentPrefix(c.ID))
	c.DescendantCount = countPrefix(txn, descendantPathPrefix(c.Path))
	c.ProductCount = countPrefix(txn, categoryProductsPrefix(c.ID))
}
