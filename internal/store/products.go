package store

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

// LinkProduct attaches a product to a category.
func (s *Badger) LinkProduct(ctx context.Context, categoryID, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		ok, err := exists(txn, categoryKey(categoryID))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound.WithMessage("category not found")
		}
		return txn.Set(categoryProductKey(categoryID, productID), []byte{})
	})
}

// UnlinkProduct detaches a product from a category. Missing links are ignored.
func (s *Badger) UnlinkProduct(ctx context.Context, categoryID, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(categoryProductKey(categoryID, productID))
	})
}

// ListProductIDs pages through products linked to any of categoryIDs.
func (s *Badger) ListProductIDs(ctx context.Context, categoryIDs []string, page Page) (PageResult[string], error) {
	page.Normalize()
	if err := ctx.Err(); err != nil {
		return PageResult[string]{}, err
	}

	seen := make(map[string]bool)
	var all []string
	err := s.db.View(func(txn *badger.Txn) error {
		for _, categoryID := range categoryIDs {
			for _, suffix := range keySuffixes(txn, categoryProductsPrefix(categoryID)) {
				if !seen[suffix] {
					seen[suffix] = true
					all = append(all, suffix)
				}
			}
		}
		return nil
	})
	if err != nil {
		return PageResult[string]{}, err
	}

	slices.Sort(all)
	total := len(all)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	return NewPageResult(all[start:end], total, page), nil
}
