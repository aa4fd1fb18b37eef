package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/tradepost/catalog-server/internal/domain"
)

// CreateCategoryRequest stores a new seller proposal.
func (s *Badger) CreateCategoryRequest(ctx context.Context, r *domain.CategoryRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, categoryRequestKey(r.ID))
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists.WithMessage("category request already exists")
		}
		return setJSON(txn, categoryRequestKey(r.ID), r)
	})
}

// GetCategoryRequest retrieves a proposal by ID.
func (s *Badger) GetCategoryRequest(ctx context.Context, id string) (*domain.CategoryRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r domain.CategoryRequest
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, categoryRequestKey(id), &r)
	}); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListCategoryRequests scans all proposals and filters them in memory.
// Request volume is small relative to categories.
func (s *Badger) ListCategoryRequests(ctx context.Context, filter CategoryRequestFilter) ([]*domain.CategoryRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []*domain.CategoryRequest{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(categoryRequestPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r domain.CategoryRequest
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if filter.Status != "" && r.Status != filter.Status {
				continue
			}
			if filter.SellerID != "" && r.SellerID != filter.SellerID {
				continue
			}
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b *domain.CategoryRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// UpdateCategoryRequest replaces an existing proposal.
func (s *Badger) UpdateCategoryRequest(ctx context.Context, r *domain.CategoryRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, categoryRequestKey(r.ID))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound.WithMessage("category request not found")
		}
		return setJSON(txn, categoryRequestKey(r.ID), r)
	})
}
