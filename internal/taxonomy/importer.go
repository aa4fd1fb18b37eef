package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/service"
)

// CategoryWriter is the part of the category service the importer uses.
type CategoryWriter interface {
	Create(ctx context.Context, req service.CreateCategoryRequest) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string, withChildren bool) (*domain.Category, error)
}

// Result summarizes an import.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Importer creates missing taxonomy categories through the category
// service, so every invariant it enforces applies to imported data too.
type Importer struct {
	categories CategoryWriter
	logger     *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(categories CategoryWriter, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{categories: categories, logger: logger}
}

// Apply walks seeds top-down. A node whose slug already exists is skipped
// and its children are attached below the existing category.
func (im *Importer) Apply(ctx context.Context, seeds []category.Seed) (Result, error) {
	var res Result
	err := im.apply(ctx, seeds, "", &res)

	im.logger.Info("taxonomy applied", "created", res.Created, "skipped", res.Skipped)
	return res, err
}

func (im *Importer) apply(ctx context.Context, seeds []category.Seed, parentID string, res *Result) error {
	for _, s := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}

		slug := s.SlugOrDefault()
		existing, err := im.categories.GetBySlug(ctx, slug, false)
		switch {
		case err == nil:
			res.Skipped++
		case errors.Is(err, domainerrors.ErrNotFound):
			existing, err = im.categories.Create(ctx, service.CreateCategoryRequest{
				Name:         s.Name,
				Slug:         slug,
				Description:  s.Description,
				ParentID:     parentID,
				DisplayOrder: s.DisplayOrder,
			})
			if err != nil {
				return fmt.Errorf("create %q: %w", s.Name, err)
			}
			res.Created++
		default:
			return fmt.Errorf("look up %q: %w", slug, err)
		}

		if err := im.apply(ctx, s.Children, existing.ID, res); err != nil {
			return err
		}
	}
	return nil
}

// Seed applies the built-in starter taxonomy.
func (im *Importer) Seed(ctx context.Context) (Result, error) {
	return im.Apply(ctx, category.DefaultTaxonomy)
}
