package category

import (
	"github.com/tradepost/catalog-server/internal/domain"
)

// cat builds a category with a consistent lineage derived from parent.
func cat(id, name, parentID string, parent *domain.Category) *domain.Category {
	c := &domain.Category{
		Record:   domain.Record{ID: id},
		Name:     name,
		Slug:     GenerateSlug(name),
		ParentID: parentID,
		IsActive: true,
	}
	LineageOf(parent, c.Slug).Apply(c)
	return c
}

func ids(cs []*domain.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

// scenario returns A(root) > B > C and A > D.
func scenario() []*domain.Category {
	a := cat("A", "Apparel", "", nil)
	b := cat("B", "Bags", "A", a)
	c := cat("C", "Clutches", "B", b)
	d := cat("D", "Dresses", "A", a)
	return []*domain.Category{a, b, c, d}
}
