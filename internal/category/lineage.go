package category

import (
	"slices"

	"github.com/tradepost/catalog-server/internal/domain"
)

// Lineage is the denormalized position of a category in the forest.
type Lineage struct {
	Level     int
	Ancestors []domain.AncestorRef
	Path      string
}

// LineageOf computes the lineage of a category with the given slug placed
// under parent. A nil parent means the category is a root.
func LineageOf(parent *domain.Category, slug string) Lineage {
	if parent == nil {
		return Lineage{
			Level:     0,
			Ancestors: []domain.AncestorRef{},
			Path:      "/" + slug,
		}
	}

	ancestors := make([]domain.AncestorRef, 0, len(parent.Ancestors)+1)
	ancestors = append(ancestors, parent.Ancestors...)
	ancestors = append(ancestors, parent.Ref())

	return Lineage{
		Level:     parent.Level + 1,
		Ancestors: ancestors,
		Path:      parent.Path + "/" + slug,
	}
}

// Apply writes the lineage onto c.
func (l Lineage) Apply(c *domain.Category) {
	c.Level = l.Level
	c.Ancestors = slices.Clone(l.Ancestors)
	c.Path = l.Path
}

// Matches reports whether c already carries this lineage.
func (l Lineage) Matches(c *domain.Category) bool {
	return c.Level == l.Level && c.Path == l.Path && slices.Equal(c.Ancestors, l.Ancestors)
}

// Cascade recomputes lineage for a changed category and its whole subtree.
//
// changed is the category as it should look after the update (new name,
// slug or parent already applied). Its new parent is looked up in t, and the
// subtree is taken from the children links of the category's current node in
// t. The returned slice holds fresh copies in pre-order, starting with the
// changed category; t itself is not modified.
//
// The caller must have rejected a parent that is the category itself or one
// of its descendants.
func Cascade(t *Tree, changed *domain.Category) []*domain.Category {
	var parent *domain.Category
	if changed.ParentID != "" {
		parent = t.Map[changed.ParentID]
	}

	head := changed.Clone()
	LineageOf(parent, head.Slug).Apply(head)

	out := []*domain.Category{}
	visited := map[string]bool{}
	stack := []*domain.Category{head}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n.ID] {
			continue
		}
		visited[n.ID] = true
		out = append(out, n)

		current, ok := t.Map[n.ID]
		if !ok {
			continue
		}
		for i := len(current.Children) - 1; i >= 0; i-- {
			child := current.Children[i].Clone()
			LineageOf(n, child.Slug).Apply(child)
			stack = append(stack, child)
		}
	}
	return out
}
