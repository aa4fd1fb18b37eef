// Package category holds the pure category hierarchy logic: building a tree
// from flat records, navigating it, searching it and keeping the denormalized
// level/ancestors/path fields consistent. Nothing here performs I/O.
package category

import (
	"cmp"
	"slices"

	"github.com/tradepost/catalog-server/internal/domain"
)

// Tree is an in-memory view of the category forest.
// It is rebuilt from scratch on every load and never patched in place.
type Tree struct {
	// Roots holds categories without a parent, categories whose parent is
	// missing from the input, and categories promoted to break a cycle.
	Roots []*domain.Category
	// Map indexes every category by ID.
	Map map[string]*domain.Category
	// Orphans lists IDs whose ParentID did not resolve.
	Orphans []string
	// CycleBreaks lists IDs that were detached from a parent cycle.
	CycleBreaks []string
}

// BuildTree converts a flat list of categories into a tree.
// The input records are copied, never modified. Duplicate IDs keep the first
// occurrence.
func BuildTree(flat []*domain.Category) *Tree {
	t := &Tree{
		Roots: []*domain.Category{},
		Map:   make(map[string]*domain.Category, len(flat)),
	}

	nodes := make([]*domain.Category, 0, len(flat))
	for _, c := range flat {
		if c == nil {
			continue
		}
		if _, dup := t.Map[c.ID]; dup {
			continue
		}
		n := c.Clone()
		n.Children = []*domain.Category{}
		t.Map[n.ID] = n
		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		if n.ParentID == "" {
			t.Roots = append(t.Roots, n)
			continue
		}
		parent, ok := t.Map[n.ParentID]
		if !ok {
			t.Orphans = append(t.Orphans, n.ID)
			t.Roots = append(t.Roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	t.breakCycles(nodes)
	t.sort()

	return t
}

// breakCycles promotes the first node (in input order) of every parent cycle
// to a root so each category is reachable exactly once from Roots.
func (t *Tree) breakCycles(nodes []*domain.Category) {
	reached := make(map[string]bool, len(nodes))
	mark := func(from *domain.Category) {
		stack := []*domain.Category{from}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reached[n.ID] {
				continue
			}
			reached[n.ID] = true
			stack = append(stack, n.Children...)
		}
	}

	for _, r := range t.Roots {
		mark(r)
	}

	for _, n := range nodes {
		if reached[n.ID] {
			continue
		}
		parent := t.Map[n.ParentID]
		parent.Children = slices.DeleteFunc(parent.Children, func(c *domain.Category) bool {
			return c.ID == n.ID
		})
		t.Roots = append(t.Roots, n)
		t.CycleBreaks = append(t.CycleBreaks, n.ID)
		mark(n)
	}
}

// sort orders roots and every child list by DisplayOrder. The sort is stable,
// so equal DisplayOrder keeps input order.
func (t *Tree) sort() {
	byOrder := func(a, b *domain.Category) int {
		return cmp.Compare(a.DisplayOrder, b.DisplayOrder)
	}
	slices.SortStableFunc(t.Roots, byOrder)
	for _, n := range t.Map {
		slices.SortStableFunc(n.Children, byOrder)
	}
}

// Get returns the category with the given ID.
func (t *Tree) Get(id string) (*domain.Category, bool) {
	c, ok := t.Map[id]
	return c, ok
}

// Len returns the number of categories in the tree.
func (t *Tree) Len() int {
	return len(t.Map)
}

// Flatten returns every category in pre-order: each parent before its
// children, and a child's whole subtree before its next sibling.
func (t *Tree) Flatten() []*domain.Category {
	out := make([]*domain.Category, 0, len(t.Map))
	walkPreOrder(t.Roots, func(c *domain.Category, _ int) bool {
		out = append(out, c)
		return true
	})
	return out
}

// ActiveOnly returns a new tree without inactive categories. A category
// whose ancestor is inactive is dropped as well.
func (t *Tree) ActiveOnly() *Tree {
	var keep []*domain.Category
	walkPreOrder(t.Roots, func(c *domain.Category, _ int) bool {
		if !c.IsActive {
			return false
		}
		keep = append(keep, c)
		return true
	})
	return BuildTree(keep)
}

// walkPreOrder visits nodes depth-first using an explicit stack. Returning
// false from visit skips the node's subtree. Each ID is visited at most once.
func walkPreOrder(roots []*domain.Category, visit func(c *domain.Category, depth int) bool) {
	type frame struct {
		node  *domain.Category
		depth int
	}

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}

	seen := make(map[string]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[f.node.ID] {
			continue
		}
		seen[f.node.ID] = true

		if !visit(f.node, f.depth) {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}
