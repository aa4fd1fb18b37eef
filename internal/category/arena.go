package category

import "github.com/tradepost/catalog-server/internal/domain"

// ArenaNode is one category in an Arena. Parent and Children are indexes
// into Arena.Nodes; Parent is -1 for roots.
type ArenaNode struct {
	Category *domain.Category
	Parent   int
	Children []int
	Depth    int
}

// Arena is a flat, index-linked copy of a tree for renderers that keep
// their own expand/select state. Nodes are stored in pre-order.
type Arena struct {
	Nodes []ArenaNode
	Roots []int
	index map[string]int
}

// NewArena lays out t in pre-order.
func NewArena(t *Tree) *Arena {
	a := &Arena{
		Nodes: make([]ArenaNode, 0, t.Len()),
		index: make(map[string]int, t.Len()),
	}

	parents := make(map[string]int, t.Len())
	walkPreOrder(t.Roots, func(c *domain.Category, depth int) bool {
		i := len(a.Nodes)
		parent := -1
		if depth > 0 {
			parent = parents[c.ID]
		}
		a.Nodes = append(a.Nodes, ArenaNode{Category: c, Parent: parent, Depth: depth})
		a.index[c.ID] = i

		if parent < 0 {
			a.Roots = append(a.Roots, i)
		} else {
			a.Nodes[parent].Children = append(a.Nodes[parent].Children, i)
		}
		for _, child := range c.Children {
			parents[child.ID] = i
		}
		return true
	})
	return a
}

// Index returns the arena index of the category with the given ID.
func (a *Arena) Index(id string) (int, bool) {
	i, ok := a.index[id]
	return i, ok
}

// Len returns the number of nodes.
func (a *Arena) Len() int {
	return len(a.Nodes)
}

// Visible returns, in display order, the indexes of nodes that should be
// rendered when the categories in expanded are open. Roots are always
// visible; a child is visible when every ancestor is expanded.
func (a *Arena) Visible(expanded map[string]bool) []int {
	out := make([]int, 0, len(a.Roots))
	stack := make([]int, 0, len(a.Roots))
	for i := len(a.Roots) - 1; i >= 0; i-- {
		stack = append(stack, a.Roots[i])
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, i)

		n := a.Nodes[i]
		if !expanded[n.Category.ID] {
			continue
		}
		for j := len(n.Children) - 1; j >= 0; j-- {
			stack = append(stack, n.Children[j])
		}
	}
	return out
}

// ExpandTo returns a copy of expanded with every ancestor of id opened, so
// that id becomes visible.
func (a *Arena) ExpandTo(expanded map[string]bool, id string) map[string]bool {
	out := make(map[string]bool, len(expanded))
	for k, v := range expanded {
		out[k] = v
	}
	i, ok := a.index[id]
	if !ok {
		return out
	}
	for p := a.Nodes[i].Parent; p >= 0; p = a.Nodes[p].Parent {
		out[a.Nodes[p].Category.ID] = true
	}
	return out
}
