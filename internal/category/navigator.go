package category

import (
	"strings"

	"github.com/tradepost/catalog-server/internal/domain"
)

// Breadcrumb is one step of the root-to-category chain.
type Breadcrumb = domain.AncestorRef

// Breadcrumbs returns the chain from the root down to c, ending with c.
// It reads the denormalized Ancestors field and does not follow ParentID,
// so a stale cache yields a stale (but never failing) chain.
func Breadcrumbs(c *domain.Category) []Breadcrumb {
	if c == nil {
		return nil
	}
	crumbs := make([]Breadcrumb, 0, len(c.Ancestors)+1)
	crumbs = append(crumbs, c.Ancestors...)
	return append(crumbs, c.Ref())
}

// Descendants returns every category below id in pre-order.
// An unknown id yields an empty result.
func Descendants(id string, t *Tree) []*domain.Category {
	out, _ := DescendantsChecked(id, t)
	return out
}

// DescendantsChecked is Descendants that also reports IDs reached more than
// once. A non-empty revisit list means the children links contain a cycle
// or a shared child; the walk still terminates.
func DescendantsChecked(id string, t *Tree) (descendants []*domain.Category, revisited []string) {
	descendants = []*domain.Category{}
	root, ok := t.Map[id]
	if !ok {
		return descendants, nil
	}

	visited := map[string]bool{id: true}
	stack := pushReversed(nil, root.Children)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n.ID] {
			revisited = append(revisited, n.ID)
			continue
		}
		visited[n.ID] = true
		descendants = append(descendants, n)
		stack = pushReversed(stack, n.Children)
	}
	return descendants, revisited
}

// IsDescendant reports whether candidate sits anywhere below id.
func IsDescendant(id, candidate string, t *Tree) bool {
	for _, d := range Descendants(id, t) {
		if d.ID == candidate {
			return true
		}
	}
	return false
}

// Siblings returns the other categories sharing id's ParentID, in display
// order. Root categories are siblings of each other. The category itself is
// never included.
func Siblings(id string, t *Tree) []*domain.Category {
	out := []*domain.Category{}
	c, ok := t.Map[id]
	if !ok {
		return out
	}

	candidates := t.Roots
	if parent, ok := t.Map[c.ParentID]; ok && c.ParentID != "" {
		candidates = parent.Children
	}
	for _, s := range candidates {
		if s.ID != id && s.ParentID == c.ParentID {
			out = append(out, s)
		}
	}
	return out
}

// PickerEntry is one row of a flattened parent-picker list.
type PickerEntry struct {
	*domain.Category
	// Depth is the indentation level relative to the flattened roots.
	Depth int `json:"depth"`
	// DisplayName is the name prefixed with indentation and a branch glyph,
	// e.g. "│  ├─ Android Phones".
	DisplayName string `json:"display_name"`
}

// Branch glyphs used by FlattenForPicker.
const (
	glyphBranch = "├─ "
	glyphLast   = "└─ "
	glyphPipe   = "│  "
	glyphSpace  = "   "
)

// FlattenForPicker lists roots and their subtrees in pre-order with display
// names suitable for a flat dropdown. When excludeID is set, that category
// and everything below it is omitted, so an edit form cannot offer a node's
// own subtree as its new parent.
func FlattenForPicker(roots []*domain.Category, excludeID string) []PickerEntry {
	type frame struct {
		node   *domain.Category
		depth  int
		prefix string
		last   bool
	}

	keep := func(list []*domain.Category) []*domain.Category {
		if excludeID == "" {
			return list
		}
		out := make([]*domain.Category, 0, len(list))
		for _, c := range list {
			if c.ID != excludeID {
				out = append(out, c)
			}
		}
		return out
	}

	var stack []frame
	top := keep(roots)
	for i := len(top) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: top[i], last: i == len(top)-1})
	}

	entries := []PickerEntry{}
	seen := make(map[string]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[f.node.ID] {
			continue
		}
		seen[f.node.ID] = true

		var name, childPrefix strings.Builder
		name.WriteString(f.prefix)
		childPrefix.WriteString(f.prefix)
		if f.depth > 0 {
			if f.last {
				name.WriteString(glyphLast)
				childPrefix.WriteString(glyphSpace)
			} else {
				name.WriteString(glyphBranch)
				childPrefix.WriteString(glyphPipe)
			}
		}
		name.WriteString(f.node.Name)

		entries = append(entries, PickerEntry{
			Category:    f.node,
			Depth:       f.depth,
			DisplayName: name.String(),
		})

		children := keep(f.node.Children)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				node:   children[i],
				depth:  f.depth + 1,
				prefix: childPrefix.String(),
				last:   i == len(children)-1,
			})
		}
	}
	return entries
}

func pushReversed(stack, nodes []*domain.Category) []*domain.Category {
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	return stack
}
