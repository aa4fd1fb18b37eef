package category

import (
	"fmt"
	"slices"

	"github.com/tradepost/catalog-server/internal/domain"
)

// ViolationKind classifies an integrity problem found by Verify.
type ViolationKind string

// Violation kinds.
const (
	ViolationCycle         ViolationKind = "cycle"
	ViolationOrphan        ViolationKind = "orphan"
	ViolationLevel         ViolationKind = "level"
	ViolationAncestors     ViolationKind = "ancestors"
	ViolationPath          ViolationKind = "path"
	ViolationDuplicateSlug ViolationKind = "duplicate_slug"
)

// Violation describes one inconsistency in the stored forest.
type Violation struct {
	CategoryID string        `json:"category_id"`
	Kind       ViolationKind `json:"kind"`
	Detail     string        `json:"detail"`
}

// Verify checks every category against the chain implied by ParentID and
// returns all violations found, in tree pre-order. Orphans and cycle members
// are checked as if they were roots.
func Verify(t *Tree) []Violation {
	var out []Violation

	for _, id := range t.Orphans {
		out = append(out, Violation{id, ViolationOrphan,
			fmt.Sprintf("parent %q does not exist", t.Map[id].ParentID)})
	}
	for _, id := range t.CycleBreaks {
		out = append(out, Violation{id, ViolationCycle, "category is its own ancestor"})
	}

	slugs := make(map[string]string, len(t.Map))
	for _, c := range t.Flatten() {
		if other, dup := slugs[c.Slug]; dup {
			out = append(out, Violation{c.ID, ViolationDuplicateSlug,
				fmt.Sprintf("slug %q already used by %s", c.Slug, other)})
		} else {
			slugs[c.Slug] = c.ID
		}
	}

	for _, e := range expectedLineage(t) {
		c := e.category
		if c.Level != e.lineage.Level {
			out = append(out, Violation{c.ID, ViolationLevel,
				fmt.Sprintf("level is %d, want %d", c.Level, e.lineage.Level)})
		}
		if !slices.Equal(c.Ancestors, e.lineage.Ancestors) {
			out = append(out, Violation{c.ID, ViolationAncestors,
				fmt.Sprintf("ancestors has %d entries, want %d", len(c.Ancestors), len(e.lineage.Ancestors))})
		}
		if c.Path != e.lineage.Path {
			out = append(out, Violation{c.ID, ViolationPath,
				fmt.Sprintf("path is %q, want %q", c.Path, e.lineage.Path)})
		}
	}
	return out
}

// Repair returns corrected copies of every category whose level, ancestors
// or path disagree with its parent chain. Orphans and cycle members become
// roots: their ParentID is cleared.
func Repair(t *Tree) []*domain.Category {
	detached := make(map[string]bool, len(t.Orphans)+len(t.CycleBreaks))
	for _, id := range t.Orphans {
		detached[id] = true
	}
	for _, id := range t.CycleBreaks {
		detached[id] = true
	}

	var fixed []*domain.Category
	for _, e := range expectedLineage(t) {
		c := e.category
		if e.lineage.Matches(c) && !detached[c.ID] {
			continue
		}
		cp := c.Clone()
		if detached[c.ID] {
			cp.ParentID = ""
		}
		e.lineage.Apply(cp)
		fixed = append(fixed, cp)
	}
	return fixed
}

type lineageCheck struct {
	category *domain.Category
	lineage  Lineage
}

// expectedLineage walks the tree top-down and derives each category's
// lineage from its parent's derived (not stored) lineage.
func expectedLineage(t *Tree) []lineageCheck {
	derived := make(map[string]*domain.Category, len(t.Map))
	var out []lineageCheck

	walkPreOrder(t.Roots, func(c *domain.Category, depth int) bool {
		var parent *domain.Category
		if depth > 0 {
			parent = derived[c.ParentID]
		}
		l := LineageOf(parent, c.Slug)

		shadow := &domain.Category{Record: domain.Record{ID: c.ID}, Name: c.Name, Slug: c.Slug}
		l.Apply(shadow)
		derived[c.ID] = shadow

		out = append(out, lineageCheck{category: c, lineage: l})
		return true
	})
	return out
}
