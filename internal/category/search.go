package category

import (
	"strings"

	"github.com/tradepost/catalog-server/internal/domain"
)

// Search returns categories whose name, description or slug contains term,
// ignoring case. Results are in tree pre-order. A blank term matches nothing;
// callers fall back to the roots themselves.
func Search(term string, t *Tree) []*domain.Category {
	out := []*domain.Category{}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return out
	}

	for _, c := range t.Flatten() {
		if Matches(c, needle) {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether c matches an already-lowercased search needle.
func Matches(c *domain.Category, needle string) bool {
	return strings.Contains(strings.ToLower(c.Name), needle) ||
		strings.Contains(strings.ToLower(c.Description), needle) ||
		strings.Contains(strings.ToLower(c.Slug), needle)
}
