package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tradepost/catalog-server/internal/domain"
)

func TestSearch_NameAndDescription(t *testing.T) {
	electronics := cat("1", "Electronics", "", nil)
	appliances := cat("2", "Home Appliances", "", nil)
	appliances.Description = "electronics and gadgets"
	furniture := cat("3", "Furniture", "", nil)
	tree := BuildTree([]*domain.Category{electronics, appliances, furniture})

	got := Search("electron", tree)

	assert.ElementsMatch(t, []string{"1", "2"}, ids(got))
}

func TestSearch_CaseInsensitiveAndSlug(t *testing.T) {
	c := cat("1", "Pumps", "", nil)
	c.Slug = "industrial-pumps"
	tree := BuildTree([]*domain.Category{c})

	assert.Len(t, Search("PUMPS", tree), 1)
	assert.Len(t, Search("industrial", tree), 1)
	assert.Empty(t, Search("valves", tree))
}

func TestSearch_BlankTerm(t *testing.T) {
	tree := BuildTree(scenario())

	assert.Empty(t, Search("", tree))
	assert.Empty(t, Search("   \t", tree))
	assert.NotNil(t, Search("", tree))
}
