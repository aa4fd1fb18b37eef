package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepost/catalog-server/internal/domain"
)

func TestBreadcrumbs_Scenario(t *testing.T) {
	tree := BuildTree(scenario())

	crumbs := Breadcrumbs(tree.Map["C"])

	require.Len(t, crumbs, 3)
	assert.Equal(t, "A", crumbs[0].ID)
	assert.Equal(t, "B", crumbs[1].ID)
	assert.Equal(t, "C", crumbs[2].ID)
	assert.Equal(t, "clutches", crumbs[2].Slug)
}

func TestBreadcrumbs_LengthIsLevelPlusOne(t *testing.T) {
	tree := BuildTree(scenario())
	for _, c := range tree.Map {
		assert.Len(t, Breadcrumbs(c), c.Level+1, c.ID)
	}
}

func TestBreadcrumbs_StaleAncestorsDoNotFail(t *testing.T) {
	c := cat("C", "Clutches", "B", nil)
	c.ParentID = "B" // ancestors never filled in

	crumbs := Breadcrumbs(c)

	require.Len(t, crumbs, 1)
	assert.Equal(t, "C", crumbs[0].ID)
	assert.Nil(t, Breadcrumbs(nil))
}

func TestDescendants_PreOrder(t *testing.T) {
	tree := BuildTree(scenario())

	assert.Equal(t, []string{"B", "C", "D"}, ids(Descendants("A", tree)))
	assert.Equal(t, []string{"C"}, ids(Descendants("B", tree)))
	assert.Empty(t, Descendants("C", tree))
	assert.Empty(t, Descendants("nope", tree))
}

func TestDescendants_TerminatesOnCorruptedLinks(t *testing.T) {
	a := &domain.Category{Record: domain.Record{ID: "a"}, Name: "A"}
	b := &domain.Category{Record: domain.Record{ID: "b"}, Name: "B", ParentID: "a"}
	a.Children = []*domain.Category{b}
	b.Children = []*domain.Category{a}
	tree := &Tree{Roots: []*domain.Category{a}, Map: map[string]*domain.Category{"a": a, "b": b}}

	got, revisited := DescendantsChecked("a", tree)

	assert.Equal(t, []string{"b"}, ids(got))
	assert.Equal(t, []string{"a"}, revisited)
}

func TestIsDescendant(t *testing.T) {
	tree := BuildTree(scenario())
	assert.True(t, IsDescendant("A", "C", tree))
	assert.False(t, IsDescendant("B", "D", tree))
	assert.False(t, IsDescendant("A", "A", tree))
}

func TestSiblings(t *testing.T) {
	tree := BuildTree(scenario())

	assert.Equal(t, []string{"D"}, ids(Siblings("B", tree)))
	assert.Empty(t, Siblings("C", tree))
	assert.Empty(t, Siblings("missing", tree))
}

func TestSiblings_RootsExcludeSelf(t *testing.T) {
	flat := append(scenario(), cat("E", "Electronics", "", nil), cat("F", "Furniture", "", nil))
	tree := BuildTree(flat)

	for _, root := range tree.Roots {
		sibs := Siblings(root.ID, tree)
		assert.NotContains(t, ids(sibs), root.ID)
		assert.Len(t, sibs, 2)
	}
	assert.Equal(t, []string{"A", "F"}, ids(Siblings("E", tree)))
}

func TestFlattenForPicker_DisplayNames(t *testing.T) {
	tree := BuildTree(append(scenario(), cat("E", "Electronics", "", nil)))

	entries := FlattenForPicker(tree.Roots, "")

	names := make([]string, 0, len(entries))
	depths := make([]int, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.DisplayName)
		depths = append(depths, e.Depth)
	}
	assert.Equal(t, []string{
		"Apparel",
		"├─ Bags",
		"│  └─ Clutches",
		"└─ Dresses",
		"Electronics",
	}, names)
	assert.Equal(t, []int{0, 1, 2, 1, 0}, depths)
}

func TestFlattenForPicker_ExcludesSubtree(t *testing.T) {
	tree := BuildTree(scenario())

	entries := FlattenForPicker(tree.Roots, "B")

	var got []string
	for _, e := range entries {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"A", "D"}, got)
	assert.Equal(t, "└─ Dresses", entries[1].DisplayName)
}

func TestFlattenForPicker_ExcludeRoot(t *testing.T) {
	tree := BuildTree(scenario())
	assert.Empty(t, FlattenForPicker(tree.Roots, "A"))
}
