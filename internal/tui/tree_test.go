package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
)

func node(id, name string, parent *domain.Category) *domain.Category {
	c := &domain.Category{
		Record:   domain.Record{ID: id},
		Name:     name,
		Slug:     category.GenerateSlug(name),
		IsActive: true,
	}
	if parent != nil {
		c.ParentID = parent.ID
	}
	category.LineageOf(parent, c.Slug).Apply(c)
	return c
}

// testArena returns Apparel > Bags > Clutches, Apparel > Dresses and a
// second root, Electronics.
func testArena() *category.Arena {
	apparel := node("A", "Apparel", nil)
	bags := node("B", "Bags", apparel)
	clutches := node("C", "Clutches", bags)
	dresses := node("D", "Dresses", apparel)
	electronics := node("E", "Electronics", nil)
	return category.NewArena(category.BuildTree([]*domain.Category{apparel, bags, clutches, dresses, electronics}))
}

func press(t *testing.T, m TreeModel, keys ...tea.KeyMsg) TreeModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		var ok bool
		m, ok = next.(TreeModel)
		require.True(t, ok)
	}
	return m
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
)

func TestTreeModel_StartsWithRootsOnly(t *testing.T) {
	m := NewTreeModel("Categories", testArena(), nil)

	assert.Len(t, m.visible, 2)
	assert.Equal(t, "A", m.Selected())

	view := m.View()
	assert.Contains(t, view, "Apparel")
	assert.Contains(t, view, "Electronics")
	assert.NotContains(t, view, "Bags")
}

func TestTreeModel_ToggleKeepsSelection(t *testing.T) {
	m := NewTreeModel("Categories", testArena(), nil)

	m = press(t, m, keyEnter)
	assert.True(t, m.Expanded()["A"])
	assert.Len(t, m.visible, 4)
	assert.Equal(t, "A", m.Selected())

	m = press(t, m, keyDown, keyRight, keyDown)
	assert.Equal(t, "C", m.Selected())
	assert.Len(t, m.visible, 5)

	// Closing the root from a collapsed child walks up first.
	m = press(t, m, keyLeft)
	assert.Equal(t, "B", m.Selected())
	m = press(t, m, keyLeft)
	assert.Equal(t, "B", m.Selected())
	assert.False(t, m.Expanded()["B"])
	m = press(t, m, keyLeft, keyLeft)
	assert.Equal(t, "A", m.Selected())
	assert.False(t, m.Expanded()["A"])
	assert.Len(t, m.visible, 2)
}

func TestTreeModel_CursorBounds(t *testing.T) {
	m := NewTreeModel("Categories", testArena(), nil)

	m = press(t, m, keyUp)
	assert.Equal(t, "A", m.Selected())

	m = press(t, m, keyDown, keyDown, keyDown)
	assert.Equal(t, "E", m.Selected())

	// Leaves do not toggle.
	m = press(t, m, keyEnter)
	assert.Empty(t, m.Expanded())
}

func TestTreeModel_InitialExpandedFromReveal(t *testing.T) {
	a := testArena()
	m := NewTreeModel("Categories", a, a.ExpandTo(nil, "C"))

	assert.Len(t, m.visible, 5)
	assert.Contains(t, m.View(), "Clutches")

	m = press(t, m, keyDown, keyDown)
	assert.Equal(t, "C", m.Selected())
	assert.Contains(t, m.View(), "/apparel/bags/clutches")
}

func TestTreeModel_Quit(t *testing.T) {
	m := NewTreeModel("Categories", testArena(), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTreeModel_ScrollsWithSmallWindow(t *testing.T) {
	a := testArena()
	m := NewTreeModel("Categories", a, map[string]bool{"A": true, "B": true})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: chromeLines + 2})
	m = next.(TreeModel)
	m = press(t, m, keyDown, keyDown, keyDown)

	assert.Equal(t, "D", m.Selected())
	assert.Equal(t, 2, m.offset)
	assert.NotContains(t, m.View(), "Apparel")
}

func TestTreeModel_EmptyArena(t *testing.T) {
	m := NewTreeModel("Categories", category.NewArena(category.BuildTree(nil)), nil)

	assert.Equal(t, "", m.Selected())
	assert.Contains(t, m.View(), "No categories yet")
	m = press(t, m, keyEnter, keyLeft, keyDown)
	assert.Equal(t, "", m.Selected())
}
