// Package tui renders the category forest as an interactive terminal tree.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tradepost/catalog-server/internal/category"
)

// Row markers.
const (
	markerOpen   = "▾"
	markerClosed = "▸"
	markerLeaf   = "•"
)

// chromeLines is the number of lines View spends outside the tree rows.
const chromeLines = 12

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.Expand, k.Collapse},
		{k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "toggle"),
	),
	Expand: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "collapse"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// TreeModel is the Bubbletea model for browsing a category tree. Expand
// state is keyed by category ID so it survives a reload of the arena.
type TreeModel struct {
	title    string
	arena    *category.Arena
	expanded map[string]bool
	visible  []int
	cursor   int
	offset   int
	width    int
	height   int
	keys     keyMap
	help     help.Model
}

// NewTreeModel creates a model over arena with the categories in expanded
// already open.
func NewTreeModel(title string, arena *category.Arena, expanded map[string]bool) TreeModel {
	if expanded == nil {
		expanded = map[string]bool{}
	}
	m := TreeModel{
		title:    title,
		arena:    arena,
		expanded: expanded,
		keys:     defaultKeys,
		help:     help.New(),
	}
	m.visible = arena.Visible(m.expanded)
	return m
}

// Init implements tea.Model.
func (m TreeModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Toggle):
			if n, ok := m.current(); ok && len(n.Children) > 0 {
				m.setExpanded(n.Category.ID, !m.expanded[n.Category.ID])
			}
		case key.Matches(msg, m.keys.Expand):
			if n, ok := m.current(); ok && len(n.Children) > 0 {
				m.setExpanded(n.Category.ID, true)
			}
		case key.Matches(msg, m.keys.Collapse):
			m.collapse()
		}
		m.scroll()
	}
	return m, nil
}

// collapse closes the selected node, or moves to its parent when it is
// already closed.
func (m *TreeModel) collapse() {
	n, ok := m.current()
	if !ok {
		return
	}
	if m.expanded[n.Category.ID] {
		m.setExpanded(n.Category.ID, false)
		return
	}
	if n.Parent < 0 {
		return
	}
	for row, idx := range m.visible {
		if idx == n.Parent {
			m.cursor = row
			return
		}
	}
}

// setExpanded recomputes the visible rows and keeps the cursor on the same
// category.
func (m *TreeModel) setExpanded(id string, open bool) {
	selected := m.visible[m.cursor]
	if open {
		m.expanded[id] = true
	} else {
		delete(m.expanded, id)
	}
	m.visible = m.arena.Visible(m.expanded)
	for row, idx := range m.visible {
		if idx == selected {
			m.cursor = row
			return
		}
	}
	m.cursor = 0
}

func (m TreeModel) current() (category.ArenaNode, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return category.ArenaNode{}, false
	}
	return m.arena.Nodes[m.visible[m.cursor]], true
}

func (m TreeModel) rows() int {
	if m.height <= chromeLines {
		return len(m.visible)
	}
	return m.height - chromeLines
}

func (m *TreeModel) scroll() {
	rows := m.rows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// Selected returns the ID of the category under the cursor.
func (m TreeModel) Selected() string {
	n, ok := m.current()
	if !ok {
		return ""
	}
	return n.Category.ID
}

// Expanded returns the IDs of open categories.
func (m TreeModel) Expanded() map[string]bool {
	return m.expanded
}

// View implements tea.Model.
func (m TreeModel) View() string {
	var b strings.Builder

	if len(m.visible) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(m.title),
			subtitleStyle.Render("No categories yet"),
			m.help.View(m.keys),
		)
	}

	end := min(m.offset+m.rows(), len(m.visible))
	for row := m.offset; row < end; row++ {
		b.WriteString(m.renderRow(row))
		b.WriteByte('\n')
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		subtitleStyle.Render(fmt.Sprintf("%d categories, %d shown", m.arena.Len(), len(m.visible))),
		b.String(),
		m.renderDetail(),
		m.help.View(m.keys),
	)
}

func (m TreeModel) renderRow(row int) string {
	n := m.arena.Nodes[m.visible[row]]
	c := n.Category

	marker := markerLeaf
	if len(n.Children) > 0 {
		marker = markerClosed
		if m.expanded[c.ID] {
			marker = markerOpen
		}
	}

	label := strings.Repeat("  ", n.Depth) + marker + " " + c.Name
	style := rowStyle
	switch {
	case row == m.cursor:
		style = selectedRowStyle
	case !c.IsActive:
		style = inactiveRowStyle
	}

	cursor := "  "
	if row == m.cursor {
		cursor = "> "
	}

	line := cursor + style.Render(label)
	if c.ProductCount > 0 {
		line += " " + countStyle.Render(fmt.Sprintf("(%d)", c.ProductCount))
	}
	if !c.IsActive {
		line += " " + badgeStyle.Render("inactive")
	}
	return line
}

func (m TreeModel) renderDetail() string {
	n, ok := m.current()
	if !ok {
		return ""
	}
	c := n.Category
	lines := []string{
		rowStyle.Bold(true).Render(c.Name),
		mutedStyle.Render("path  ") + c.Path,
		mutedStyle.Render("slug  ") + c.Slug,
		mutedStyle.Render("level ") + fmt.Sprintf("%d, %d children, %d descendants", c.Level, c.ChildrenCount, c.DescendantCount),
	}
	return detailStyle.Render(strings.Join(lines, "\n"))
}

// Run starts the interactive tree browser.
func Run(title string, arena *category.Arena, expanded map[string]bool) error {
	p := tea.NewProgram(NewTreeModel(title, arena, expanded), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
