package tui

import (
	"io"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// compactDelegate reduces per-item height to 1 line to make the list dense
// enough for long directory listings.
type compactDelegate struct{ list.DefaultDelegate }

func (d compactDelegate) Height() int { return 1 }

func (d compactDelegate) Spacing() int { return 0 }

// Render only the title with a simple selected marker.
func (d compactDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it := listItem.(menuItem)
	title := it.Title()
	prefix := "  "
	if index == m.Index() {
		prefix = "> "
		_, _ = io.WriteString(w, d.Styles.SelectedTitle.Render(prefix+title))
		return
	}
	_, _ = io.WriteString(w, d.Styles.NormalTitle.Render(prefix+title))
}

func NewMenu(items []string, title string) *menuModel {
	var lItems []list.Item
	for _, it := range items {
		lItems = append(lItems, menuItem(it))
	}

	delegate := compactDelegate{list.NewDefaultDelegate()}

	delegate.Styles.SelectedTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff79c6")).Bold(true)
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd"))
	delegate.Styles.NormalTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f8f8f2"))
	delegate.Styles.NormalDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))

	l := list.New(lItems, delegate, 60, 16)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)

	return &menuModel{list: l}
}
