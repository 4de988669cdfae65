package tui

import (
	"fmt"
	"strings"
	"sync"

	"retro-sync/internal/util"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Cancelled is the sentinel choice returned when the user backs out of a
// menu with esc or q.
const Cancelled = "cancelled"

type menuItem string

func (m menuItem) Title() string       { return string(m) }
func (m menuItem) Description() string { return "" }
func (m menuItem) FilterValue() string { return string(m) }

type menuModel struct {
	list   list.Model
	choice string

	logMu    sync.Mutex
	logLines []string
}

// message type used to transport printed strings into the Bubble Tea loop
type printMsg string

// ShowMenu blocks and returns the selected item (or Cancelled).
func ShowMenu(items []string, title string) (string, error) {
	m := NewMenu(items, title)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return "", err
	}
	return m.choice, nil
}

// ShowMenuWithPrints runs the menu while capturing the shared printer's
// output so status messages (upload results, transfer outcomes) land in the
// menu's log area instead of corrupting the rendered list. The previous print
// channel is restored on exit.
func ShowMenuWithPrints(items []string, title string) (string, error) {
	ch := make(chan string, 256)
	prevCh := util.Default.PrintChannel()
	util.SetPrintChannel(ch)

	m := NewMenu(items, title)
	p := tea.NewProgram(m)

	done := make(chan struct{})
	go func() {
		for s := range ch {
			// split multi-line blocks so the log area gets clean lines
			for _, part := range strings.Split(s, "\n") {
				line := strings.TrimSpace(part)
				if line == "" {
					continue
				}
				p.Send(printMsg(line + "\n"))
			}
		}
		close(done)
	}()

	// Once the swap below returns, no printer goroutine can still hold ch,
	// so closing it cannot panic a concurrent send.
	defer func() {
		util.SetPrintChannel(prevCh)
		close(ch)
		<-done
	}()

	if _, err := p.Run(); err != nil {
		return "", err
	}
	return m.choice, nil
}

func (m *menuModel) Init() tea.Cmd { return nil }

func (m *menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case printMsg:
		m.logMu.Lock()
		m.logLines = append(m.logLines, string(msg))
		// keep last 200 lines to avoid unbounded memory
		if len(m.logLines) > 200 {
			m.logLines = m.logLines[len(m.logLines)-200:]
		}
		m.logMu.Unlock()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if itm := m.list.SelectedItem(); itm != nil {
				m.choice = itm.(menuItem).Title()
			}
			return m, tea.Quit
		case "esc", "q":
			m.choice = Cancelled
			return m, tea.Quit
		case "up", "k":
			m.list.CursorUp()
			return m, nil
		case "down", "j":
			m.list.CursorDown()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *menuModel) View() string {
	if m.choice != "" {
		return fmt.Sprintf("Selected: %s\n", m.choice)
	}
	menuView := m.list.View()

	m.logMu.Lock()
	defer m.logMu.Unlock()
	n := len(m.logLines)
	start := 0
	if n > 8 {
		start = n - 8
	}
	logBlock := ""
	for _, l := range m.logLines[start:] {
		logBlock += l
		if len(l) == 0 || l[len(l)-1] != '\n' {
			logBlock += "\n"
		}
	}
	if logBlock != "" {
		return menuView + "\n--- recent ---\n" + logBlock
	}
	return menuView
}
