package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// pickerModel is a full-screen scrolling list. Enter chooses the
// highlighted option, esc or q walks away.
type pickerModel struct {
	title   string
	options []string

	cursor  int
	choice  int
	aborted bool

	vp            viewport.Model
	width, height int
}

func newPicker(title string, options []string) pickerModel {
	return pickerModel{
		title:   title,
		options: options,
		choice:  -1,
		vp:      viewport.New(0, 0),
	}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the title and help line; clamp to sensible minimums
		listHeight := msg.Height - 6
		if listHeight < 3 {
			listHeight = 3
		}
		listWidth := msg.Width - 4
		if listWidth < 20 {
			listWidth = 20
		}
		m.vp.Width = listWidth
		m.vp.Height = listHeight
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.aborted = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
				m.refresh()
			}
		case "enter":
			m.choice = m.cursor
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m pickerModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	title := titleStyle.Render(m.title)
	body := m.vp.View()
	help := helpStyle.Render("↑/↓: Navigate • Enter: Select • Esc: Cancel")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		body,
		"",
		help,
	)

	return " " + strings.ReplaceAll(content, "\n", "\n ")
}

// refresh rebuilds the list content and keeps the cursor in view.
func (m *pickerModel) refresh() {
	m.vp.SetContent(m.optionsContent())
	m.ensureCursorVisible()
}

func (m pickerModel) optionsContent() string {
	var lines []string
	for i, option := range m.options {
		line := fmt.Sprintf("  %s", option)
		if i == m.cursor {
			line = selectedStyle.Render("▸ " + line[2:])
		} else {
			line = normalStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ensureCursorVisible scrolls the viewport so the cursor stays on-screen.
func (m *pickerModel) ensureCursorVisible() {
	if m.vp.Height <= 0 || len(m.options) == 0 {
		m.vp.SetYOffset(0)
		return
	}

	maxYOffset := len(m.options) - m.vp.Height
	if maxYOffset < 0 {
		maxYOffset = 0
	}

	// Scroll up if the cursor moved above the current view
	if m.cursor < m.vp.YOffset {
		m.vp.SetYOffset(m.cursor)
		return
	}

	// Scroll down if the cursor moved below the current view
	if m.cursor >= m.vp.YOffset+m.vp.Height {
		offset := m.cursor - m.vp.Height + 1
		if offset > maxYOffset {
			offset = maxYOffset
		}
		m.vp.SetYOffset(offset)
		return
	}

	// Clamp if the window shrunk
	if m.vp.YOffset > maxYOffset {
		m.vp.SetYOffset(maxYOffset)
	}
}

// pick runs the picker program and reports the chosen index.
func pick(title string, options []string) (int, error) {
	final, err := tea.NewProgram(newPicker(title, options), tea.WithAltScreen()).Run()
	if err != nil {
		return 0, err
	}
	m, ok := final.(pickerModel)
	if !ok || m.aborted || m.choice < 0 {
		return 0, fmt.Errorf("%w: selection aborted", shellpack.ErrCancelled)
	}
	return m.choice, nil
}
