// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package menu presents a single choice terminal menu.
package menu

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user leaves the menu without choosing.
var ErrAborted = errors.New("menu aborted")

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// Model is the bubbletea model of a menu.
type Model struct {
	title   string
	options []string
	cursor  int
	chosen  int
	aborted bool
}

// NewModel returns a menu over options with nothing chosen.
func NewModel(title string, options []string) Model {
	return Model{title: title, options: options, chosen: -1}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses. Digits pick an option directly.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch s := key.String(); s {
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.chosen = m.cursor
		return m, tea.Quit
	default:
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(m.options) {
			m.cursor = n - 1
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the menu
func (m Model) View() string {
	if m.chosen >= 0 || m.aborted {
		return ""
	}
	var b strings.Builder
	if m.title != "" {
		b.WriteString(titleStyle.Render(m.title))
		b.WriteString("\n")
	}
	for i, opt := range m.options {
		label := fmt.Sprintf("%d) %s", i+1, opt)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "))
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString("  ")
			b.WriteString(label)
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ to move, enter to select, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Chosen returns the index of the chosen option, or -1.
func (m Model) Chosen() int {
	return m.chosen
}

// Aborted reports whether the user left without choosing.
func (m Model) Aborted() bool {
	return m.aborted
}

// Terminal runs menus on a terminal.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Choose shows options and returns the index picked.
func (t *Terminal) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("menu has no options")
	}
	opts := make([]tea.ProgramOption, 0, 2)
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}

	final, err := tea.NewProgram(NewModel(title, options), opts...).Run()
	if err != nil {
		return -1, fmt.Errorf("running menu: %w", err)
	}
	m, ok := final.(Model)
	if !ok || m.Aborted() || m.Chosen() < 0 {
		return -1, ErrAborted
	}
	return m.Chosen(), nil
}
