package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Lines used by the title and the footer.
const chromeHeight = 4

type browserModel struct {
	src      *source
	rendered []string
	matches  []int
	filter   textinput.Model
	viewport viewport.Model
	cursor   int
	ready    bool
}

func newBrowserModel(src *source) *browserModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "text to match"
	ti.Width = 40

	m := &browserModel{
		src:      src,
		rendered: make([]string, len(src.records)),
		filter:   ti,
	}
	m.applyFilter("")
	return m
}

func (m *browserModel) Init() tea.Cmd { return nil }

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.show()
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "n", "right", "l":
			m.move(1)
			return m, nil
		case "p", "left", "h":
			m.move(-1)
			return m, nil
		case "g", "home":
			m.move(-len(m.matches))
			return m, nil
		case "G", "end":
			m.move(len(m.matches))
			return m, nil
		case "/":
			m.filter.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *browserModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.filter.Blur()
		m.applyFilter(m.filter.Value())
		return m, nil
	case "esc":
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter("")
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *browserModel) move(delta int) {
	if len(m.matches) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.matches)-1)
	m.show()
}

// applyFilter keeps the datums whose JSON contains text.
func (m *browserModel) applyFilter(text string) {
	m.matches = m.matches[:0]
	for i := range m.src.records {
		if text == "" || strings.Contains(m.render(i), text) {
			m.matches = append(m.matches, i)
		}
	}
	m.cursor = 0
	m.show()
}

func (m *browserModel) render(i int) string {
	if m.rendered[i] == "" {
		s, err := render(m.src.records[i], formatJSON, true)
		if err != nil {
			s = errorStyle.Render(fmt.Sprintf("Error: %v", err))
		}
		m.rendered[i] = s
	}
	return m.rendered[i]
}

// current returns the index of the shown datum, or -1.
func (m *browserModel) current() int {
	if len(m.matches) == 0 {
		return -1
	}
	return m.matches[m.cursor]
}

func (m *browserModel) show() {
	if !m.ready {
		return
	}
	i := m.current()
	if i < 0 {
		m.viewport.SetContent(helpStyle.Render("no matching datums"))
		return
	}
	m.viewport.SetContent(m.render(i))
	m.viewport.GotoTop()
}

func (m *browserModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("avrocat"))
	b.WriteString(" ")
	b.WriteString(m.src.name)
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(schemaName(m.src.schema)))
	if i := m.current(); i >= 0 {
		fmt.Fprintf(&b, "  datum %d/%d", i+1, len(m.src.records))
		if len(m.matches) != len(m.src.records) {
			fmt.Fprintf(&b, " (match %d of %d)", m.cursor+1, len(m.matches))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.filter.Focused() {
		b.WriteString(m.filter.View())
	} else {
		b.WriteString(helpStyle.Render("n/p next/prev • g/G first/last • / filter • ↑/↓ scroll • q quit"))
	}
	return b.String()
}

func runInteractive(src *source) error {
	p := tea.NewProgram(newBrowserModel(src), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
