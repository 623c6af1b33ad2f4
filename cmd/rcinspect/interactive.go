package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	strongStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	weakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historySize = 8

type historyEntry struct {
	input  string
	output string
	err    error
}

type interactiveModel struct {
	session *session
	input   textinput.Model
	history []historyEntry
}

func newInteractiveModel(s *session) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "new p0 75"
	ti.Prompt = "> "
	ti.Width = 40
	ti.Focus()
	return &interactiveModel{session: s, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			if strings.TrimSpace(line) == "quit" {
				return m, tea.Quit
			}
			m.run(line)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) run(line string) {
	cmd, ok, err := parseLine(line)
	if err != nil {
		m.push(historyEntry{input: line, err: err})
		return
	}
	if !ok {
		return
	}
	out, err := m.session.exec(cmd)
	m.push(historyEntry{input: line, output: out, err: err})
}

func (m *interactiveModel) push(e historyEntry) {
	m.history = append(m.history, e)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("rc inspector"))
	b.WriteString(" ")
	b.WriteString(m.session.backing)
	st := m.session.tracker.Stats()
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %s live in %s blocks",
		humanize.IBytes(st.LiveBytes), humanize.Comma(int64(st.LiveBlocks)))))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-6s %-24s %s", "name", "kind", "value", "counts")))
	b.WriteString("\n")
	rows := m.session.rows()
	if len(rows) == 0 {
		b.WriteString(helpStyle.Render("(no pointers)"))
		b.WriteString("\n")
	}
	for _, r := range rows {
		style := strongStyle
		if r.kind == "weak" {
			style = weakStyle
		}
		b.WriteString(style.Render(formatRow(r)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, h := range m.history {
		b.WriteString(helpStyle.Render("> " + h.input))
		b.WriteString("\n")
		if h.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", h.err)))
		} else {
			b.WriteString(resultStyle.Render(h.output))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • help commands • esc quit"))
	return b.String()
}

func runInteractive(s *session) error {
	if err := requireTerminal(); err != nil {
		return err
	}
	p := tea.NewProgram(newInteractiveModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
