package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-ebox/cmd/ebox/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxHistory bounds the scrollback kept on screen.
const maxHistory = 200

type historyEntry struct {
	command string
	output  string
	err     error
}

type interactiveModel struct {
	err      error
	ctx      context.Context
	resolved *config.Resolved
	heap     *openedHeap
	session  *session
	input    textinput.Model
	history  []historyEntry
	height   int
}

type heapOpenedMsg struct {
	err  error
	heap *openedHeap
}

func newInteractiveModel(ctx context.Context, r *config.Resolved) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "ebox> "
	ti.Placeholder = "help"
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{ctx: ctx, resolved: r, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.openHeap)
}

func (m *interactiveModel) openHeap() tea.Msg {
	h, err := openHeap(m.ctx, m.resolved)
	return heapOpenedMsg{heap: h, err: err}
}

func (m *interactiveModel) shutdown() {
	if m.session != nil {
		if err := m.session.close(); err != nil {
			m.err = err
		}
	}
	if m.heap != nil {
		m.heap.Close()
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.shutdown()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" || m.session == nil {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				m.shutdown()
				return m, tea.Quit
			}
			out, err := m.session.exec(line)
			m.history = append(m.history, historyEntry{command: line, output: out, err: err})
			if len(m.history) > maxHistory {
				m.history = m.history[len(m.history)-maxHistory:]
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height

	case heapOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.heap = msg.heap
		m.session = newSession(msg.heap)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}
	if m.heap == nil {
		return "Opening heap..."
	}

	var lines []string
	for _, e := range m.history {
		lines = append(lines, commandStyle.Render("> "+e.command))
		if e.err != nil {
			lines = append(lines, errorStyle.Render("error: "+e.err.Error()))
		} else if e.output != "" {
			lines = append(lines, resultStyle.Render(e.output))
		}
	}
	if m.height > 6 {
		var flat []string
		for _, l := range lines {
			flat = append(flat, strings.Split(l, "\n")...)
		}
		if keep := m.height - 6; len(flat) > keep {
			flat = flat[len(flat)-keep:]
		}
		lines = flat
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("EBox"))
	b.WriteString(" ")
	b.WriteString(m.heap.describe)
	b.WriteString("\n\n")
	if len(lines) > 0 {
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("help commands • quit or ctrl+c exit"))
	return b.String()
}

func runInteractive(ctx context.Context, r *config.Resolved) error {
	m := newInteractiveModel(ctx, r)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.err
}
