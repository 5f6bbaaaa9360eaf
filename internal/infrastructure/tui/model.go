// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

// ChatPort is the TUI-facing subset of the chat use case.
type ChatPort interface {
	NewSession() string
	Send(ctx context.Context, sessionID, message string) entities.Reply
}

type replyMsg struct {
	reply entities.Reply
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	session  string
	title    string
	input    textinput.Model
	viewport viewport.Model
	lines    []string
	waiting  bool
	status   string
	ready    bool
}

// New creates a chat model with a fresh session.
func New(ctx context.Context, chat ChatPort, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 2000

	return Model{
		ctx:      ctx,
		chat:     chat,
		session:  chat.NewSession(),
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ctrl+C to quit.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, resize and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-bh-ih-3)
		m.refresh()
		return m, nil

	case replyMsg:
		m.waiting = false
		m.status = "Ctrl+C to quit."
		m.lines = append(m.lines, botStyle.Render("bot: ")+msg.reply.Text)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			m.lines = append(m.lines, userStyle.Render("you: ")+text)
			m.refresh()
			return m, m.send(text)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.title)
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{reply: m.chat.Send(m.ctx, m.session, text)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.lines, "\n")))
	m.viewport.GotoBottom()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)
