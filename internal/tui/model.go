// Package tui renders the operator console: one transcript pane, one input
// line, and an agent strip. All state lives in the session; the model only
// snapshots and renders it.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/crewdesk/internal/session"
	"github.com/user/crewdesk/internal/types"
)

// sessionUpdatedMsg signals that the session state changed and the panes
// need a re-render.
type sessionUpdatedMsg struct{}

// commandDoneMsg signals that an outbound command finished end to end.
type commandDoneMsg struct{}

type theme struct {
	header    lipgloss.Style
	agent     lipgloss.Style
	agentPick lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	candidate lipgloss.Style
	help      lipgloss.Style
}

func newTheme() theme {
	muted := lipgloss.Color("241")
	return theme{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		agent:     lipgloss.NewStyle().Foreground(muted),
		agentPick: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		system:    lipgloss.NewStyle().Italic(true).Foreground(muted),
		candidate: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		help:      lipgloss.NewStyle().Foreground(muted),
	}
}

// Model is the bubbletea model for the console.
type Model struct {
	session *session.Session

	input      textinput.Model
	transcript viewport.Model
	theme      theme

	width  int
	height int
	ready  bool
	status string
}

// New builds the console model around an initialized session.
func New(s *session.Session) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Placeholder = "Type a command, /accept N, /reject N, or /help"
	input.Focus()

	transcript := viewport.New(0, 0)

	return Model{
		session:    s,
		input:      input,
		transcript: transcript,
		theme:      newTheme(),
		status:     "connecting...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.session))
}

// waitForUpdate blocks on the session's coalescing update channel and turns
// each signal into a message.
func waitForUpdate(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Updates()
		return sessionUpdatedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case sessionUpdatedMsg:
		m.refreshPanes()
		cmds = append(cmds, waitForUpdate(m.session))

	case commandDoneMsg:
		m.status = m.statusLine()
		m.refreshPanes()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refreshPanes()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.cycleAgent()
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd := m.handleInput(text); cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleInput routes one submitted line: slash commands locally, everything
// else to the agent.
func (m *Model) handleInput(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return m.handleSlash(text)
	}
	s := m.session
	return func() tea.Msg {
		s.SendCommand(context.Background(), text)
		return commandDoneMsg{}
	}
}

func (m *Model) handleSlash(text string) tea.Cmd {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/accept", "/reject":
		if len(fields) != 2 {
			m.status = "usage: " + fields[0] + " N"
			return nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			m.status = "usage: " + fields[0] + " N"
			return nil
		}
		return m.candidateAction(fields[0] == "/accept", n)
	case "/help":
		m.status = "commands: /accept N, /reject N, tab switches agents, esc quits"
		return nil
	default:
		m.status = "unknown command " + fields[0]
		return nil
	}
}

// candidateAction resolves /accept N or /reject N against the most recent
// open candidate list.
func (m *Model) candidateAction(accept bool, n int) tea.Cmd {
	msg := latestCandidateMessage(m.session.Messages())
	if msg == nil {
		m.status = "no open candidate list"
		return nil
	}
	if n > len(msg.Candidates) {
		m.status = fmt.Sprintf("only %d candidates listed", len(msg.Candidates))
		return nil
	}
	action := session.ActionReject
	if accept {
		action = session.ActionAccept
	}
	s := m.session
	id, projectID, name := msg.ID, msg.ProjectID, msg.Candidates[n-1].Name
	return func() tea.Msg {
		s.ApplyCandidateAction(context.Background(), id, projectID, name, action)
		return commandDoneMsg{}
	}
}

// latestCandidateMessage returns the newest candidate-selection message
// that still has candidates, or nil.
func latestCandidateMessage(messages []types.ChatMessage) *types.ChatMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.SubType == types.SubTypeCandidateSelection && len(m.Candidates) > 0 {
			return &m
		}
	}
	return nil
}

func (m *Model) cycleAgent() {
	agents := m.session.Agents()
	if len(agents) == 0 {
		return
	}
	active := m.session.ActiveAgent()
	next := 0
	if active != nil {
		for i, a := range agents {
			if a.ID == active.ID {
				next = (i + 1) % len(agents)
				break
			}
		}
	}
	m.session.SelectAgent(&agents[next], false)
}

func (m *Model) refreshPanes() {
	m.status = m.statusLine()
	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(m.renderTranscript())
	if atBottom {
		m.transcript.GotoBottom()
	}
}

func (m *Model) statusLine() string {
	if active := m.session.ActiveAgent(); active != nil {
		return "talking to " + active.Name
	}
	return "no agent selected"
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	for _, msg := range m.session.Messages() {
		switch msg.Type {
		case types.MessageUser:
			b.WriteString(m.theme.user.Render("you: ") + msg.Text)
		case types.MessageSystem:
			b.WriteString(m.theme.system.Render(msg.Text))
		default:
			b.WriteString(m.theme.assistant.Render(msg.Text))
			if msg.SubType == types.SubTypeCandidateSelection {
				b.WriteString("\n" + m.renderCandidates(msg.Candidates))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCandidates(candidates []types.CandidateAgent) string {
	if len(candidates) == 0 {
		return m.theme.system.Render("  (all candidates reviewed)")
	}
	var b strings.Builder
	for i, c := range candidates {
		line := fmt.Sprintf("  %d. %s, %s (%s)", i+1, c.Name, c.Title, c.Department)
		if len(c.Skills) > 0 {
			line += " - " + strings.Join(c.Skills, ", ")
		}
		b.WriteString(m.theme.candidate.Render(line))
		if i < len(candidates)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return strings.Join([]string{
		m.renderHeader(),
		m.transcript.View(),
		m.input.View(),
		m.theme.help.Render(m.status),
	}, "\n")
}

func (m Model) renderHeader() string {
	active := m.session.ActiveAgent()
	parts := []string{m.theme.header.Render("crewdesk")}
	for _, a := range m.session.Agents() {
		style := m.theme.agent
		if active != nil && a.ID == active.ID {
			style = m.theme.agentPick
		}
		parts = append(parts, style.Render(a.Name))
	}
	return strings.Join(parts, "  ")
}
