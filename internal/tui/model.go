package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/moodysaroha/postboy/internal/bridge"
	"github.com/moodysaroha/postboy/internal/notify"
)

// Source feeds the UI with coordinator notifications.
type Source interface {
	Requests() <-chan *bridge.Request
	RequestCheck() error
}

type requestMsg struct{ req *bridge.Request }

type closedMsg struct{}

type errMsg struct{ err error }

// Model renders coordinator notifications: status-line messages below the
// header and everything else as a modal, one at a time.
type Model struct {
	source  Source
	spinner spinner.Model
	help    help.Model

	status string
	busy   bool

	current *bridge.Request
	prompt  notify.Prompt
	focus   int
	queue   []*bridge.Request

	err    error
	closed bool
	width  int
}

// New returns a Model reading from source.
func New(source Source) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		source:  source,
		spinner: s,
		help:    help.New(),
		status:  "Waiting for the update service.",
	}
}

func (m Model) waitForRequest() tea.Cmd {
	return func() tea.Msg {
		req, ok := <-m.source.Requests()
		if !ok {
			return closedMsg{}
		}
		return requestMsg{req: req}
	}
}

func respond(req *bridge.Request, reply *notify.Reply) tea.Cmd {
	return func() tea.Msg {
		if err := req.Respond(reply); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m Model) requestCheck() tea.Cmd {
	return func() tea.Msg {
		if err := m.source.RequestCheck(); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForRequest(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width - 4
		return m, nil

	case requestMsg:
		m = m.receive(msg.req)
		return m, m.waitForRequest()

	case closedMsg:
		m.closed = true
		return m, tea.Quit

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.current != nil {
			return m.updateModal(msg)
		}
		if key.Matches(msg, keys.Check) {
			m.err = nil
			return m, m.requestCheck()
		}
	}
	return m, nil
}

// spins reports whether t leaves work running in the background.
func spins(t notify.Type) bool {
	switch t {
	case notify.TypeChecking, notify.TypeDownloading, notify.TypeDownloadProgress:
		return true
	}
	return false
}

// receive routes req to the status line or the modal queue.
func (m Model) receive(req *bridge.Request) Model {
	p := notify.PromptFor(req.Message)
	m.busy = spins(req.Message.Type)

	if p.Silent {
		if req.Message.Type == notify.TypeDownloadProgress {
			m.status = notify.ProgressText(req.Message.Data)
		} else {
			m.status = p.Message
		}
		return m
	}

	m.status = p.Title
	if m.current != nil {
		m.queue = append(m.queue, req)
		return m
	}
	return m.open(req)
}

func (m Model) open(req *bridge.Request) Model {
	m.current = req
	m.prompt = notify.PromptFor(req.Message)
	m.focus = m.prompt.Default
	return m
}

// closeModal answers the open prompt and shows the next queued one.
func (m Model) closeModal(reply *notify.Reply) (Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.current.ExpectsReply {
		cmd = respond(m.current, reply)
	}
	m.current = nil
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		m = m.open(next)
	}
	return m, cmd
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		if m.focus > 0 {
			m.focus--
		}
	case key.Matches(msg, keys.Right):
		if m.focus < len(m.prompt.Buttons)-1 {
			m.focus++
		}
	case key.Matches(msg, keys.Choose):
		return m.closeModal(notify.NewReply(m.focus, m.prompt.Buttons))
	case key.Matches(msg, keys.Dismiss):
		return m.closeModal(nil)
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(branding.DisplayName() + " updates"))
	b.WriteString("\n\n")

	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	if m.current != nil {
		b.WriteString("\n")
		b.WriteString(m.renderModal())
		b.WriteString("\n")
		b.WriteString(m.help.View(modalKeys{keys}))
	} else {
		b.WriteString("\n")
		b.WriteString(m.help.View(keys))
	}

	return appStyle.Render(b.String())
}

func (m Model) renderModal() string {
	p := m.prompt
	color := severityColors[p.Severity]

	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(p.Title)
	body := []string{title, "", p.Message}
	if p.Detail != "" {
		body = append(body, "", detailStyle.Render(p.Detail))
	}

	buttons := make([]string, len(p.Buttons))
	for i, label := range p.Buttons {
		if i == m.focus {
			buttons[i] = focusedButtonStyle.Render(label)
		} else {
			buttons[i] = buttonStyle.Render(label)
		}
	}
	body = append(body, "", lipgloss.JoinHorizontal(lipgloss.Top, buttons...))

	return modalStyle.BorderForeground(color).Render(strings.Join(body, "\n"))
}

// Run shows the UI until the user quits, ctx is cancelled or the
// coordinator goes away.
func Run(ctx context.Context, source Source) error {
	p := tea.NewProgram(New(source), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
