// Package tui is a terminal control panel for a running pumpkin server.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/server"
)

const (
	bobStep     = 0.5
	glowStep    = 0.1
	callTimeout = 5 * time.Second
	maxRuns     = 5
)

type (
	stateMsg struct {
		state server.StateResponse
		runs  []lipsync.Result
	}
	triggeredMsg struct{ run server.RunAccepted }
	controlsMsg  map[string]float64
	blinkMsg     bool
	errMsg       struct{ err error }
	tickMsg      time.Time
)

// Model is the panel state.
type Model struct {
	api   API
	keys  KeyMap
	help  help.Model
	input textinput.Model
	poll  time.Duration

	width     int
	typing    bool
	connected bool
	state     server.StateResponse
	runs      []lipsync.Result
	notice    string
	err       error
}

// NewModel creates a panel that polls api every poll interval.
func NewModel(api API, poll time.Duration) Model {
	if poll <= 0 {
		poll = time.Second
	}
	ti := textinput.New()
	ti.Placeholder = "what should the pumpkin say?"
	ti.CharLimit = 280
	ti.Width = 48

	return Model{
		api:   api,
		keys:  DefaultKeyMap(),
		help:  help.New(),
		input: ti,
		poll:  poll,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.typing {
			return m.updateTyping(msg)
		}
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case stateMsg:
		m.connected = true
		m.state = msg.state
		m.runs = msg.runs
		if m.err != nil && !errors.Is(m.err, ErrBusy) {
			m.err = nil
		}
		return m, nil

	case triggeredMsg:
		m.err = nil
		m.notice = fmt.Sprintf("%s started (%s)", msg.run.Kind, shortID(msg.run.RunID))
		m.state.Busy = true
		return m, m.fetch()

	case controlsMsg:
		m.state.Controls = msg
		return m, nil

	case blinkMsg:
		m.state.Blink = bool(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		var apiErr *APIError
		if !errors.Is(msg.err, ErrBusy) && !errors.As(msg.err, &apiErr) {
			m.connected = false
		}
		return m, nil
	}

	if m.typing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Speak):
		return m, m.speak("")
	case key.Matches(msg, m.keys.Say):
		m.typing = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Replay):
		return m, m.replay()
	case key.Matches(msg, m.keys.BobUp):
		return m, m.adjust("bob", bobStep)
	case key.Matches(msg, m.keys.BobDown):
		return m, m.adjust("bob", -bobStep)
	case key.Matches(msg, m.keys.GlowUp):
		return m, m.adjust("glow", glowStep)
	case key.Matches(msg, m.keys.GlowDown):
		return m, m.adjust("glow", -glowStep)
	case key.Matches(msg, m.keys.Blink):
		return m, m.setBlink(!m.state.Blink)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch()
	}
	return m, nil
}

func (m Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.typing = false
		m.input.Blur()
		return m, m.speak(text)
	case tea.KeyEsc:
		m.typing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetch() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		st, err := api.State(ctx)
		if err != nil {
			return errMsg{err}
		}
		runs, err := api.Runs(ctx)
		if err != nil {
			return errMsg{err}
		}
		if len(runs) > maxRuns {
			runs = runs[:maxRuns]
		}
		return stateMsg{state: st, runs: runs}
	}
}

func (m Model) speak(text string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		run, err := api.Speak(ctx, text)
		if err != nil {
			return errMsg{err}
		}
		return triggeredMsg{run}
	}
}

func (m Model) replay() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		run, err := api.Replay(ctx)
		if err != nil {
			return errMsg{err}
		}
		return triggeredMsg{run}
	}
}

// adjust nudges a control by delta from the last known value, never below zero.
func (m Model) adjust(name string, delta float64) tea.Cmd {
	next := math.Max(0, m.state.Controls[name]+delta)
	next = math.Round(next*100) / 100
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		values, err := api.SetControls(ctx, map[string]float64{name: next})
		if err != nil {
			return errMsg{err}
		}
		return controlsMsg(values)
	}
}

func (m Model) setBlink(on bool) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := api.SetBlink(ctx, on); err != nil {
			return errMsg{err}
		}
		return blinkMsg(on)
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("🎃 pumpkin panel"))
	b.WriteString("\n\n")

	status := IdleStyle.Render("ready")
	if !m.connected {
		status = ErrorStyle.Render("disconnected")
	} else if m.state.Busy {
		status = BusyStyle.Render(m.state.Player.String())
	}

	rows := []string{
		row("status", status),
		row("mouth", ValueStyle.Render(orDefault(m.state.Mouth, "mouth_closed"))),
		row("blink", ValueStyle.Render(onOff(m.state.Blink))),
		row("bob", ValueStyle.Render(fmt.Sprintf("%.1f px", m.state.Controls["bob"]))),
		row("glow", ValueStyle.Render(fmt.Sprintf("%.2f", m.state.Controls["glow"]))),
		row("fps", ValueStyle.Render(fmt.Sprintf("%.1f", m.state.Render.FPS))),
		row("viewers", ValueStyle.Render(fmt.Sprint(m.state.Viewers))),
	}
	b.WriteString(PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")

	if len(m.runs) > 0 {
		lines := make([]string, 0, len(m.runs))
		for _, r := range m.runs {
			line := fmt.Sprintf("%s  %-7s %-9s", r.FinishedAt.Local().Format("15:04:05"), r.Kind, r.Outcome)
			if r.Err != "" {
				line += " " + ErrorStyle.Render(r.Err)
			}
			lines = append(lines, line)
		}
		b.WriteString(PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		b.WriteString("\n")
	}

	if m.typing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render(m.err.Error()))
	case m.notice != "":
		b.WriteString(DimStyle.Render(m.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
