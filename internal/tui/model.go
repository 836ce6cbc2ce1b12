// Package tui renders the outreach panel in the terminal.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/genreach/internal/panel"
)

const panelWidth = 56

// Controller is the part of panel.Controller the TUI drives.
type Controller interface {
	Snapshot() panel.State
	Subscribe(fn func(panel.State)) (cancel func())
	Generate(ctx context.Context, intent string) (panel.Outcome, error)
	ToggleTheme() string
	Hide()
}

type stateMsg struct{}

type generatedMsg struct {
	outcome panel.Outcome
	err     error
}

// Model is the bubbletea model of the panel.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	updates chan struct{}

	state   panel.State
	input   textinput.Model
	spinner spinner.Model
	styles  styles

	message string
	errText string
}

// New builds the model and subscribes it to ctrl. Call the returned cancel
// once the program has exited.
func New(ctx context.Context, ctrl Controller) (Model, func()) {
	state := ctrl.Snapshot()

	input := textinput.New()
	input.Prompt = "Intent: "
	input.Placeholder = "e.g. hiring for a backend role"
	input.CharLimit = 200
	input.Width = panelWidth - 12
	input.SetValue(state.LastIntent)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		updates: make(chan struct{}, 1),
		state:   state,
		input:   input,
		spinner: sp,
		styles:  newStyles(state.Theme),
	}
	cancel := ctrl.Subscribe(func(panel.State) {
		select {
		case m.updates <- struct{}{}:
		default:
		}
	})
	return m, cancel
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, ctrl Controller, opts ...tea.ProgramOption) error {
	m, cancel := New(ctx, ctrl)
	defer cancel()
	opts = append(opts, tea.WithContext(ctx))
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return stateMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForState())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.applyState(m.ctrl.Snapshot())
		return m, m.waitForState()

	case generatedMsg:
		m.errText = ""
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else if msg.outcome.Message != "" {
			m.message = msg.outcome.Message
		}
		m.applyState(m.ctrl.Snapshot())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.state.Visible {
				return m, tea.Quit
			}
			m.ctrl.Hide()
			m.applyState(m.ctrl.Snapshot())
			return m, nil
		}
		if !m.state.Visible {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+t":
			m.ctrl.ToggleTheme()
			m.applyState(m.ctrl.Snapshot())
			return m, nil
		case "enter":
			if m.state.IsProcessing {
				return m, nil
			}
			return m, m.generate(strings.TrimSpace(m.input.Value()))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyState(s panel.State) {
	if s.Theme != m.state.Theme {
		m.styles = newStyles(s.Theme)
	}
	m.state = s
}

func (m Model) generate(intent string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		out, err := ctrl.Generate(ctx, intent)
		return generatedMsg{outcome: out, err: err}
	}
}

func (m Model) View() string {
	s := m.styles
	if !m.state.Visible {
		return s.help.Render("genreach: not on an eligible profile page (esc to quit)") + "\n"
	}

	var b strings.Builder
	b.WriteString(s.title.Render("GenReach"))
	b.WriteString(s.label.Render("  " + m.state.Theme + " theme"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.state.IsProcessing && m.state.Status.Kind == panel.StatusGenerating:
		b.WriteString(m.spinner.View() + " " + s.status.Render(m.state.Status.Text))
	case m.errText != "":
		b.WriteString(s.warn.Render(m.errText))
	default:
		b.WriteString(s.statusLine(m.state.Status))
	}

	if m.message != "" {
		b.WriteString("\n\n")
		b.WriteString(s.body.Width(panelWidth - 4).Render(m.message))
	}

	b.WriteString("\n\n")
	b.WriteString(s.help.Render("enter generate · ctrl+t theme · esc hide · ctrl+c quit"))

	return s.frame.Width(panelWidth).Render(b.String()) + "\n"
}

var _ tea.Model = Model{}
