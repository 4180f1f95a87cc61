// Package tui is the terminal control panel.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/catalog"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/dispatch"
)

// Panel is what the terminal UI drives.
type Panel interface {
	State() dispatch.State
	Dispatch(ctx context.Context, actionID string) dispatch.Outcome
	SetArmed(armed bool) error
	Logout() error
	SelectCategory(key string)
}

// StateMsg carries a fresh controller snapshot into the program.
type StateMsg dispatch.State

type outcomeMsg dispatch.Outcome

type Model struct {
	ctx        context.Context
	panel      Panel
	categories []catalog.Category
	tab        int
	cursor     int
	state      dispatch.State
	keys       keyMap
	help       help.Model
	spinner    spinner.Model
	theme      theme
	width      int
}

func New(ctx context.Context, panel Panel) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6ff00"))

	m := Model{
		ctx:        ctx,
		panel:      panel,
		categories: catalog.Categories(),
		state:      panel.State(),
		keys:       defaultKeys(),
		help:       help.New(),
		spinner:    sp,
		theme:      newTheme(),
	}
	for i, c := range m.categories {
		if c.Key == m.state.Category {
			m.tab = i
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.selectCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case StateMsg:
		m.state = dispatch.State(msg)
		return m, nil

	case outcomeMsg:
		m.state = m.panel.State()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Left):
		m.tab = (m.tab + len(m.categories) - 1) % len(m.categories)
		m.cursor = 0
		return m, m.selectCmd()

	case key.Matches(msg, m.keys.Right):
		m.tab = (m.tab + 1) % len(m.categories)
		m.cursor = 0
		return m, m.selectCmd()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.categories[m.tab].Items)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Arm):
		panel, armed := m.panel, !m.state.Armed
		return m, func() tea.Msg {
			panel.SetArmed(armed)
			return StateMsg(panel.State())
		}

	case key.Matches(msg, m.keys.Logout):
		panel := m.panel
		return m, func() tea.Msg {
			panel.Logout()
			return StateMsg(panel.State())
		}

	case key.Matches(msg, m.keys.Fire):
		actionID := m.categories[m.tab].Items[m.cursor].ID
		panel, ctx := m.panel, m.ctx
		return m, func() tea.Msg {
			return outcomeMsg(panel.Dispatch(ctx, actionID))
		}
	}
	return m, nil
}

func (m Model) selectCmd() tea.Cmd {
	panel, category := m.panel, m.categories[m.tab].Key
	return func() tea.Msg {
		panel.SelectCategory(category)
		return StateMsg(panel.State())
	}
}

func (m Model) View() string {
	t := m.theme
	var b strings.Builder

	user := "logged out"
	if m.state.Authenticated {
		user = m.state.User
	}
	arm := t.disarmed.Render("SAFE")
	if m.state.Armed {
		arm = t.armed.Render("ARMED")
	}
	b.WriteString(t.header.Render("Isla Toxica Commands  " + t.muted.Render(user) + "  " + arm))
	b.WriteString("\n")

	tabs := make([]string, 0, len(m.categories))
	for i, c := range m.categories {
		style := t.tabInactive
		if i == m.tab {
			style = t.tabActive
		}
		tabs = append(tabs, style.Render(c.Title))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	enabled := m.state.Authenticated && m.state.Armed
	items := make([]string, 0, len(m.categories[m.tab].Items))
	for i, it := range m.categories[m.tab].Items {
		switch {
		case !enabled:
			items = append(items, t.itemLocked.Render("  "+it.Label))
		case i == m.cursor:
			items = append(items, t.itemActive.Render("> "+it.Label))
		default:
			items = append(items, t.item.Render("  "+it.Label))
		}
	}
	b.WriteString(t.panel.Render(strings.Join(items, "\n")))
	b.WriteString("\n")

	status := t.status
	if isFailure(m.state.Status) {
		status = t.errorStatus
	}
	line := status.Render(m.state.Status)
	if m.state.Busy {
		line = m.spinner.View() + " " + line
	}
	b.WriteString(line)
	b.WriteString("\n")
	if !m.state.Authenticated {
		b.WriteString(t.muted.Render("run `panel login` to sign in"))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	return t.root.Render(b.String())
}

func isFailure(status string) bool {
	return strings.HasPrefix(status, "Blocked") ||
		status == dispatch.StatusNetworkError ||
		status == dispatch.StatusLoginRequired ||
		status == dispatch.StatusDisarmed
}
