package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	item        lipgloss.Style
	itemActive  lipgloss.Style
	itemLocked  lipgloss.Style
	armed       lipgloss.Style
	disarmed    lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	muted       lipgloss.Style
}

func newTheme() theme {
	acid := lipgloss.Color("#a6ff00")
	toxic := lipgloss.Color("#ff3cac")
	teal := lipgloss.Color("#2de2e6")
	panelBg := lipgloss.Color("#10161f")
	text := lipgloss.Color("#eef3ea")
	muted := lipgloss.Color("#7d8b7a")

	return theme{
		root: lipgloss.NewStyle().
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Foreground(acid).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(teal).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(acid).
			Foreground(lipgloss.Color("#0b0f14")).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#1d2733")).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(teal).
			Padding(0, 1),
		item:       lipgloss.NewStyle().Foreground(text),
		itemActive: lipgloss.NewStyle().Foreground(lipgloss.Color("#0b0f14")).Background(toxic).Bold(true).Padding(0, 1),
		itemLocked: lipgloss.NewStyle().Foreground(muted),
		armed:      lipgloss.NewStyle().Foreground(acid).Bold(true),
		disarmed:   lipgloss.NewStyle().Foreground(muted).Bold(true),
		status:     lipgloss.NewStyle().Foreground(teal).Bold(true),
		errorStatus: lipgloss.NewStyle().
			Foreground(toxic).
			Bold(true),
		muted: lipgloss.NewStyle().Foreground(muted),
	}
}
