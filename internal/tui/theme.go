package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/genreach/internal/panel"
	"github.com/kalambet/genreach/internal/settings"
)

type palette struct {
	bg, fg, muted, accent, ok, warn lipgloss.Color
}

var palettes = map[string]palette{
	settings.ThemeLight: {
		bg:     lipgloss.Color("#ffffff"),
		fg:     lipgloss.Color("#1d2226"),
		muted:  lipgloss.Color("#666666"),
		accent: lipgloss.Color("#0a66c2"),
		ok:     lipgloss.Color("#057642"),
		warn:   lipgloss.Color("#b24020"),
	},
	settings.ThemeDark: {
		bg:     lipgloss.Color("#1d2226"),
		fg:     lipgloss.Color("#e9e9e9"),
		muted:  lipgloss.Color("#a0a0a0"),
		accent: lipgloss.Color("#70b5f9"),
		ok:     lipgloss.Color("#7fc15e"),
		warn:   lipgloss.Color("#f5987e"),
	},
}

type styles struct {
	frame  lipgloss.Style
	title  lipgloss.Style
	label  lipgloss.Style
	status lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	body   lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[settings.ThemeLight]
	}
	return styles{
		frame: lipgloss.NewStyle().
			Background(p.bg).
			Foreground(p.fg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),
		title:  lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		label:  lipgloss.NewStyle().Foreground(p.muted),
		status: lipgloss.NewStyle().Foreground(p.fg),
		ok:     lipgloss.NewStyle().Foreground(p.ok).Bold(true),
		warn:   lipgloss.NewStyle().Foreground(p.warn).Bold(true),
		help:   lipgloss.NewStyle().Foreground(p.muted),
		body:   lipgloss.NewStyle().Foreground(p.fg),
	}
}

func (s styles) statusLine(st panel.Status) string {
	switch {
	case st.Kind == panel.StatusInserted:
		return s.ok.Render(st.Text)
	case st.Warning():
		return s.warn.Render(st.Text)
	}
	return s.status.Render(st.Text)
}
