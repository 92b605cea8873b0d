package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/storage"
)

// MinNavWidth is the minimum character width for the navigation pane.
const MinNavWidth = 18

// Styles is the palette of one theme.
type Styles struct {
	Title     lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Selected  lipgloss.Style
	Focused   lipgloss.Style // Border of the focused pane.
	Unfocused lipgloss.Style
	Modal     lipgloss.Style
	badges    map[string]lipgloss.Style
}

type palette struct {
	accent, muted, border, errorFg string
	info, warning, danger          string
}

var palettes = map[string]palette{
	storage.ThemeLight: {accent: "4", muted: "242", border: "250", errorFg: "1", info: "4", warning: "3", danger: "1"},
	storage.ThemeDark:  {accent: "12", muted: "245", border: "238", errorFg: "9", info: "12", warning: "11", danger: "9"},
}

// StylesFor returns the styles of theme, falling back to light.
func StylesFor(theme string) Styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[storage.ThemeLight]
	}
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.errorFg)),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		Focused:   border.BorderForeground(lipgloss.Color(p.accent)),
		Unfocused: border.BorderForeground(lipgloss.Color(p.border)),
		Modal:     border.BorderForeground(lipgloss.Color(p.accent)).Padding(1, 2),
		badges: map[string]lipgloss.Style{
			api.AnnouncementInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.info)),
			api.AnnouncementWarning: lipgloss.NewStyle().Foreground(lipgloss.Color(p.warning)),
			api.AnnouncementDanger:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.danger)),
		},
	}
}

// Badge returns a styled announcement type label like "[info]".
// Unknown types render muted.
func (s Styles) Badge(kind string) string {
	label := "[" + kind + "]"
	if st, ok := s.badges[kind]; ok {
		return st.Render(label)
	}
	return s.Muted.Render(label)
}

// PaneWidths splits a total width into the navigation and content panes.
// The navigation pane gets 1/4 (minimum MinNavWidth), content the rest.
func PaneWidths(totalWidth int) (nav, content int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	nav = max(totalWidth/4, MinNavWidth)
	content = max(totalWidth-nav, 0)
	return nav, content
}
