package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. warning, when set, replaces
// the key hints and is drawn in the warning color.
func RenderStatusBar(width int, info, warning string) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Background).Bold(true)

	left := base.Render(" [?]help  [q]uit")
	if warning != "" {
		left = warnStyle.Render(" ! " + warning)
	}
	right := ""
	if info != "" {
		right = base.Render(info + " ")
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	bar := left + base.Render(strings.Repeat(" ", gap)) + right
	return lipgloss.NewStyle().MaxWidth(width).Render(bar)
}
