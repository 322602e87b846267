package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/cli"
	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/quantity"
	"github.com/theirongolddev/hydrate/internal/stats"
	"github.com/theirongolddev/hydrate/internal/tui/components"
	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

func (a App) renderHistoryTab(cw, h int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	switch {
	case a.history == nil:
		return components.ContentCard("History", mutedStyle.Render("History needs the database; it could not be opened."), cw)
	case a.historyErr != nil:
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		return components.ContentCard("History", warn.Render("Could not load history: "+a.historyErr.Error()), cw)
	case len(a.days) == 0:
		return components.ContentCard("History", mutedStyle.Render("No history yet. Log some water on the Today tab."), cw)
	}

	unit := a.tracker.Unit()
	today := a.tracker.Today()
	filled := stats.FillDays(a.days, today, historyDays)
	chronological := make([]model.DayTotal, len(filled))
	for i, d := range filled {
		chronological[len(filled)-1-i] = d
	}

	values := make([]float64, len(chronological))
	labels := make([]string, len(chronological))
	for i, d := range chronological {
		values[i] = d.TotalML
		labels[i] = dayOfMonth(d.Date)
	}
	goal := a.days[0].GoalML

	chartH := max(min(h/2, 12), 4)
	chart := components.BarChart(values, labels, goal, components.CardInnerWidth(cw), chartH,
		func(v float64) string { return quantity.Format(quantity.Quantity(v), unit) })

	met := 0
	for _, d := range a.days {
		if d.Met() {
			met++
		}
	}
	sum := stats.Summarize(filled, today)
	summary := mutedStyle.Render(fmt.Sprintf("Goal met on %d of %d days  ·  streak %d (best %d)",
		met, len(a.days), sum.CurrentStreak, sum.LongestStreak))
	if !a.updatedAt.IsZero() {
		summary += mutedStyle.Render("  ·  updated " + cli.FormatAgo(a.updatedAt, a.now()) + "  ·  [r] refresh")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		components.ContentCard(fmt.Sprintf("Last %d days", len(a.days)), chart+"\n\n"+summary, cw),
		components.ContentCard("Recent days", a.renderDayList(cw, unit), cw),
	)
}

func (a App) renderDayList(cw int, unit quantity.Unit) string {
	t := theme.Active
	dayStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	barW := max(components.CardInnerWidth(cw)-40, 8)
	lines := make([]string, 0, len(a.days))
	for i, d := range a.days {
		if i == 7 {
			break
		}
		lines = append(lines,
			dayStyle.Render(fmt.Sprintf("%-10s", cli.FormatDay(d.Date)))+
				valueStyle.Render(fmt.Sprintf("%8s", quantity.Format(quantity.Quantity(d.TotalML), unit)))+
				space.Render("  ")+
				components.Gauge(d.Progress(), barW))
	}
	return strings.Join(lines, "\n")
}

// dayOfMonth returns the day part of a YYYY-MM-DD key without a leading zero.
func dayOfMonth(key string) string {
	if len(key) != len("2006-01-02") {
		return ""
	}
	return strings.TrimPrefix(key[8:], "0")
}
