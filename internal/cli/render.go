package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Width(9)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	waterStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 46
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned, the rest right-aligned.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			widths[i] = max(widths[i], lipgloss.Width(h))
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols {
					widths[i] = max(widths[i], lipgloss.Width(cell))
				}
			}
		}
	}

	rule := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
		return b.String()
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule("╭", "┬", "╮"))

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(" " + pad(h, widths[i], i > 0) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		b.WriteString(rule("├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(" " + pad(cell, widths[i], i > 0) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

// pad fills s to w display cells, on the left when right is set.
func pad(s string, w int, right bool) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// GaugeColor picks the fill color for a progress ratio.
func GaugeColor(ratio float64) lipgloss.Color {
	switch {
	case ratio >= 1:
		return ColorGreen
	case ratio >= 0.5:
		return ColorBlue
	case ratio >= 0.25:
		return ColorYellow
	default:
		return ColorOrange
	}
}

// RenderGauge renders a horizontal bar for ratio followed by the
// unclamped percentage.
func RenderGauge(ratio float64, width int) string {
	if width < 1 {
		width = 1
	}
	filled := int(ClampRatio(ratio) * float64(width))

	fill := lipgloss.NewStyle().Foreground(GaugeColor(ratio))
	bar := fill.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("[%s] %s", bar, valueStyle.Render(FormatPercent(ratio)))
}

// RenderSparkline generates a unicode block sparkline from a series of values.
// Negative values draw as the lowest block.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// RenderStatus renders today's progress block used by `hydrate status`.
func RenderStatus(s progress.Snapshot, width int) string {
	var b strings.Builder

	b.WriteString(RenderTitle("Hydrate  ·  Today"))
	b.WriteString("\n\n")

	b.WriteString("  ")
	b.WriteString(RenderGauge(s.Progress, width))
	b.WriteString("\n\n")

	line := func(label, value string) {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("Level", waterStyle.Render(s.Level)+mutedStyle.Render(" / ")+valueStyle.Render(s.Goal))
	if s.Progress >= 1 {
		line("Status", lipgloss.NewStyle().Foreground(ColorGreen).Render("goal reached"))
	} else {
		line("To go", valueStyle.Render(s.Remaining))
	}
	line("Unit", valueStyle.Render(string(s.Unit)))

	presets := make([]string, 0, len(s.Presets))
	for i, p := range s.Presets {
		presets = append(presets, mutedStyle.Render(fmt.Sprintf("%d:", i+1))+valueStyle.Render(p))
	}
	line("Presets", strings.Join(presets, "  "))

	if s.AmountToAdd != "" {
		line("Next add", valueStyle.Render(s.AmountToAdd))
	}

	return b.String()
}

// RenderHistory renders per-day totals, newest first, with a trend line
// drawn oldest to newest.
func RenderHistory(days []model.DayTotal, unit quantity.Unit) string {
	if len(days) == 0 {
		return mutedStyle.Render("  No history yet.") + "\n"
	}

	rows := make([][]string, 0, len(days))
	met := 0
	for _, d := range days {
		mark := mutedStyle.Render("·")
		if d.Met() {
			mark = lipgloss.NewStyle().Foreground(ColorGreen).Render("✓")
			met++
		}
		rows = append(rows, []string{
			FormatDay(d.Date),
			quantity.Format(quantity.Quantity(d.TotalML), unit),
			quantity.Format(quantity.Quantity(d.GoalML), unit),
			FormatPercent(d.Progress()),
			FormatNumber(int64(d.Entries)),
			mark,
		})
	}

	trend := make([]float64, len(days))
	for i, d := range days {
		trend[len(days)-1-i] = d.TotalML
	}

	var b strings.Builder
	b.WriteString(RenderTable(Table{
		Title:   "Daily totals",
		Headers: []string{"Day", "Total", "Goal", "%", "Entries", "Met"},
		Rows:    rows,
	}))
	b.WriteString("\n  ")
	b.WriteString(mutedStyle.Render("Trend  "))
	b.WriteString(waterStyle.Render(RenderSparkline(trend)))
	b.WriteString("\n  ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Goal met on %d of %d days", met, len(days))))
	b.WriteString("\n")
	return b.String()
}

// RenderIntakes renders the log of a single day.
func RenderIntakes(day string, intakes []model.Intake, unit quantity.Unit) string {
	if len(intakes) == 0 {
		return mutedStyle.Render(fmt.Sprintf("  No entries for %s.", day)) + "\n"
	}

	rows := make([][]string, 0, len(intakes))
	for _, in := range intakes {
		amount := quantity.Format(quantity.Quantity(in.AmountML), unit)
		if in.AmountML > 0 {
			amount = "+" + amount
		}
		rows = append(rows, []string{in.At.Local().Format("15:04:05"), amount, string(in.Kind)})
	}
	return RenderTable(Table{
		Title:   "Entries for " + FormatDay(day),
		Headers: []string{"Time", "Amount", "Kind"},
		Rows:    rows,
	})
}

// RenderWarning renders a one-line warning.
func RenderWarning(msg string) string {
	return warnStyle.Render("  ! " + msg)
}

// RenderSummary renders streak and average lines under a history table.
func RenderSummary(s model.SummaryStats, unit quantity.Unit) string {
	if s.Days == 0 {
		return ""
	}
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	streak := fmt.Sprintf("%d %s", s.CurrentStreak, plural(s.CurrentStreak, "day", "days"))
	line("Streak", valueStyle.Render(streak)+mutedStyle.Render(fmt.Sprintf("  (best %d)", s.LongestStreak)))
	if s.ActiveDays > 0 {
		line("Average", valueStyle.Render(quantity.Format(quantity.Quantity(s.AverageML), unit))+
			mutedStyle.Render(fmt.Sprintf(" per active day (%d of %d)", s.ActiveDays, s.Days)))
		line("Best", valueStyle.Render(quantity.Format(quantity.Quantity(s.BestML), unit))+
			mutedStyle.Render("  "+FormatDay(s.BestDate)))
	}
	return b.String()
}

// RenderHourly renders a 24-hour sparkline of net intake.
func RenderHourly(hours []model.HourlyStats) string {
	values := make([]float64, len(hours))
	for i, h := range hours {
		values[i] = max(h.NetML(), 0)
	}
	return "  " + mutedStyle.Render("00h ") + waterStyle.Render(RenderSparkline(values)) + mutedStyle.Render(" 23h") + "\n"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
