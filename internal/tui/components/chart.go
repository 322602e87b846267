package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values. Negative values draw as
// the lowest block.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders daily totals as vertical bars against a dashed goal line.
// Bars that reach goal are drawn green. When the values do not fit in width
// only the most recent ones are kept. format renders axis tick values.
func BarChart(values []float64, labels []string, goal float64, width, height int, format func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, theme.Active.Water)
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.0f", v) }
	}

	t := theme.Active

	top := max(goal, 1)
	for _, v := range values {
		top = max(top, v)
	}

	tickStep := chartTickStep(top)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(top/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(top/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	tickLabels := make(map[int]string, numIntervals)
	yLabelW := 4
	for i := 1; i <= numIntervals; i++ {
		lbl := format(tickStep * float64(i))
		tickLabels[i*rowsPerTick] = lbl
		yLabelW = max(yLabelW, lipgloss.Width(lbl)+1)
	}

	chartW := max(width-yLabelW-1, 5)

	const gap = 1
	barW := 3
	if fit := (chartW + gap) / (barW + gap); len(values) > fit {
		values = values[len(values)-fit:]
		if len(labels) > fit {
			labels = labels[len(labels)-fit:]
		}
	}
	n := len(values)
	axisLen := n*barW + (n-1)*gap

	goalRow := -1
	if goal > 0 {
		goalRow = int(math.Round(goal / ceiling * float64(chartH)))
	}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	goalStyle := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)
	waterStyle := lipgloss.NewStyle().Foreground(t.Water).Background(t.Surface)
	metStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	partial := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		empty := space.Render(strings.Repeat(" ", barW))
		filler := space.Render(" ")
		if row == goalRow {
			empty = goalStyle.Render(strings.Repeat("┄", barW))
			filler = goalStyle.Render("┄")
		}

		for i, v := range values {
			if i > 0 {
				b.WriteString(filler)
			}
			style := waterStyle
			if goal > 0 && v >= goal {
				style = metStyle
			}
			switch {
			case v >= rowTop:
				b.WriteString(style.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := min(max(int((v-rowBottom)/(rowTop-rowBottom)*8), 1), 8)
				b.WriteString(style.Render(strings.Repeat(string(partial[idx]), barW)))
			default:
				b.WriteString(empty)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	if len(labels) == n {
		buf := []rune(strings.Repeat(" ", axisLen))
		lastEnd := -1
		for i, lbl := range labels {
			pos := i * (barW + gap)
			r := []rune(lbl)
			if pos <= lastEnd || pos+len(r) > axisLen {
				continue
			}
			copy(buf[pos:], r)
			lastEnd = pos + len(r)
		}
		b.WriteString("\n")
		b.WriteString(space.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(strings.TrimRight(string(buf), " ")))
	}

	return b.String()
}

// chartTickStep computes a round tick interval targeting about five ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}
