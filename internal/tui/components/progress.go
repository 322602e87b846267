package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

// ColorForRatio picks the gauge color for a share of the daily goal.
// Unlike a usage meter, fuller is better.
func ColorForRatio(ratio float64) lipgloss.Color {
	t := theme.Active
	switch {
	case ratio >= 1:
		return t.Green
	case ratio >= 0.5:
		return t.WaterBright
	case ratio >= 0.25:
		return t.Water
	default:
		return t.Orange
	}
}

func clampRatio(r float64) float64 {
	switch {
	case math.IsNaN(r), r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// Gauge renders a progress bar for ratio followed by the unclamped percent.
// The bar itself is clamped to [0, 1].
func Gauge(ratio float64, barWidth int) string {
	t := theme.Active
	color := ColorForRatio(ratio)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(max(barWidth, 4)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(clampRatio(ratio)) +
		spaceStyle.Render(" ") +
		pctStyle.Render(formatPct(ratio))
}

// LabeledGauge renders a fixed-width label in front of a Gauge.
func LabeledGauge(label string, ratio float64, labelW, barWidth int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)
	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		Gauge(ratio, barWidth)
}

func formatPct(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "--"
	}
	p := math.Round(ratio * 100)
	if p == 0 {
		p = 0
	}
	return fmt.Sprintf("%3.0f%%", p)
}
