package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	want := []int{4, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LayoutRow(10, 3) = %v, want %v", got, want)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow(10, 0) should be nil")
	}
}

func TestCardRowPadsShorterCards(t *testing.T) {
	theme.SetActive("flexoki-dark")

	short := ContentCard("Short", "Content", 22)
	tall := ContentCard("Tall", "1\n2\n3\n4\n5", 22)
	shortLines := lipgloss.Height(short)
	tallLines := lipgloss.Height(tall)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tall, short}), "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("padding line %d has no background styling: %q", i, lines[i])
		}
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 44 {
			t.Errorf("line %d width = %d, want 44", i, w)
		}
	}
}

func TestTabVisualWidthMatchesRender(t *testing.T) {
	for active := range Tabs {
		total := 0
		for i := range Tabs {
			total += TabVisualWidth(i, active)
		}
		total += len(Tabs) - 1

		bar := RenderTabBar(active, 0)
		if got := lipgloss.Width(bar); got != total {
			t.Errorf("active=%d: rendered width = %d, want %d", active, got, total)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('h'); got != 1 {
		t.Errorf("TabIdxByKey('h') = %d, want 1", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestGaugeShowsUnclampedPercent(t *testing.T) {
	out := Gauge(1.25, 20)
	if !strings.Contains(out, "125%") {
		t.Errorf("gauge missing 125%%: %q", out)
	}
	if got := lipgloss.Width(Gauge(-0.5, 20)); got != 25 {
		t.Errorf("gauge width = %d, want 25", got)
	}
}

func TestColorForRatio(t *testing.T) {
	theme.SetActive("flexoki-dark")
	tests := []struct {
		ratio float64
		want  lipgloss.Color
	}{
		{0.1, theme.FlexokiDark.Orange},
		{0.3, theme.FlexokiDark.Water},
		{0.7, theme.FlexokiDark.WaterBright},
		{1.4, theme.FlexokiDark.Green},
	}
	for _, tt := range tests {
		if got := ColorForRatio(tt.ratio); got != tt.want {
			t.Errorf("ColorForRatio(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestStatusBarWarningReplacesHints(t *testing.T) {
	out := RenderStatusBar(60, "updated 5m ago", "")
	if !strings.Contains(out, "[q]uit") || !strings.Contains(out, "updated 5m ago") {
		t.Errorf("status bar = %q", out)
	}
	out = RenderStatusBar(60, "", "save failed")
	if strings.Contains(out, "[q]uit") || !strings.Contains(out, "save failed") {
		t.Errorf("warning status bar = %q", out)
	}
	if w := lipgloss.Width(RenderStatusBar(60, "x", "")); w != 60 {
		t.Errorf("status bar width = %d, want 60", w)
	}
}

func TestBarChartKeepsRecentValues(t *testing.T) {
	values := make([]float64, 40)
	labels := make([]string, 40)
	for i := range values {
		values[i] = float64(i * 100)
		labels[i] = string(rune('a' + i%26))
	}
	out := BarChart(values, labels, 2000, 40, 8, nil)
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		if w := lipgloss.Width(l); w > 40 {
			t.Errorf("line %d width = %d, exceeds 40", i, w)
		}
	}
	if !strings.Contains(out, "┄") {
		t.Error("chart missing goal line")
	}
}

func TestBarChartFallsBackToSparkline(t *testing.T) {
	out := BarChart([]float64{1, 2}, nil, 0, 10, 2, nil)
	if strings.Contains(out, "\n") {
		t.Errorf("narrow chart should be a single sparkline row: %q", out)
	}
}

func TestChartTickStep(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{3000, 500},
		{1000, 200},
		{600, 100},
	}
	for _, tt := range tests {
		if got := chartTickStep(tt.in); got != tt.want {
			t.Errorf("chartTickStep(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
