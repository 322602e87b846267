package tui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
	"github.com/theirongolddev/hydrate/internal/tui/components"
)

type stubHistory struct {
	days  []model.DayTotal
	err   error
	calls int
}

func (s *stubHistory) History(limit int) ([]model.DayTotal, error) {
	s.calls++
	return s.days, s.err
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestApp(t *testing.T, clock *testClock) App {
	t.Helper()
	tr := progress.Load(progress.NewMemoryGateway(nil),
		progress.WithClock(clock.now),
		progress.WithLocation(time.UTC))
	a := NewApp(tr, &stubHistory{}, config.DefaultConfig(), WithClock(clock.now))
	m, _ := a.Update(tea.WindowSizeMsg{Width: 90, Height: 40})
	return m.(App)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(a App, keys ...string) App {
	for _, k := range keys {
		m, _ := a.Update(keyMsg(k))
		a = m.(App)
	}
	return a
}

func typeText(a App, s string) App {
	for _, r := range s {
		a = press(a, string(r))
	}
	return a
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEntryAddsOnEnter(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "e")
	if !a.entryFocused {
		t.Fatal("entry not focused after e")
	}
	a = typeText(a, "250ml")
	a = press(a, "enter")

	if a.entryFocused {
		t.Error("entry still focused after enter")
	}
	if got := a.tracker.Snapshot().AccumulatedML; !approx(got, 250) {
		t.Errorf("accumulated = %v, want 250", got)
	}
	if got := a.tracker.Snapshot().AmountToAdd; got != "250ml" {
		t.Errorf("amount to add = %q, want 250ml", got)
	}

	// The amount stays in the field, so + and - reuse it.
	a = press(a, "+", "-", "-")
	if got := a.tracker.Snapshot().AccumulatedML; !approx(got, 0) {
		t.Errorf("accumulated after +-- = %v, want 0", got)
	}
}

func TestPlusWithoutAmountFlashesError(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "+")
	if !a.flashErr || a.flash == "" {
		t.Errorf("flash = %q (err=%v), want an error", a.flash, a.flashErr)
	}
	if got := a.tracker.Snapshot().AccumulatedML; got != 0 {
		t.Errorf("accumulated = %v, want 0", got)
	}
}

func TestInvalidEntryLeavesTotal(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "e")
	a = typeText(a, "lots")
	a = press(a, "enter")

	if !a.flashErr || !strings.Contains(a.flash, "Not an amount") {
		t.Errorf("flash = %q, want invalid amount message", a.flash)
	}
	if got := a.tracker.Snapshot().AccumulatedML; got != 0 {
		t.Errorf("accumulated = %v, want 0", got)
	}
}

func TestPresetKeys(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "1", "3")
	if got := a.tracker.Snapshot().AccumulatedML; !approx(got, 650) {
		t.Errorf("accumulated = %v, want 650", got)
	}
	if a.flash != "Added 500ml" {
		t.Errorf("flash = %q, want Added 500ml", a.flash)
	}
}

func TestUnitCycles(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "u")
	if got := a.tracker.Unit(); got != quantity.Ounces {
		t.Errorf("unit = %v, want Ounces", got)
	}
	if a.entry.Placeholder != "16oz" {
		t.Errorf("placeholder = %q, want 16oz", a.entry.Placeholder)
	}
	a = press(a, "u", "u")
	if got := a.tracker.Unit(); got != quantity.Liters {
		t.Errorf("unit after full cycle = %v, want Liters", got)
	}
}

func TestTickRollsOverAtMidnight(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	a = press(a, "3")

	m, _ := a.Update(tickMsg(clock.t))
	a = m.(App)
	if got := a.tracker.Snapshot().AccumulatedML; !approx(got, 500) {
		t.Fatalf("accumulated before midnight = %v, want 500", got)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	m, cmd := a.Update(tickMsg(clock.t))
	a = m.(App)
	if got := a.tracker.Snapshot().AccumulatedML; got != 0 {
		t.Errorf("accumulated after midnight = %v, want 0", got)
	}
	if cmd == nil {
		t.Error("rollover tick should schedule the next tick")
	}
	if a.flash == "" {
		t.Error("rollover should leave a message")
	}
}

func TestTabSwitching(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "h")
	if a.activeTab != tabHistory {
		t.Errorf("activeTab = %d, want history", a.activeTab)
	}
	a = press(a, "s")
	if a.activeTab != tabSettings {
		t.Errorf("activeTab = %d, want settings", a.activeTab)
	}
	a = press(a, "tab")
	if a.activeTab != tabToday {
		t.Errorf("activeTab after tab = %d, want today", a.activeTab)
	}
}

func TestSwitchToHistoryLoads(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	hist := &stubHistory{days: []model.DayTotal{{Date: "2024-01-01", TotalML: 1200, GoalML: 3000}}}
	a.history = hist

	m, cmd := a.Update(keyMsg("h"))
	a = m.(App)
	if cmd == nil {
		t.Fatal("switching to history should load it")
	}
	m, _ = a.Update(cmd())
	a = m.(App)
	if len(a.days) != 1 || hist.calls != 1 {
		t.Errorf("days = %v, calls = %d", a.days, hist.calls)
	}
	if out := a.View(); !strings.Contains(out, "Goal met on 0 of 1 days") {
		t.Errorf("history view missing summary:\n%s", out)
	}
}

func TestHistoryErrorShown(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	a.activeTab = tabHistory

	m, _ := a.Update(HistoryLoadedMsg{Err: errors.New("disk gone")})
	a = m.(App)
	if out := a.View(); !strings.Contains(out, "disk gone") {
		t.Errorf("view missing history error:\n%s", out)
	}
}

func TestSettingsEditGoal(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "s", "enter")
	if !a.settings.editing {
		t.Fatal("enter should start editing")
	}
	if got := a.settings.input.Value(); got != "3.0L" {
		t.Errorf("prefilled goal = %q, want 3.0L", got)
	}
	a.settings.input.SetValue("2.5L")
	a = press(a, "enter")

	if a.settings.editing || !a.settings.saved {
		t.Errorf("editing=%v saved=%v, want false/true", a.settings.editing, a.settings.saved)
	}
	if got := a.tracker.Snapshot().GoalML; !approx(got, 2500) {
		t.Errorf("goal = %v, want 2500", got)
	}
}

func TestSettingsRejectsBadGoal(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "s", "enter")
	a.settings.input.SetValue("0")
	a = press(a, "enter")

	if !errors.Is(a.settings.saveErr, progress.ErrNonPositiveGoal) {
		t.Errorf("saveErr = %v, want ErrNonPositiveGoal", a.settings.saveErr)
	}
	if !a.settings.editing {
		t.Error("a rejected value should keep the field open")
	}
	if got := a.tracker.Snapshot().GoalML; got != progress.DefaultGoal {
		t.Errorf("goal = %v, want unchanged", got)
	}

	a = press(a, "esc")
	if a.settings.editing || a.settings.saveErr != nil {
		t.Error("esc should close the field and clear the error")
	}
}

func TestSettingsUnknownTheme(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)

	a = press(a, "s", "j", "j", "j", "j", "j")
	if a.settings.cursor != settingsFieldTheme {
		t.Fatalf("cursor = %d, want theme field", a.settings.cursor)
	}
	a = press(a, "enter")
	a.settings.input.SetValue("neon")
	a = press(a, "enter")
	if !errors.Is(a.settings.saveErr, errUnknownTheme) {
		t.Errorf("saveErr = %v, want errUnknownTheme", a.settings.saveErr)
	}
}

func TestResetOpensConfirm(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	a = press(a, "3", "R")
	if a.confirm == nil {
		t.Fatal("R should open the confirmation")
	}
	a = press(a, "esc")
	if a.confirm != nil {
		t.Error("esc should close the confirmation")
	}
	if got := a.tracker.Snapshot().AccumulatedML; !approx(got, 500) {
		t.Errorf("accumulated = %v, want 500 after cancel", got)
	}
}

func TestQuitStoresEntry(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	a = press(a, "e")
	a = typeText(a, "330")
	a = press(a, "esc")

	_, cmd := a.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if got := a.tracker.Snapshot().AmountToAdd; got != "330" {
		t.Errorf("amount to add = %q, want 330", got)
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i := range components.Tabs {
			w := components.TabVisualWidth(i, active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w
			if got := a.tabAtX(pos); got != -1 {
				t.Errorf("active=%d separator x=%d -> tab=%d, want -1", active, pos, got)
			}
			pos++
		}
	}
}

func TestViewNarrowTerminal(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	if out := m.(App).View(); !strings.Contains(out, "too narrow") {
		t.Errorf("narrow view = %q", out)
	}
}

func TestTodayViewShowsTotals(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, clock)
	a = press(a, "3", "3", "3")

	out := a.View()
	for _, want := range []string{"1.5L", "3.0L", "50%", "[1]", "150ml"} {
		if !strings.Contains(out, want) {
			t.Errorf("today view missing %q", want)
		}
	}
}

func TestSetupApply(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	tr := progress.Load(progress.NewMemoryGateway(nil), progress.WithClock(clock.now))

	cfg := config.DefaultConfig()
	v := SetupValuesFrom(cfg)
	if v.Unit != "L" || v.Presets[2] != "500ml" {
		t.Fatalf("seeded values = %+v", v)
	}
	v.Unit = "oz"
	v.Goal = "100"
	v.Presets = [progress.NumPresets]string{"8", "12", "16"}
	v.Theme = "tokyo-night"

	if err := v.Apply(&cfg, tr); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Defaults.Unit != "oz" || cfg.Defaults.Goal != "100" || cfg.Appearance.Theme != "tokyo-night" {
		t.Errorf("cfg = %+v", cfg)
	}
	snap := tr.Snapshot()
	if snap.Unit != quantity.Ounces {
		t.Errorf("unit = %v, want Ounces", snap.Unit)
	}
	if !approx(snap.GoalML, 100*quantity.OunceFactor) {
		t.Errorf("goal = %v, want %v", snap.GoalML, 100*quantity.OunceFactor)
	}
	if snap.Presets[0] != "8" {
		t.Errorf("preset 1 = %q, want 8", snap.Presets[0])
	}
}

func TestValidateAmount(t *testing.T) {
	if err := validateAmount("2L", quantity.Liters); err != nil {
		t.Errorf("validateAmount(2L) = %v", err)
	}
	if err := validateAmount("abc", quantity.Liters); err == nil {
		t.Error("validateAmount(abc) should fail")
	}
	if err := validateAmount("-1", quantity.Liters); err == nil {
		t.Error("validateAmount(-1) should fail")
	}
}
