// Package tui provides the interactive Bubble Tea dashboard for hydrate.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/cli"
	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/logger"
	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/tui/components"
	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

// HistorySource supplies per-day totals, newest first.
type HistorySource interface {
	History(limit int) ([]model.DayTotal, error)
}

// HistoryLoadedMsg carries the result of a history query.
type HistoryLoadedMsg struct {
	Days []model.DayTotal
	Err  error
}

type tickMsg time.Time

const (
	tabToday = iota
	tabHistory
	tabSettings
)

const (
	minTerminalWidth = 60
	maxContentWidth  = 100
	minContentHeight = 5

	historyDays  = 30
	tickInterval = time.Minute
)

// App is the root Bubble Tea model.
type App struct {
	tracker *progress.Tracker
	history HistorySource
	cfg     config.Config
	now     func() time.Time

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Today tab amount entry
	entry        textinput.Model
	entryFocused bool
	flash        string
	flashErr     bool

	days       []model.DayTotal
	historyErr error
	updatedAt  time.Time

	settings settingsState

	// Reset confirmation (huh form)
	confirm *resetConfirm

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool
}

type resetConfirm struct {
	form *huh.Form
	ok   bool
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the wall clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithSetup starts the app on the first-run form.
func WithSetup() Option {
	return func(a *App) { a.needSetup = true }
}

// NewApp creates the dashboard over an already loaded tracker. history may be
// nil when no database is available.
func NewApp(tr *progress.Tracker, history HistorySource, cfg config.Config, opts ...Option) App {
	a := App{
		tracker:  tr,
		history:  history,
		cfg:      cfg,
		now:      time.Now,
		settings: settingsState{input: newSettingsInput()},
	}
	for _, o := range opts {
		o(&a)
	}

	a.entry = newEntryInput()
	snap := tr.Snapshot()
	a.entry.SetValue(snap.AmountToAdd)
	a.entry.Placeholder = snap.Placeholder

	if a.needSetup {
		a.setupVals = SetupValuesFrom(cfg)
		a.setupForm = NewSetupForm(a.setupVals)
	}
	return a
}

func newEntryInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = 16
	return ti
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), loadHistoryCmd(a.history)}
	if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tickMsg:
		a.tracker.Refresh()
		if a.tracker.CheckRollover() {
			a.setFlash("New day, total reset", false)
			a.entry.Placeholder = a.tracker.Snapshot().Placeholder
			return a, tea.Batch(tickCmd(), loadHistoryCmd(a.history))
		}
		return a, tickCmd()

	case HistoryLoadedMsg:
		a.days = msg.Days
		a.historyErr = msg.Err
		a.updatedAt = a.now()
		if msg.Err != nil {
			logger.Warn("loading history", "err", msg.Err)
		}
		return a, nil

	case tea.MouseMsg:
		if a.showHelp || a.setupForm != nil || a.confirm != nil {
			return a, nil
		}
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				return a.switchTab(tab)
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			a.commitEntry()
			return a, tea.Quit
		}

		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.confirm != nil {
			return a.updateConfirm(msg)
		}
		if a.activeTab == tabSettings && a.settings.editing {
			return a.updateSettingsInput(msg)
		}
		if a.activeTab == tabToday && a.entryFocused {
			return a.updateEntry(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch key {
		case "q":
			a.commitEntry()
			return a, tea.Quit
		case "left":
			return a.switchTab((a.activeTab + len(components.Tabs) - 1) % len(components.Tabs))
		case "right", "tab":
			return a.switchTab((a.activeTab + 1) % len(components.Tabs))
		}

		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				return a.switchTab(idx)
			}
		}

		switch a.activeTab {
		case tabToday:
			return a.updateToday(msg)
		case tabHistory:
			if key == "r" {
				return a, loadHistoryCmd(a.history)
			}
		case tabSettings:
			return a.updateSettings(msg)
		}
		return a, nil
	}

	// Forward everything else (cursor blink, form internals) to whatever
	// component is active.
	switch {
	case a.setupForm != nil:
		return a.updateSetupForm(msg)
	case a.confirm != nil:
		return a.updateConfirm(msg)
	case a.settings.editing:
		var cmd tea.Cmd
		a.settings.input, cmd = a.settings.input.Update(msg)
		return a, cmd
	case a.entryFocused:
		var cmd tea.Cmd
		a.entry, cmd = a.entry.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) switchTab(idx int) (tea.Model, tea.Cmd) {
	if idx == a.activeTab {
		return a, nil
	}
	a.activeTab = idx
	a.settings.editing = false
	if idx == tabHistory {
		return a, loadHistoryCmd(a.history)
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := a.cfg
		if err := a.setupVals.Apply(&cfg, a.tracker); err != nil {
			a.setFlash(err.Error(), true)
		}
		if err := config.Save(cfg); err != nil {
			logger.Error("saving config", "err", err)
			a.setFlash("Could not save config: "+err.Error(), true)
		}
		a.cfg = cfg
		a.entry.Placeholder = a.tracker.Snapshot().Placeholder
		a.needSetup = false
		a.setupForm = nil
		return a, loadHistoryCmd(a.history)
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) startConfirmReset() (tea.Model, tea.Cmd) {
	rc := &resetConfirm{}
	rc.form = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Reset today's total to zero?").
			Affirmative("Reset").
			Negative("Cancel").
			Value(&rc.ok),
	)).WithTheme(huh.ThemeCharm()).WithShowHelp(false)
	a.confirm = rc
	return a, rc.form.Init()
}

func (a App) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		a.confirm = nil
		return a, nil
	}

	form, cmd := a.confirm.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.confirm.form = f
	}

	switch a.confirm.form.State {
	case huh.StateCompleted:
		if a.confirm.ok {
			a.tracker.ResetToday()
			a.afterMutation("Reset to zero")
		}
		a.confirm = nil
		return a, nil
	case huh.StateAborted:
		a.confirm = nil
		return a, nil
	}
	return a, cmd
}

// afterMutation reports a save failure in place of msg.
func (a *App) afterMutation(msg string) {
	if err := a.tracker.LastSaveError(); err != nil {
		a.setFlash("Not saved: "+err.Error(), true)
		return
	}
	a.setFlash(msg, false)
}

func (a *App) setFlash(msg string, isErr bool) {
	a.flash = msg
	a.flashErr = isErr
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	if a.confirm != nil {
		return a.viewOverlay(a.confirm.form.View())
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  hydrate needs at least %d columns.\n",
		a.width, minTerminalWidth)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewOverlay(body string) string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3).
		Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Water).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n")

	sections := []struct {
		name     string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"t h s", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move in settings"},
		}},
		{"Today", [][2]string{
			{"e", "Edit amount"},
			{"+ -", "Add / Subtract amount"},
			{"1 2 3", "Add preset"},
			{"u", "Cycle unit"},
			{"R", "Reset today"},
		}},
		{"General", [][2]string{
			{"Enter", "Confirm"},
			{"Esc", "Cancel"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-8s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3).
		Render(b.String())

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	warning := ""
	if err := a.tracker.LastSaveError(); err != nil {
		warning = "changes are not being saved"
	}
	info := ""
	if snap := a.tracker.Snapshot(); !snap.LastActive.IsZero() {
		info = "active " + cli.FormatAgo(snap.LastActive, a.now())
	}
	statusBar := components.RenderStatusBar(w, info, warning)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabToday:
		content = a.renderTodayTab(cw)
	case tabHistory:
		content = a.renderHistoryTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadHistoryCmd(src HistorySource) tea.Cmd {
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		days, err := src.History(historyDays)
		return HistoryLoadedMsg{Days: days, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	pos := 0
	for i := range components.Tabs {
		tabW := components.TabVisualWidth(i, a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}
