package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
	"github.com/theirongolddev/hydrate/internal/tui/components"
	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

const (
	settingsFieldGoal = iota
	settingsFieldUnit
	settingsFieldPreset1
	settingsFieldPreset2
	settingsFieldPreset3
	settingsFieldTheme
	settingsFieldCount // sentinel
)

var errUnknownTheme = errors.New("unknown theme")

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message
	saveErr error // non-nil if the last edit was rejected or not stored
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 30
	return ti
}

func (a App) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if a.settings.cursor < settingsFieldCount-1 {
			a.settings.cursor++
		}
	case "k", "up":
		if a.settings.cursor > 0 {
			a.settings.cursor--
		}
	case "enter", "e":
		return a.settingsStartEdit()
	}
	return a, nil
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	snap := a.tracker.Snapshot()
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch f := a.settings.cursor; f {
	case settingsFieldGoal:
		ti.Placeholder = "e.g. 3L or 100oz"
		ti.SetValue(snap.Goal)
	case settingsFieldUnit:
		ti.Placeholder = "ml, L or oz"
		ti.SetValue(snap.Unit.Suffix())
	case settingsFieldPreset1, settingsFieldPreset2, settingsFieldPreset3:
		ti.Placeholder = snap.Placeholder
		ti.SetValue(snap.Presets[f-settingsFieldPreset1])
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(theme.Active.Name)
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settings.saveErr = a.settingsSave()
		a.settings.saved = a.settings.saveErr == nil
		if a.settings.saved {
			a.settings.editing = false
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		a.settings.saveErr = nil
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave applies the edited field. Tracker values go to the database,
// the theme goes to the config file.
func (a *App) settingsSave() error {
	val := strings.TrimSpace(a.settings.input.Value())

	switch f := a.settings.cursor; f {
	case settingsFieldGoal:
		if err := a.tracker.SetGoal(val); err != nil {
			return err
		}
	case settingsFieldUnit:
		u, err := quantity.ParseUnit(val)
		if err != nil {
			return err
		}
		a.tracker.SetUnit(u)
		a.entry.Placeholder = u.Placeholder()
	case settingsFieldPreset1, settingsFieldPreset2, settingsFieldPreset3:
		if err := a.tracker.SetPreset(f-settingsFieldPreset1+1, val); err != nil {
			return err
		}
	case settingsFieldTheme:
		if _, ok := theme.Lookup(val); !ok {
			return fmt.Errorf("%w %q", errUnknownTheme, val)
		}
		theme.SetActive(val)
		a.cfg.Appearance.Theme = val
		return config.Save(a.cfg)
	}
	return a.tracker.LastSaveError()
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	snap := a.tracker.Snapshot()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	fields := []struct{ label, value string }{
		{"Daily goal", snap.Goal},
		{"Unit", string(snap.Unit)},
		{"Preset 1", snap.Presets[0]},
		{"Preset 2", snap.Presets[1]},
		{"Preset 3", snap.Presets[2]},
		{"Theme", theme.Active.Name},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		switch {
		case a.settings.editing && i == a.settings.cursor:
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-12s ", f.label)))
			form.WriteString(a.settings.input.View())
		case i == a.settings.cursor:
			row := markerStyle.Render("▸ ") +
				selectedLabelStyle.Render(fmt.Sprintf("%-12s ", f.label+":")) +
				selectedStyle.Render(f.value)
			form.WriteString(row)
			if pad := innerW - lipgloss.Width(row); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		default:
			form.WriteString(labelStyle.Render("  " + fmt.Sprintf("%-12s ", f.label+":")))
			form.WriteString(valueStyle.Render(f.value))
		}
		form.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		form.WriteString("\n")
		form.WriteString(lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).
			Render("! " + a.settings.saveErr.Error()))
		form.WriteString("\n")
	} else if a.settings.saved {
		form.WriteString("\n")
		form.WriteString(lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Render("Saved"))
		form.WriteString("\n")
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	dbPath := a.cfg.DBPath()
	if a.history == nil {
		dbPath += " (not open, changes are kept in memory)"
	}
	var info strings.Builder
	info.WriteString(labelStyle.Render("Config file:  ") + valueStyle.Render(config.Path()) + "\n")
	info.WriteString(labelStyle.Render("Database:     ") + valueStyle.Render(dbPath) + "\n")
	info.WriteString(labelStyle.Render("Presets hold: ") + valueStyle.Render(fmt.Sprintf("%d slots", progress.NumPresets)))

	return lipgloss.JoinVertical(lipgloss.Left,
		components.ContentCard("Settings", form.String(), cw),
		components.ContentCard("Files", info.String(), cw),
	)
}
