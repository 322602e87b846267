package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
	"github.com/theirongolddev/hydrate/internal/tui/components"
	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

func (a App) updateToday(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "e", "enter":
		a.entryFocused = true
		a.flash = ""
		cmd := a.entry.Focus()
		return a, cmd
	case "+", "=":
		return a.applyEntry(progress.Add)
	case "-", "_":
		return a.applyEntry(progress.Subtract)
	case "1", "2", "3":
		a.rollover()
		slot := int(key[0] - '0')
		preset := a.tracker.Snapshot().Presets[slot-1]
		if err := a.tracker.ApplyPresetSlot(slot); err != nil {
			a.setFlash(entryError(err, a.tracker.Unit()), true)
			return a, nil
		}
		a.afterMutation("Added " + preset)
		return a, loadHistoryCmd(a.history)
	case "u":
		next := a.tracker.Unit().Next()
		a.tracker.SetUnit(next)
		a.entry.Placeholder = next.Placeholder()
		a.afterMutation("Unit set to " + string(next))
		return a, nil
	case "R":
		return a.startConfirmReset()
	}
	return a, nil
}

// updateEntry handles keys while the amount field has focus. Enter adds the
// amount, Esc leaves the field keeping its text.
func (a App) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.entryFocused = false
		a.entry.Blur()
		return a.applyEntry(progress.Add)
	case "esc":
		a.entryFocused = false
		a.entry.Blur()
		a.commitEntry()
		return a, nil
	}

	var cmd tea.Cmd
	a.entry, cmd = a.entry.Update(msg)
	return a, cmd
}

// commitEntry stores the amount field text so it survives a restart.
func (a *App) commitEntry() {
	a.tracker.SetAmountToAdd(a.entry.Value())
}

func (a *App) rollover() {
	if a.tracker.CheckRollover() {
		a.entry.Placeholder = a.tracker.Snapshot().Placeholder
	}
}

func (a App) applyEntry(sign progress.Sign) (tea.Model, tea.Cmd) {
	raw := a.entry.Value()
	a.commitEntry()
	if strings.TrimSpace(raw) == "" {
		a.setFlash("Type an amount first (press e)", true)
		return a, nil
	}

	a.rollover()
	if err := a.tracker.ApplyDelta(raw, sign); err != nil {
		a.setFlash(entryError(err, a.tracker.Unit()), true)
		return a, nil
	}

	verb := "Added "
	if sign == progress.Subtract {
		verb = "Removed "
	}
	a.afterMutation(verb + strings.TrimSpace(raw))
	return a, loadHistoryCmd(a.history)
}

func entryError(err error, unit quantity.Unit) string {
	if errors.Is(err, quantity.ErrInvalidNumber) {
		return fmt.Sprintf("Not an amount, try %s", unit.Placeholder())
	}
	return err.Error()
}

func (a App) renderTodayTab(cw int) string {
	t := theme.Active
	snap := a.tracker.Snapshot()

	valueColor := components.ColorForRatio(snap.Progress)
	cards := components.LayoutRow(cw, 3)
	remaining := snap.Remaining + " to go"
	if snap.Progress >= 1 {
		remaining = "goal reached"
	}
	metrics := components.CardRow([]string{
		components.MetricCard("Today", snap.Level, "", valueColor, cards[0]),
		components.MetricCard("Goal", snap.Goal, remaining, t.TextPrimary, cards[1]),
		components.MetricCard("Unit", string(snap.Unit), "[u] to change", t.Accent, cards[2]),
	})

	barW := max(components.CardInnerWidth(cw)-6, 10)
	gauge := components.ContentCard("Progress", components.Gauge(snap.Progress, barW), cw)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	var quick strings.Builder
	quick.WriteString(labelStyle.Render("Amount  "))
	if a.entryFocused {
		quick.WriteString(a.entry.View())
	} else {
		v := a.entry.Value()
		if v == "" {
			v = lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(a.entry.Placeholder)
		} else {
			v = valueStyle.Render(v)
		}
		quick.WriteString(v)
		quick.WriteString(space.Render("  "))
		quick.WriteString(keyStyle.Render("[e]"))
		quick.WriteString(labelStyle.Render("dit  "))
		quick.WriteString(keyStyle.Render("[+]"))
		quick.WriteString(labelStyle.Render(" add  "))
		quick.WriteString(keyStyle.Render("[-]"))
		quick.WriteString(labelStyle.Render(" subtract"))
	}
	quick.WriteString("\n\n")
	quick.WriteString(labelStyle.Render("Presets "))
	for i, p := range snap.Presets {
		if i > 0 {
			quick.WriteString(space.Render("   "))
		}
		quick.WriteString(keyStyle.Render(fmt.Sprintf("[%d]", i+1)))
		quick.WriteString(space.Render(" "))
		quick.WriteString(valueStyle.Render(p))
	}
	quick.WriteString("\n\n")
	quick.WriteString(keyStyle.Render("[R]"))
	quick.WriteString(labelStyle.Render(" reset today"))

	if a.flash != "" {
		color := t.Green
		if a.flashErr {
			color = t.Red
		}
		quick.WriteString("\n\n")
		quick.WriteString(lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(a.flash))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		metrics,
		gauge,
		components.ContentCard("Log water", quick.String(), cw),
	)
}
