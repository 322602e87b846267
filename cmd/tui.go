package cmd

import (
	"fmt"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/tui"
	"github.com/theirongolddev/hydrate/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	theme.SetActive(s.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	var opts []tui.Option
	if !config.Exists() {
		opts = append(opts, tui.WithSetup())
	}

	// A nil *store.Store must not become a non-nil interface.
	var history tui.HistorySource
	if s.store != nil {
		history = s.store
	}

	app := tui.NewApp(s.tracker, history, s.cfg, opts...)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	s.saveWarning()
	return nil
}
