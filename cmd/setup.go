package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	vals := tui.SetupValuesFrom(s.cfg)
	if err := tui.NewSetupForm(vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing changed.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	cfg := s.cfg
	applyErr := vals.Apply(&cfg, s.tracker)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	if applyErr != nil {
		warnf("some answers were not applied: %v", applyErr)
	}

	snap := s.tracker.Snapshot()
	fmt.Println()
	fmt.Printf("  Goal %s, unit %s, presets %s / %s / %s\n",
		snap.Goal, snap.Unit, snap.Presets[0], snap.Presets[1], snap.Presets[2])
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `hydrate setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
