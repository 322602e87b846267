package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/hydrate/internal/quantity"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var flagResetYes bool

var goalCmd = &cobra.Command{
	Use:   "goal [amount]",
	Short: "Show or set the daily goal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGoal,
}

var unitCmd = &cobra.Command{
	Use:       "unit [ml|L|oz]",
	Short:     "Show or set the display unit",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"ml", "L", "oz"},
	RunE:      runUnit,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set today's total back to zero",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&flagResetYes, "yes", "y", false, "Skip the confirmation")

	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(unitCmd)
	rootCmd.AddCommand(resetCmd)
}

func runGoal(_ *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if len(args) == 0 {
		fmt.Printf("  Goal: %s\n", s.tracker.Snapshot().Goal)
		return nil
	}
	if err := s.tracker.SetGoal(args[0]); err != nil {
		return err
	}
	fmt.Printf("  Goal set to %s  ·  %s\n", s.tracker.Snapshot().Goal, summaryLine(s.tracker.Snapshot()))
	s.saveWarning()
	return nil
}

func runUnit(_ *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if len(args) == 0 {
		fmt.Printf("  Unit: %s\n", s.tracker.Unit())
		return nil
	}
	u, err := quantity.ParseUnit(args[0])
	if err != nil {
		return err
	}
	s.tracker.SetUnit(u)
	fmt.Printf("  Unit set to %s  ·  %s\n", u, summaryLine(s.tracker.Snapshot()))
	s.saveWarning()
	return nil
}

func runReset(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if !flagResetYes {
		confirmed := false
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Reset today's total?").
				Description(fmt.Sprintf("You are at %s. This sets it back to zero.", s.tracker.Snapshot().Level)).
				Affirmative("Reset").
				Negative("Cancel").
				Value(&confirmed),
		)).WithTheme(huh.ThemeCharm())
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("  Cancelled")
				return nil
			}
			return fmt.Errorf("confirm reset: %w", err)
		}
		if !confirmed {
			fmt.Println("  Cancelled")
			return nil
		}
	}

	s.tracker.ResetToday()
	fmt.Printf("  Reset  ·  %s\n", summaryLine(s.tracker.Snapshot()))
	s.saveWarning()
	return nil
}
